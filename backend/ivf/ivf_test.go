package ivf

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simidx/simidx/backend"
	"github.com/simidx/simidx/metric"
	"github.com/simidx/simidx/persistence"
)

func clusteredVectors() [][]float32 {
	// Two well-separated groups around (0,0) and (10,10).
	return [][]float32{
		{0, 0}, {0.1, 0.2}, {0.2, 0.1},
		{10, 10}, {10.1, 10.2}, {10.2, 10.1},
	}
}

func TestIVF(t *testing.T) {
	t.Run("AddTrainsPartitions", func(t *testing.T) {
		ix, err := New(2, metric.L2, 2)
		require.NoError(t, err)
		require.NoError(t, ix.Add(clusteredVectors()))
		assert.Equal(t, 6, ix.Ntotal())

		// Later adds go through assignment, not retraining.
		require.NoError(t, ix.Add([][]float32{{9.9, 9.9}}))
		assert.Equal(t, 7, ix.Ntotal())

		results, err := ix.Search([]float32{9.9, 9.9}, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, int64(6), results[0].Position)
	})

	t.Run("SearchProbesNearestPartition", func(t *testing.T) {
		ix, err := New(2, metric.L2, 2)
		require.NoError(t, err)
		require.NoError(t, ix.Add(clusteredVectors()))

		results, err := ix.Search([]float32{10, 10}, 2)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, int64(3), results[0].Position)
		assert.InDelta(t, 0.0, results[0].Score, 1e-6)
	})

	t.Run("DimensionMismatch", func(t *testing.T) {
		ix, err := New(2, metric.L2, 2)
		require.NoError(t, err)

		err = ix.Add([][]float32{{1, 2, 3}})
		assert.IsType(t, &backend.ErrDimensionMismatch{}, err)
		assert.Equal(t, 0, ix.Ntotal())

		_, err = ix.Search([]float32{1}, 1)
		assert.IsType(t, &backend.ErrDimensionMismatch{}, err)
	})

	t.Run("Empty", func(t *testing.T) {
		ix, err := New(2, metric.L2, 2)
		require.NoError(t, err)
		results, err := ix.Search([]float32{1, 1}, 3)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestFactory(t *testing.T) {
	t.Run("WithNProbe", func(t *testing.T) {
		b, err := backend.Build("IVF8,NPROBE=3", metric.L2, 4)
		require.NoError(t, err)

		ix := b.(*IVF)
		assert.Equal(t, 8, ix.nlist)
		assert.Equal(t, 3, ix.opts.NProbe)
	})

	t.Run("Invalid", func(t *testing.T) {
		for _, spec := range []string{"IVF", "IVF0", "IVFx", "IVF8,NPROBE=0", "IVF8,BOGUS=1"} {
			_, err := backend.Build(spec, metric.L2, 4)
			assert.Error(t, err, spec)
		}
	})
}

func TestRoundTrip(t *testing.T) {
	ix, err := New(2, metric.L2, 2, func(o *Options) { o.NProbe = 2 })
	require.NoError(t, err)
	require.NoError(t, ix.Add(clusteredVectors()))

	var buf bytes.Buffer
	_, err = ix.WriteTo(&buf)
	require.NoError(t, err)

	loaded, err := backend.Load(persistence.BackendKindIVF, &buf)
	require.NoError(t, err)
	assert.Equal(t, ix.Ntotal(), loaded.Ntotal())
	assert.Equal(t, ix.Dimension(), loaded.Dimension())

	query := []float32{0.1, 0.1}
	want, err := ix.Search(query, 3)
	require.NoError(t, err)
	got, err := loaded.Search(query, 3)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// The loaded copy keeps accepting vectors.
	require.NoError(t, loaded.Add([][]float32{{0.15, 0.15}}))
	assert.Equal(t, 7, loaded.Ntotal())
}
