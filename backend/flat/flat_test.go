package flat

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simidx/simidx/backend"
	"github.com/simidx/simidx/metric"
	"github.com/simidx/simidx/persistence"
)

func TestFlat(t *testing.T) {
	t.Run("Add", func(t *testing.T) {
		f, err := New(3, metric.L2)
		require.NoError(t, err)

		require.NoError(t, f.Add([][]float32{{1, 2, 3}, {4, 5, 6}}))
		assert.Equal(t, 2, f.Ntotal())

		// A bad batch is rejected as a whole.
		err = f.Add([][]float32{{7, 8, 9}, {1, 2}})
		assert.IsType(t, &backend.ErrDimensionMismatch{}, err)
		assert.Equal(t, 2, f.Ntotal())

		err = f.Add([][]float32{{}})
		assert.ErrorIs(t, err, backend.ErrEmptyVector)
	})

	t.Run("SearchL2", func(t *testing.T) {
		f, err := New(3, metric.L2)
		require.NoError(t, err)
		require.NoError(t, f.Add([][]float32{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}))

		results, err := f.Search([]float32{0, 0, 0}, 2)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, int64(0), results[0].Position)
		assert.Equal(t, int64(1), results[1].Position)
		assert.InDelta(t, 14.0, results[0].Score, 1e-6)
	})

	t.Run("SearchInnerProduct", func(t *testing.T) {
		f, err := New(5, metric.InnerProduct)
		require.NoError(t, err)

		// Vector i is i in every component, so i*dim scores highest.
		vectors := make([][]float32, 30)
		for i := range vectors {
			vec := make([]float32, 5)
			for j := range vec {
				vec[j] = float32(i)
			}
			vectors[i] = vec
		}
		require.NoError(t, f.Add(vectors))

		results, err := f.Search([]float32{1, 1, 1, 1, 1}, 3)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, int64(29), results[0].Position)
		assert.InDelta(t, 145.0, results[0].Score, 1e-6)
		assert.Equal(t, int64(28), results[1].Position)
	})

	t.Run("KLargerThanNtotal", func(t *testing.T) {
		f, err := New(2, metric.L2)
		require.NoError(t, err)
		require.NoError(t, f.Add([][]float32{{1, 1}, {2, 2}}))

		results, err := f.Search([]float32{0, 0}, 10)
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("InvalidK", func(t *testing.T) {
		f, err := New(2, metric.L2)
		require.NoError(t, err)
		_, err = f.Search([]float32{0, 0}, 0)
		assert.ErrorIs(t, err, backend.ErrInvalidK)
	})

	t.Run("Empty", func(t *testing.T) {
		f, err := New(2, metric.L2)
		require.NoError(t, err)
		results, err := f.Search([]float32{0, 0}, 3)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestFactory(t *testing.T) {
	b, err := backend.Build("Flat", metric.InnerProduct, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, b.Dimension())
	assert.Equal(t, metric.InnerProduct, b.Metric())

	_, err = backend.Build("Flat99", metric.L2, 4)
	assert.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	f, err := New(3, metric.InnerProduct)
	require.NoError(t, err)
	require.NoError(t, f.Add([][]float32{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}))

	var buf bytes.Buffer
	_, err = f.WriteTo(&buf)
	require.NoError(t, err)

	loaded, err := backend.Load(persistence.BackendKindFlat, &buf)
	require.NoError(t, err)
	assert.Equal(t, f.Ntotal(), loaded.Ntotal())
	assert.Equal(t, f.Dimension(), loaded.Dimension())
	assert.Equal(t, f.Metric(), loaded.Metric())

	want, err := f.Search([]float32{1, 0, 1}, 3)
	require.NoError(t, err)
	got, err := loaded.Search([]float32{1, 0, 1}, 3)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
