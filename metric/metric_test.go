package metric

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("InnerProduct", func(t *testing.T) {
		for _, s := range []string{"InnerProduct", "ip", "DOT"} {
			m, err := Parse(s)
			require.NoError(t, err)
			assert.Equal(t, InnerProduct, m)
		}
	})

	t.Run("L2", func(t *testing.T) {
		for _, s := range []string{"L2", "l2", "euclidean"} {
			m, err := Parse(s)
			require.NoError(t, err)
			assert.Equal(t, L2, m)
		}
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := Parse("cosine")
		assert.Error(t, err)
	})
}

func TestScore(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{4, 5, 6}

	t.Run("InnerProduct", func(t *testing.T) {
		assert.InDelta(t, 32.0, InnerProduct.Score(a, b), 1e-6)
	})

	t.Run("L2", func(t *testing.T) {
		// (3^2 + 3^2 + 3^2)
		assert.InDelta(t, 27.0, L2.Score(a, b), 1e-6)
	})
}

func TestBetter(t *testing.T) {
	t.Run("InnerProduct", func(t *testing.T) {
		assert.True(t, InnerProduct.HigherIsBetter())
		assert.True(t, InnerProduct.Better(2, 1))
		assert.False(t, InnerProduct.Better(1, 2))
	})

	t.Run("L2", func(t *testing.T) {
		assert.False(t, L2.HigherIsBetter())
		assert.True(t, L2.Better(1, 2))
		assert.False(t, L2.Better(2, 1))
	})
}
