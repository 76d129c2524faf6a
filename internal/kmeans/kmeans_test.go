package kmeans

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrain(t *testing.T) {
	t.Run("TwoClusters", func(t *testing.T) {
		// Two well-separated groups around (0,0) and (10,10).
		vectors := []float32{
			0, 0, 0.1, 0.2, 0.2, 0.1,
			10, 10, 10.1, 10.2, 10.2, 10.1,
		}
		rng := rand.New(rand.NewSource(1))
		centroids := Train(vectors, 2, 2, 25, rng)
		require.Len(t, centroids, 4)

		// All points in a group must map to the same centroid, and the
		// two groups to different ones.
		a := Assign([]float32{0.1, 0.1}, centroids, 2)
		b := Assign([]float32{10.1, 10.1}, centroids, 2)
		assert.NotEqual(t, a, b)
		assert.Equal(t, a, Assign([]float32{0.2, 0.1}, centroids, 2))
		assert.Equal(t, b, Assign([]float32{10.2, 10.1}, centroids, 2))
	})

	t.Run("FewerVectorsThanK", func(t *testing.T) {
		vectors := []float32{1, 1, 2, 2}
		rng := rand.New(rand.NewSource(1))
		centroids := Train(vectors, 2, 8, 25, rng)
		assert.Len(t, centroids, 4) // k shrinks to n
	})

	t.Run("Empty", func(t *testing.T) {
		rng := rand.New(rand.NewSource(1))
		assert.Nil(t, Train(nil, 2, 4, 25, rng))
	})
}

func TestClosest(t *testing.T) {
	centroids := []float32{0, 0, 5, 5, 10, 10}

	got := Closest([]float32{6, 6}, centroids, 2, 2)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0])
	assert.Equal(t, 2, got[1])

	t.Run("NLargerThanK", func(t *testing.T) {
		got := Closest([]float32{0, 0}, centroids, 2, 10)
		assert.Equal(t, []int{0, 1, 2}, got)
	})
}
