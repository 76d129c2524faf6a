// Package kmeans implements Lloyd's algorithm for coarse partitioning.
//
// Clustering always uses squared L2 distance; partition geometry is a
// storage concern and is independent of the search metric.
package kmeans

import (
	"math"
	"math/rand"

	"github.com/simidx/simidx/internal/math32"
)

// Train trains k centroids from the given flattened vectors (n * dim).
// It returns the flattened centroids (k * dim). If there are fewer than
// k vectors, the vectors themselves are used as centroids and k shrinks.
func Train(vectors []float32, dim, k, maxIter int, rng *rand.Rand) []float32 {
	n := len(vectors) / dim
	if n == 0 || dim == 0 {
		return nil
	}
	if k > n {
		k = n
	}

	centroids := make([]float32, k*dim)

	// Initialize centroids from random distinct data points.
	perm := rng.Perm(n)
	for i := 0; i < k; i++ {
		copy(centroids[i*dim:(i+1)*dim], vectors[perm[i]*dim:(perm[i]+1)*dim])
	}

	assignments := make([]int, n)
	counts := make([]int, k)
	sums := make([]float32, k*dim)

	for iter := 0; iter < maxIter; iter++ {
		changed := false

		// Assignment step
		for i := 0; i < n; i++ {
			vec := vectors[i*dim : (i+1)*dim]
			best := Assign(vec, centroids, dim)
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}

		if !changed && iter > 0 {
			break
		}

		// Update step
		for i := range sums {
			sums[i] = 0
		}
		for i := range counts {
			counts[i] = 0
		}
		for i := 0; i < n; i++ {
			c := assignments[i]
			vec := vectors[i*dim : (i+1)*dim]
			for d := 0; d < dim; d++ {
				sums[c*dim+d] += vec[d]
			}
			counts[c]++
		}
		for j := 0; j < k; j++ {
			if counts[j] > 0 {
				scale := 1.0 / float32(counts[j])
				for d := 0; d < dim; d++ {
					centroids[j*dim+d] = sums[j*dim+d] * scale
				}
			} else {
				// Re-seed empty cluster with a random point.
				idx := rng.Intn(n)
				copy(centroids[j*dim:(j+1)*dim], vectors[idx*dim:(idx+1)*dim])
			}
		}
	}

	return centroids
}

// Assign returns the index of the centroid closest to vec.
func Assign(vec, centroids []float32, dim int) int {
	k := len(centroids) / dim
	best := 0
	minDist := float32(math.MaxFloat32)
	for j := 0; j < k; j++ {
		d := math32.SquaredL2(vec, centroids[j*dim:(j+1)*dim])
		if d < minDist {
			minDist = d
			best = j
		}
	}
	return best
}

// Closest returns the indices of the n centroids closest to query,
// ordered nearest first.
func Closest(query, centroids []float32, dim, n int) []int {
	k := len(centroids) / dim
	if n > k {
		n = k
	}

	type centroidDist struct {
		id   int
		dist float32
	}
	dists := make([]centroidDist, k)
	for i := 0; i < k; i++ {
		dists[i] = centroidDist{id: i, dist: math32.SquaredL2(query, centroids[i*dim:(i+1)*dim])}
	}

	// Partial selection sort; n is small (nprobe).
	for i := 0; i < n; i++ {
		min := i
		for j := i + 1; j < k; j++ {
			if dists[j].dist < dists[min].dist {
				min = j
			}
		}
		dists[i], dists[min] = dists[min], dists[i]
	}

	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = dists[i].id
	}
	return out
}
