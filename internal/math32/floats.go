// Package math32 provides float32 vector math kernels.
//
// The loops are written so the compiler can unroll and vectorize them;
// callers are expected to pass equal-length slices.
package math32

import "math"

// Dot returns the dot product of a and b.
// Assumes len(a) == len(b) (caller's responsibility).
func Dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// SquaredL2 returns the squared Euclidean distance between a and b.
// Assumes len(a) == len(b) (caller's responsibility).
func SquaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// Sqrt returns the square root of x.
func Sqrt(x float32) float32 {
	return float32(math.Sqrt(float64(x)))
}

// ScaleInPlace multiplies every element of v by s.
func ScaleInPlace(v []float32, s float32) {
	for i := range v {
		v[i] *= s
	}
}

// Norm returns the L2 norm (magnitude) of v.
func Norm(v []float32) float32 {
	return Sqrt(Dot(v, v))
}
