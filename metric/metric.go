// Package metric defines the similarity metrics used to rank vectors.
package metric

import (
	"fmt"
	"strings"

	"github.com/simidx/simidx/internal/math32"
)

// Metric represents the scoring function used to rank vector similarity.
type Metric int

const (
	// InnerProduct scores by dot product; higher is better.
	InnerProduct Metric = iota
	// L2 scores by squared Euclidean distance; lower is better.
	L2
)

func (m Metric) String() string {
	switch m {
	case InnerProduct:
		return "InnerProduct"
	case L2:
		return "L2"
	default:
		return fmt.Sprintf("Unknown(%d)", int(m))
	}
}

// Parse returns the Metric named by s (case-insensitive).
func Parse(s string) (Metric, error) {
	switch strings.ToLower(s) {
	case "innerproduct", "ip", "dot":
		return InnerProduct, nil
	case "l2", "euclidean":
		return L2, nil
	default:
		return 0, fmt.Errorf("unknown metric: %q", s)
	}
}

// Score computes the raw similarity score between a and b.
// Assumes len(a) == len(b) (caller's responsibility).
func (m Metric) Score(a, b []float32) float32 {
	if m == InnerProduct {
		return math32.Dot(a, b)
	}
	return math32.SquaredL2(a, b)
}

// HigherIsBetter reports whether larger scores rank first for this metric.
func (m Metric) HigherIsBetter() bool {
	return m == InnerProduct
}

// Better reports whether score a ranks before score b under this metric.
func (m Metric) Better(a, b float32) bool {
	if m.HigherIsBetter() {
		return a > b
	}
	return a < b
}
