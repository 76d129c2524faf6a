// Package flat provides the exact brute-force search backend.
package flat

import (
	"fmt"
	"strings"
	"sync"

	"github.com/simidx/simidx/backend"
	"github.com/simidx/simidx/metric"
	"github.com/simidx/simidx/persistence"
)

// Compile-time check to ensure Flat satisfies the backend interface.
var _ backend.Backend = (*Flat)(nil)

func init() {
	backend.RegisterFactory("FLAT", func(arg string, m metric.Metric, dim int) (backend.Backend, error) {
		if strings.TrimSpace(arg) != "" {
			return nil, fmt.Errorf("flat: unexpected factory argument: %q", arg)
		}
		return New(dim, m)
	})
	backend.RegisterLoader(persistence.BackendKindFlat, load)
}

// Flat stores vectors in a contiguous row-major buffer and answers
// queries by scoring every stored vector (O(n*d) per query, 100% recall).
type Flat struct {
	mu     sync.RWMutex
	m      metric.Metric
	dim    int
	ntotal int
	data   []float32 // row-major, ntotal*dim
}

// New creates a flat backend for the given dimension and metric.
func New(dim int, m metric.Metric) (*Flat, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("flat: invalid dimension: %d", dim)
	}
	return &Flat{m: m, dim: dim}, nil
}

func (f *Flat) Kind() uint8           { return persistence.BackendKindFlat }
func (f *Flat) Metric() metric.Metric { return f.m }
func (f *Flat) Dimension() int        { return f.dim }

// Ntotal returns the number of stored vectors.
func (f *Flat) Ntotal() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.ntotal
}

// Add appends vectors in input order.
// The whole batch is validated before any vector is stored, so a
// dimension mismatch leaves the backend unchanged.
func (f *Flat) Add(vectors [][]float32) error {
	for _, v := range vectors {
		if len(v) == 0 {
			return backend.ErrEmptyVector
		}
		if len(v) != f.dim {
			return &backend.ErrDimensionMismatch{Expected: f.dim, Actual: len(v)}
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range vectors {
		f.data = append(f.data, v...)
	}
	f.ntotal += len(vectors)
	return nil
}

// Search scores every stored vector and returns the k best matches.
func (f *Flat) Search(query []float32, k int) ([]backend.SearchResult, error) {
	if k <= 0 {
		return nil, backend.ErrInvalidK
	}
	if len(query) != f.dim {
		return nil, &backend.ErrDimensionMismatch{Expected: f.dim, Actual: len(query)}
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.ntotal == 0 {
		return nil, nil
	}

	actualK := k
	if actualK > f.ntotal {
		actualK = f.ntotal
	}

	top := backend.NewCollector(f.m, actualK)
	for i := 0; i < f.ntotal; i++ {
		vec := f.data[i*f.dim : (i+1)*f.dim]
		top.Offer(int64(i), f.m.Score(query, vec))
	}
	return top.Results(), nil
}
