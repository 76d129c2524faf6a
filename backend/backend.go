// Package backend provides interfaces and registries for vector search backends.
package backend

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/simidx/simidx/metric"
)

// ErrDimensionMismatch is a named error type for dimension mismatch.
type ErrDimensionMismatch struct {
	Expected int // Expected dimensions
	Actual   int // Actual dimensions
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

var (
	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = fmt.Errorf("k must be positive")

	// ErrEmptyVector is returned when a zero-length vector is added.
	ErrEmptyVector = fmt.Errorf("empty vector")
)

// SearchResult represents a single ranked match.
type SearchResult struct {
	// Position is the backend-local position of the match (insertion order).
	Position int64

	// Score is the raw metric score of the match.
	Score float32
}

// Backend is the engine implementing vector storage and nearest-neighbor search.
// Backends are append-only: vectors get contiguous local positions in input
// order and are never updated or removed individually.
type Backend interface {
	io.WriterTo

	// Add appends vectors in input order, assigning the next local positions.
	Add(vectors [][]float32) error

	// Search returns up to k matches ranked best-first by the backend's metric.
	Search(query []float32, k int) ([]SearchResult, error)

	// Ntotal returns the number of stored vectors.
	Ntotal() int

	// Dimension returns the fixed vector dimensionality.
	Dimension() int

	// Metric returns the scoring metric.
	Metric() metric.Metric

	// Kind returns the serialization kind tag (see persistence format).
	Kind() uint8
}

// FactoryFunc constructs a backend from the argument part of a factory spec.
// arg is the spec with the registered prefix stripped (e.g. "64,nprobe=8").
type FactoryFunc func(arg string, m metric.Metric, dim int) (Backend, error)

// LoaderFunc deserializes a backend payload previously written by WriteTo.
type LoaderFunc func(r io.Reader) (Backend, error)

var (
	registryMu sync.RWMutex
	factories  = make(map[string]FactoryFunc)
	loaders    = make(map[uint8]LoaderFunc)
)

// RegisterFactory registers a constructor for factory specs starting with prefix.
// Typically called from init() in backend implementation packages.
func RegisterFactory(prefix string, fn FactoryFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[strings.ToUpper(prefix)] = fn
}

// RegisterLoader registers a binary loader for the given kind tag.
// Typically called from init() in backend implementation packages.
func RegisterLoader(kind uint8, fn LoaderFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()
	loaders[kind] = fn
}

// Build constructs a backend from a factory spec string, e.g. "Flat",
// "IVF64", "IVF64,nprobe=8" or "LSH256". Matching is case-insensitive and
// uses the longest registered prefix.
func Build(spec string, m metric.Metric, dim int) (Backend, error) {
	s := strings.ToUpper(strings.TrimSpace(spec))
	if s == "" {
		return nil, fmt.Errorf("empty factory spec")
	}

	registryMu.RLock()
	prefixes := make([]string, 0, len(factories))
	for p := range factories {
		prefixes = append(prefixes, p)
	}
	registryMu.RUnlock()

	// Longest prefix wins so "IVFPQ" style extensions cannot be shadowed.
	sort.Slice(prefixes, func(i, j int) bool { return len(prefixes[i]) > len(prefixes[j]) })

	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			registryMu.RLock()
			fn := factories[p]
			registryMu.RUnlock()
			return fn(strings.TrimPrefix(s, p), m, dim)
		}
	}

	return nil, fmt.Errorf("unknown factory spec: %q", spec)
}

// Load deserializes a backend payload of the given kind tag.
func Load(kind uint8, r io.Reader) (Backend, error) {
	registryMu.RLock()
	fn, ok := loaders[kind]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no loader registered for backend kind %d", kind)
	}
	return fn(r)
}
