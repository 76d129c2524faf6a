// Package testutil provides deterministic fixtures for tests.
package testutil

import (
	"math/rand"

	"github.com/simidx/simidx"
)

// MemoryRowSet is an in-memory simidx.RowSet built from named columns.
type MemoryRowSet struct {
	columns map[string][]any
	numRows int
}

// NewMemoryRowSet creates a row set from equal-length columns.
func NewMemoryRowSet(columns map[string][]any) *MemoryRowSet {
	n := 0
	for _, values := range columns {
		n = len(values)
		break
	}
	return &MemoryRowSet{columns: columns, numRows: n}
}

// NumRows returns the number of rows.
func (m *MemoryRowSet) NumRows() int { return m.numRows }

// Column returns the values of a named column.
func (m *MemoryRowSet) Column(name string) ([]any, error) {
	values, ok := m.columns[name]
	if !ok {
		return nil, &missingColumnError{name: name}
	}
	return values, nil
}

// Rows projects row ids to records. Out-of-range ids yield the missing
// marker.
func (m *MemoryRowSet) Rows(ids []int64, missing simidx.Row) []simidx.Row {
	rows := make([]simidx.Row, len(ids))
	for i, id := range ids {
		if id < 0 || id >= int64(m.numRows) {
			rows[i] = missing
			continue
		}
		row := make(simidx.Row, len(m.columns))
		for name, values := range m.columns {
			row[name] = values[id]
		}
		rows[i] = row
	}
	return rows
}

type missingColumnError struct{ name string }

func (e *missingColumnError) Error() string { return "no column named " + e.name }

// ScaledOnes returns n vectors of the given dimension where vector i is
// i in every component. Under inner product against an all-ones query the
// best match is always the last vector.
func ScaledOnes(n, dim int) [][]float32 {
	vectors := make([][]float32, n)
	for i := range vectors {
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = float32(i)
		}
		vectors[i] = vec
	}
	return vectors
}

// Ones returns an all-ones vector of the given dimension.
func Ones(dim int) []float32 {
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = 1
	}
	return vec
}

// RandomVectors returns n random vectors with components in [0, 1),
// reproducible from seed.
func RandomVectors(n, dim int, seed int64) [][]float32 {
	rng := rand.New(rand.NewSource(seed))
	vectors := make([][]float32, n)
	for i := range vectors {
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = rng.Float32()
		}
		vectors[i] = vec
	}
	return vectors
}

// VectorColumn wraps vectors as column values for a MemoryRowSet.
func VectorColumn(vectors [][]float32) []any {
	values := make([]any, len(vectors))
	for i, vec := range vectors {
		values[i] = vec
	}
	return values
}

// TextColumn wraps strings as column values for a MemoryRowSet.
func TextColumn(texts []string) []any {
	values := make([]any, len(texts))
	for i, text := range texts {
		values[i] = text
	}
	return values
}
