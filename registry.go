package simidx

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/simidx/simidx/blobstore"
	"github.com/simidx/simidx/rank"
)

// DefaultAddBatchSize bounds how many rows an index build ingests per call.
const DefaultAddBatchSize = 1000

// EmbedFunc turns a column value into a dense vector.
type EmbedFunc func(value any) ([]float32, error)

type attachedIndex struct {
	vector *VectorStore
	text   *DocumentStore
}

// Registry attaches named search indexes to a row set. Vector and text
// indexes share one namespace; query results are projected back into rows.
type Registry struct {
	mu      sync.RWMutex
	rows    RowSet
	indexes map[string]*attachedIndex
	logger  *Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the registry logger.
func WithRegistryLogger(l *Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRegistry creates a registry over the given row set.
func NewRegistry(rows RowSet, optFns ...RegistryOption) *Registry {
	r := &Registry{
		rows:    rows,
		indexes: make(map[string]*attachedIndex),
		logger:  NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(r)
		}
	}
	return r
}

// ListIndexes returns the attached index names in sorted order.
func (r *Registry) ListIndexes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.indexes))
	for name := range r.indexes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasIndex reports whether an index with the given name is attached.
func (r *Registry) HasIndex(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.indexes[name]
	return ok
}

// reserve claims a name in the index namespace. The claim is released on
// failure so a failed build leaves the registry unchanged.
func (r *Registry) reserve(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.indexes[name]; ok {
		return &ErrDuplicateIndex{Name: name}
	}
	r.indexes[name] = nil
	return nil
}

func (r *Registry) commit(name string, idx *attachedIndex) {
	r.mu.Lock()
	r.indexes[name] = idx
	r.mu.Unlock()
}

func (r *Registry) release(name string) {
	r.mu.Lock()
	delete(r.indexes, name)
	r.mu.Unlock()
}

func (r *Registry) lookup(name string) (*attachedIndex, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.indexes[name]
	if !ok || idx == nil {
		return nil, &ErrMissingIndex{Name: name}
	}
	return idx, nil
}

func (r *Registry) vectorIndex(name string) (*VectorStore, error) {
	idx, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	if idx.vector == nil {
		return nil, fmt.Errorf("index %q is not a vector index", name)
	}
	return idx.vector, nil
}

func (r *Registry) textIndex(name string) (*DocumentStore, error) {
	idx, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	if idx.text == nil {
		return nil, fmt.Errorf("index %q is not a text index", name)
	}
	return idx.text, nil
}

// columnVector coerces a column value into a float32 vector.
func columnVector(v any) ([]float32, error) {
	switch vec := v.(type) {
	case []float32:
		return vec, nil
	case []float64:
		out := make([]float32, len(vec))
		for i, f := range vec {
			out[i] = float32(f)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("column value is %T, not a vector", v)
	}
}

// AddVectorIndex builds a vector index over a column of the row set and
// attaches it under name. When embed is nil the column must hold vectors
// ([]float32 or []float64); otherwise embed maps each value to a vector.
// Row i of the column becomes position i of the index.
func (r *Registry) AddVectorIndex(ctx context.Context, name, column string, embed EmbedFunc, optFns ...VectorStoreOption) error {
	if err := r.reserve(name); err != nil {
		return err
	}

	store, err := r.buildVectorIndex(ctx, column, embed, optFns)
	if err != nil {
		r.release(name)
		return err
	}

	r.commit(name, &attachedIndex{vector: store})
	r.logger.WithIndex(name).InfoContext(ctx, "vector index attached",
		"column", column, "vectors", store.Ntotal())
	return nil
}

func (r *Registry) buildVectorIndex(ctx context.Context, column string, embed EmbedFunc, optFns []VectorStoreOption) (*VectorStore, error) {
	values, err := r.rows.Column(column)
	if err != nil {
		return nil, fmt.Errorf("column %q: %w", column, err)
	}

	store, err := NewVectorStore(optFns...)
	if err != nil {
		return nil, err
	}

	for start := 0; start < len(values); start += DefaultAddBatchSize {
		end := min(start+DefaultAddBatchSize, len(values))
		batch := make([][]float32, 0, end-start)
		for i := start; i < end; i++ {
			var vec []float32
			if embed != nil {
				vec, err = embed(values[i])
			} else {
				vec, err = columnVector(values[i])
			}
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			batch = append(batch, vec)
		}
		if err := store.AddVectors(ctx, batch); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// AddVectorIndexFromExternal attaches a vector index built from caller
// supplied vectors. Position i refers to row i of the row set; the caller
// is responsible for keeping the two aligned.
func (r *Registry) AddVectorIndexFromExternal(ctx context.Context, name string, vectors [][]float32, optFns ...VectorStoreOption) error {
	if err := r.reserve(name); err != nil {
		return err
	}

	store, err := NewVectorStore(optFns...)
	if err == nil {
		for start := 0; start < len(vectors) && err == nil; start += DefaultAddBatchSize {
			end := min(start+DefaultAddBatchSize, len(vectors))
			err = store.AddVectors(ctx, vectors[start:end])
		}
	}
	if err != nil {
		r.release(name)
		return err
	}

	r.commit(name, &attachedIndex{vector: store})
	r.logger.WithIndex(name).InfoContext(ctx, "vector index attached",
		"source", "external", "vectors", store.Ntotal())
	return nil
}

// AttachBackend attaches a vector index running on a caller-built backend.
func (r *Registry) AttachBackend(ctx context.Context, name string, optFns ...VectorStoreOption) error {
	if err := r.reserve(name); err != nil {
		return err
	}
	store, err := NewVectorStore(optFns...)
	if err != nil {
		r.release(name)
		return err
	}
	r.commit(name, &attachedIndex{vector: store})
	return nil
}

// AddTextIndex builds a full-text index over a string column of the row
// set and attaches it under name. Row i of the column becomes position i
// of the index.
func (r *Registry) AddTextIndex(ctx context.Context, name, column string, client rank.Client, optFns ...DocumentStoreOption) error {
	if err := r.reserve(name); err != nil {
		return err
	}

	store, err := r.buildTextIndex(ctx, column, client, optFns)
	if err != nil {
		r.release(name)
		return err
	}

	r.commit(name, &attachedIndex{text: store})
	r.logger.WithIndex(name).InfoContext(ctx, "text index attached",
		"column", column, "documents", store.Size())
	return nil
}

func (r *Registry) buildTextIndex(ctx context.Context, column string, client rank.Client, optFns []DocumentStoreOption) (*DocumentStore, error) {
	values, err := r.rows.Column(column)
	if err != nil {
		return nil, fmt.Errorf("column %q: %w", column, err)
	}

	store, err := NewDocumentStore(ctx, client, optFns...)
	if err != nil {
		return nil, err
	}

	for start := 0; start < len(values); start += DefaultAddBatchSize {
		end := min(start+DefaultAddBatchSize, len(values))
		texts := make([]string, 0, end-start)
		for i := start; i < end; i++ {
			text, ok := values[i].(string)
			if !ok {
				return nil, fmt.Errorf("row %d: column value is %T, not a string", i, values[i])
			}
			texts = append(texts, text)
		}
		if err := store.AddDocuments(ctx, texts); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// projectRows maps index positions to rows of the row set. Sentinel and
// out-of-range positions project to a nil Row.
func (r *Registry) projectRows(positions []int64) []Row {
	return r.rows.Rows(positions, nil)
}

// GetNearest searches a vector index and projects the matches back into
// rows. Scores and rows have length k; padded slots carry the NoMatch
// score and a nil row.
func (r *Registry) GetNearest(ctx context.Context, name string, query []float32, k int) (scores []float32, rows []Row, err error) {
	store, err := r.vectorIndex(name)
	if err != nil {
		return nil, nil, err
	}
	scores, positions, err := store.Search(ctx, query, k)
	if err != nil {
		return nil, nil, err
	}
	return scores, r.projectRows(positions), nil
}

// GetNearestBatch searches a vector index with many queries, preserving
// input order.
func (r *Registry) GetNearestBatch(ctx context.Context, name string, queries [][]float32, k int) (scores [][]float32, rows [][]Row, err error) {
	store, err := r.vectorIndex(name)
	if err != nil {
		return nil, nil, err
	}
	scores, positions, err := store.SearchBatch(ctx, queries, k)
	if err != nil {
		return nil, nil, err
	}
	rows = make([][]Row, len(positions))
	for i, p := range positions {
		rows[i] = r.projectRows(p)
	}
	return scores, rows, nil
}

// GetNearestText searches a text index and projects the matches back
// into rows.
func (r *Registry) GetNearestText(ctx context.Context, name, query string, k int) (scores []float32, rows []Row, err error) {
	store, err := r.textIndex(name)
	if err != nil {
		return nil, nil, err
	}
	scores, positions, err := store.Search(ctx, query, k)
	if err != nil {
		return nil, nil, err
	}
	return scores, r.projectRows(positions), nil
}

// GetNearestTextBatch searches a text index with many queries, preserving
// input order.
func (r *Registry) GetNearestTextBatch(ctx context.Context, name string, queries []string, k int) (scores [][]float32, rows [][]Row, err error) {
	store, err := r.textIndex(name)
	if err != nil {
		return nil, nil, err
	}
	scores, positions, err := store.SearchBatch(ctx, queries, k)
	if err != nil {
		return nil, nil, err
	}
	rows = make([][]Row, len(positions))
	for i, p := range positions {
		rows[i] = r.projectRows(p)
	}
	return scores, rows, nil
}

// SaveIndex writes a snapshot of a vector index to a file.
func (r *Registry) SaveIndex(ctx context.Context, name, filename string) error {
	store, err := r.vectorIndex(name)
	if err != nil {
		return err
	}
	return store.Save(ctx, filename)
}

// LoadIndex reads a vector index snapshot from a file and attaches it
// under name. A taken name fails without touching the existing index.
func (r *Registry) LoadIndex(ctx context.Context, name, filename string, optFns ...VectorStoreOption) error {
	if err := r.reserve(name); err != nil {
		return err
	}
	store, err := LoadVectorStore(ctx, filename, optFns...)
	if err != nil {
		r.release(name)
		return err
	}
	r.commit(name, &attachedIndex{vector: store})
	return nil
}

// SaveIndexTo writes a snapshot of a vector index to a blob store.
func (r *Registry) SaveIndexTo(ctx context.Context, name string, store blobstore.BlobStore, blobName string) error {
	vs, err := r.vectorIndex(name)
	if err != nil {
		return err
	}
	return vs.SaveTo(ctx, store, blobName)
}

// LoadIndexFrom reads a vector index snapshot from a blob store and
// attaches it under name.
func (r *Registry) LoadIndexFrom(ctx context.Context, name string, store blobstore.BlobStore, blobName string, optFns ...VectorStoreOption) error {
	if err := r.reserve(name); err != nil {
		return err
	}
	vs, err := LoadVectorStoreFrom(ctx, store, blobName, optFns...)
	if err != nil {
		r.release(name)
		return err
	}
	r.commit(name, &attachedIndex{vector: vs})
	return nil
}

// DropIndex detaches an index. Text indexes also delete their
// collaborator-side index.
func (r *Registry) DropIndex(ctx context.Context, name string) error {
	r.mu.Lock()
	idx, ok := r.indexes[name]
	if !ok || idx == nil {
		r.mu.Unlock()
		return &ErrMissingIndex{Name: name}
	}
	delete(r.indexes, name)
	r.mu.Unlock()

	if idx.text != nil {
		return idx.text.Drop(ctx)
	}
	return nil
}
