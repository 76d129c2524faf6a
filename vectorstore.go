package simidx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/simidx/simidx/backend"
	"github.com/simidx/simidx/blobstore"
	"github.com/simidx/simidx/metric"
	"github.com/simidx/simidx/persistence"
)

// NoMatch is the sentinel filling result slots beyond the number of
// stored vectors. It appears as -1 in both score and position slots.
const NoMatch = -1

// VectorStore indexes dense vectors and answers nearest-neighbor queries
// against them. Vectors are append-only and addressed by their 0-based
// insertion position.
//
// The engine is chosen exactly one way: a factory spec (WithFactorySpec),
// an injected backend (WithBackend), or the metric default, a flat exact
// scan. When the dimension is not known at construction it is fixed by
// the first added batch.
type VectorStore struct {
	mu      sync.RWMutex
	backend backend.Backend
	opts    vectorStoreOptions
	logger  *Logger
}

// NewVectorStore creates a vector store.
func NewVectorStore(optFns ...VectorStoreOption) (*VectorStore, error) {
	opts := applyVectorStoreOptions(optFns)

	if opts.factorySpec != "" && opts.custom != nil {
		return nil, fmt.Errorf("%w: both factory spec and custom backend given", ErrInvalidConfig)
	}
	if opts.dimension < 0 {
		return nil, fmt.Errorf("%w: negative dimension", ErrInvalidConfig)
	}

	s := &VectorStore{opts: opts, logger: opts.logger}

	switch {
	case opts.custom != nil:
		s.backend = opts.custom
	case opts.dimension > 0:
		b, err := s.buildBackend(opts.dimension)
		if err != nil {
			return nil, err
		}
		s.backend = b
	}
	return s, nil
}

func (s *VectorStore) buildBackend(dim int) (backend.Backend, error) {
	spec := s.opts.factorySpec
	if spec == "" {
		spec = "Flat"
	}
	b, err := backend.Build(spec, s.opts.metric, dim)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return b, nil
}

// AddVectors appends a batch of vectors in input order. The first batch
// fixes the dimension when it was not configured up front; a mismatching
// batch is rejected as a whole and leaves the store unchanged.
func (s *VectorStore) AddVectors(ctx context.Context, vectors [][]float32) error {
	if len(vectors) == 0 {
		return nil
	}
	if len(vectors[0]) == 0 {
		return backend.ErrEmptyVector
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.backend == nil {
		b, err := s.buildBackend(len(vectors[0]))
		if err != nil {
			return err
		}
		s.backend = b
	}

	err := s.backend.Add(vectors)
	s.logger.LogAdd(ctx, len(vectors), err)
	return err
}

// Ntotal returns the number of stored vectors.
func (s *VectorStore) Ntotal() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.backend == nil {
		return 0
	}
	return s.backend.Ntotal()
}

// Dimension returns the vector dimensionality, or 0 when it is not
// fixed yet.
func (s *VectorStore) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.backend == nil {
		return s.opts.dimension
	}
	return s.backend.Dimension()
}

// Metric returns the scoring metric.
func (s *VectorStore) Metric() metric.Metric {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.backend == nil {
		return s.opts.metric
	}
	return s.backend.Metric()
}

// Search returns the k best matches for query, ranked best-first by the
// store's metric. Both slices always have length k: when fewer than k
// vectors are stored the tail is filled with the NoMatch sentinel.
func (s *VectorStore) Search(ctx context.Context, query []float32, k int) (scores []float32, positions []int64, err error) {
	if k <= 0 {
		k = DefaultTopK
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	scores, positions, err = s.searchLocked(query, k)
	s.logger.LogSearch(ctx, k, len(scores), err)
	return scores, positions, err
}

// searchLocked runs a single query. Callers hold at least a read lock.
func (s *VectorStore) searchLocked(query []float32, k int) ([]float32, []int64, error) {
	if s.backend == nil || s.backend.Ntotal() == 0 {
		return nil, nil, ErrNotBuilt
	}

	results, err := s.backend.Search(query, k)
	if err != nil {
		return nil, nil, err
	}

	scores := make([]float32, k)
	positions := make([]int64, k)
	for i := range scores {
		if i < len(results) {
			scores[i] = results[i].Score
			positions[i] = results[i].Position
		} else {
			scores[i] = NoMatch
			positions[i] = NoMatch
		}
	}
	return scores, positions, nil
}

// SearchBatch answers many queries, preserving input order: row i of the
// output belongs to queries[i]. Queries are processed in bounded chunks
// concurrently; each row obeys the same padding contract as Search.
func (s *VectorStore) SearchBatch(ctx context.Context, queries [][]float32, k int) (scores [][]float32, positions [][]int64, err error) {
	if k <= 0 {
		k = DefaultTopK
	}
	if len(queries) == 0 {
		return nil, nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	scores = make([][]float32, len(queries))
	positions = make([][]int64, len(queries))

	g, _ := errgroup.WithContext(ctx)
	batch := s.opts.batchSize
	for start := 0; start < len(queries); start += batch {
		end := min(start+batch, len(queries))
		g.Go(func() error {
			for i := start; i < end; i++ {
				qs, qp, err := s.searchLocked(queries[i], k)
				if err != nil {
					return fmt.Errorf("query %d: %w", i, err)
				}
				scores[i] = qs
				positions[i] = qp
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.LogSearch(ctx, k, 0, err)
		return nil, nil, err
	}
	s.logger.LogSearch(ctx, k, len(queries), nil)
	return scores, positions, nil
}

// WriteTo writes a snapshot of the store.
func (s *VectorStore) WriteTo(w io.Writer) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.backend == nil {
		return 0, ErrNotBuilt
	}

	payload, err := persistence.EncodePayload(func(pw io.Writer) error {
		_, err := s.backend.WriteTo(pw)
		return err
	})
	if err != nil {
		return 0, err
	}

	header := &persistence.FileHeader{
		BackendKind: s.backend.Kind(),
		VectorCount: uint64(s.backend.Ntotal()),
		Dimension:   uint32(s.backend.Dimension()),
	}

	cw := &countingWriter{w: w}
	if err := persistence.WriteSnapshot(cw, header, payload, s.opts.compression); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

// ReadFrom replaces the store contents with a snapshot.
func (s *VectorStore) ReadFrom(r io.Reader) (int64, error) {
	header, payload, err := persistence.ReadSnapshot(r)
	if err != nil {
		return 0, err
	}

	b, err := backend.Load(header.BackendKind, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	s.backend = b
	s.mu.Unlock()
	return int64(persistence.HeaderSize) + int64(header.PayloadSize), nil
}

// Save atomically writes a snapshot file.
func (s *VectorStore) Save(ctx context.Context, filename string) error {
	err := persistence.SaveToFile(filename, func(w io.Writer) error {
		_, err := s.WriteTo(w)
		return err
	})
	s.logger.LogSnapshot(ctx, filename, err)
	return err
}

// LoadVectorStore reads a snapshot file into a fresh store. Options that
// shape the engine (metric, factory spec, backend, dimension) are ignored;
// the snapshot is authoritative.
func LoadVectorStore(ctx context.Context, filename string, optFns ...VectorStoreOption) (*VectorStore, error) {
	s := &VectorStore{opts: applyVectorStoreOptions(optFns)}
	s.opts.factorySpec = ""
	s.opts.custom = nil
	s.logger = s.opts.logger

	err := persistence.LoadFromFile(filename, func(r io.Reader) error {
		_, err := s.ReadFrom(r)
		return err
	})
	s.logger.LogSnapshot(ctx, filename, err)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// SaveTo writes a snapshot to a blob store.
func (s *VectorStore) SaveTo(ctx context.Context, store blobstore.BlobStore, name string) error {
	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		s.logger.LogSnapshot(ctx, name, err)
		return err
	}
	err := store.Put(ctx, name, buf.Bytes())
	s.logger.LogSnapshot(ctx, name, err)
	return err
}

// LoadVectorStoreFrom reads a snapshot from a blob store into a fresh
// store, with the same option semantics as LoadVectorStore.
func LoadVectorStoreFrom(ctx context.Context, store blobstore.BlobStore, name string, optFns ...VectorStoreOption) (*VectorStore, error) {
	s := &VectorStore{opts: applyVectorStoreOptions(optFns)}
	s.opts.factorySpec = ""
	s.opts.custom = nil
	s.logger = s.opts.logger

	blob, err := store.Open(ctx, name)
	if err != nil {
		s.logger.LogSnapshot(ctx, name, err)
		return nil, err
	}
	defer blob.Close()

	_, err = s.ReadFrom(blob)
	s.logger.LogSnapshot(ctx, name, err)
	if err != nil {
		return nil, err
	}
	return s, nil
}
