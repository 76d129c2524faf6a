package simidx

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/simidx/simidx/rank"
)

const maxConcurrentTextSearches = 8

// DocumentStore indexes text documents through a rank.Client and answers
// relevance-ranked full-text queries. Documents are append-only and
// addressed by their 0-based insertion position, mirrored on the
// collaborator side as decimal external ids.
type DocumentStore struct {
	mu     sync.Mutex
	client rank.Client
	name   string
	count  int64
	opts   documentStoreOptions
	logger *Logger
}

// NewDocumentStore creates a document store backed by client and ensures
// its index exists. An unreachable collaborator surfaces as ErrConnection.
func NewDocumentStore(ctx context.Context, client rank.Client, optFns ...DocumentStoreOption) (*DocumentStore, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: nil rank client", ErrInvalidConfig)
	}

	opts := applyDocumentStoreOptions(optFns)
	if opts.indexName == "" {
		opts.indexName = generateIndexName()
	}

	s := &DocumentStore{
		client: client,
		name:   opts.indexName,
		opts:   opts,
		logger: opts.logger.WithIndex(opts.indexName),
	}

	cctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()
	if err := client.CreateIndex(cctx, s.name); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	return s, nil
}

func generateIndexName() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return "simidx-" + hex.EncodeToString(b[:])
}

// IndexName returns the collaborator-side index name.
func (s *DocumentStore) IndexName() string { return s.name }

// Size returns the number of indexed documents.
func (s *DocumentStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int(s.count)
}

// AddDocuments appends a batch of documents in input order. The batch is
// all-or-nothing: any per-document failure rejects the whole batch and
// leaves the position counter unchanged, so callers can retry it.
func (s *DocumentStore) AddDocuments(ctx context.Context, texts []string) error {
	if len(texts) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs := make([]rank.Document, len(texts))
	for i, text := range texts {
		docs[i] = rank.Document{
			ID:   strconv.FormatInt(s.count+int64(i), 10),
			Text: text,
		}
	}

	cctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	res, err := s.client.BulkIngest(cctx, s.name, docs)
	if err != nil {
		s.logger.LogAdd(ctx, len(texts), err)
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: bulk ingest", ErrTimeout)
		}
		return &ErrBulkIngest{Failed: len(texts), cause: err}
	}
	if res.Failed > 0 {
		err := &ErrBulkIngest{Failed: res.Failed}
		s.logger.LogAdd(ctx, len(texts), err)
		return err
	}

	s.count += int64(len(texts))
	s.logger.LogAdd(ctx, len(texts), nil)
	return nil
}

// Search returns the k most relevant documents for query, best-first.
// Both slices always have length k: missing tail slots carry the NoMatch
// sentinel. Collaborator ids that do not parse as positions are skipped.
func (s *DocumentStore) Search(ctx context.Context, query string, k int) (scores []float32, positions []int64, err error) {
	if k <= 0 {
		k = DefaultTopK
	}

	cctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	hits, err := s.client.Search(cctx, s.name, query, k)
	if err != nil {
		s.logger.LogSearch(ctx, k, 0, err)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, nil, fmt.Errorf("%w: search", ErrTimeout)
		}
		return nil, nil, err
	}

	scores = make([]float32, k)
	positions = make([]int64, k)
	i := 0
	for _, hit := range hits {
		if i == k {
			break
		}
		pos, perr := strconv.ParseInt(hit.ID, 10, 64)
		if perr != nil {
			continue
		}
		scores[i] = hit.Score
		positions[i] = pos
		i++
	}
	for ; i < k; i++ {
		scores[i] = NoMatch
		positions[i] = NoMatch
	}

	s.logger.LogSearch(ctx, k, len(hits), nil)
	return scores, positions, nil
}

// SearchBatch answers many queries concurrently, preserving input order:
// row i of the output belongs to queries[i].
func (s *DocumentStore) SearchBatch(ctx context.Context, queries []string, k int) (scores [][]float32, positions [][]int64, err error) {
	if len(queries) == 0 {
		return nil, nil, nil
	}

	scores = make([][]float32, len(queries))
	positions = make([][]int64, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentTextSearches)
	for i, query := range queries {
		g.Go(func() error {
			qs, qp, err := s.Search(gctx, query, k)
			if err != nil {
				return fmt.Errorf("query %d: %w", i, err)
			}
			scores[i] = qs
			positions[i] = qp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return scores, positions, nil
}

// Drop removes the collaborator-side index. The store must not be used
// afterwards.
func (s *DocumentStore) Drop(ctx context.Context) error {
	cctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	err := s.client.DeleteIndex(cctx, s.name)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: delete index", ErrTimeout)
	}
	s.logger.LogSnapshot(ctx, "drop:"+s.name, err)
	return err
}
