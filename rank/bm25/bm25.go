// Package bm25 provides an in-process rank.Client scored with Okapi BM25.
//
// It exists so text indexes work without any external service: ingestion
// and search are hermetic, which also makes the text path fully testable.
package bm25

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/simidx/simidx/rank"
)

const (
	k1 = 1.2
	b  = 0.75
)

// Client is an in-memory BM25 implementation of rank.Client.
type Client struct {
	mu      sync.RWMutex
	indexes map[string]*searchIndex
}

var _ rank.Client = (*Client)(nil)

// New creates a new in-process BM25 client.
func New() *Client {
	return &Client{indexes: make(map[string]*searchIndex)}
}

type posting struct {
	// docs marks which internal doc ids contain the term.
	docs *roaring.Bitmap
	// counts holds the term frequency per internal doc id.
	counts map[uint32]int
}

type searchIndex struct {
	inverted    map[string]*posting
	docLengths  map[uint32]int
	extIDs      []string // internal doc id -> external id
	totalLength int64
}

func newSearchIndex() *searchIndex {
	return &searchIndex{
		inverted:   make(map[string]*posting),
		docLengths: make(map[uint32]int),
	}
}

// tokenize lowercases and splits on non-letter/non-digit boundaries.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
}

// CreateIndex creates the named index. Creating an existing index is
// acknowledged without change, matching typical search-service semantics.
func (c *Client) CreateIndex(_ context.Context, index string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.indexes[index]; !ok {
		c.indexes[index] = newSearchIndex()
	}
	return nil
}

// DeleteIndex removes the named index and its documents.
func (c *Client) DeleteIndex(_ context.Context, index string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.indexes, index)
	return nil
}

// BulkIngest ingests documents in order.
func (c *Client) BulkIngest(ctx context.Context, index string, docs []rank.Document) (rank.BulkResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ix, ok := c.indexes[index]
	if !ok {
		return rank.BulkResult{Failed: len(docs)}, fmt.Errorf("bm25: unknown index %q", index)
	}

	var res rank.BulkResult
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			res.Failed = len(docs) - res.Indexed
			return res, err
		}

		docID := uint32(len(ix.extIDs))
		ix.extIDs = append(ix.extIDs, doc.ID)

		tokens := tokenize(doc.Text)
		ix.docLengths[docID] = len(tokens)
		ix.totalLength += int64(len(tokens))

		tf := make(map[string]int)
		for _, t := range tokens {
			tf[t]++
		}
		for t, count := range tf {
			p, ok := ix.inverted[t]
			if !ok {
				p = &posting{docs: roaring.New(), counts: make(map[uint32]int)}
				ix.inverted[t] = p
			}
			p.docs.Add(docID)
			p.counts[docID] = count
		}
		res.Indexed++
	}
	return res, nil
}

// Search scores candidate documents with BM25 and returns the k best.
func (c *Client) Search(_ context.Context, index, query string, k int) ([]rank.Hit, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ix, ok := c.indexes[index]
	if !ok {
		return nil, fmt.Errorf("bm25: unknown index %q", index)
	}

	docCount := len(ix.extIDs)
	if docCount == 0 || k <= 0 {
		return nil, nil
	}
	avgDL := float64(ix.totalLength) / float64(docCount)

	// Candidates are the union of the query terms' posting bitmaps.
	candidates := roaring.New()
	terms := tokenize(query)
	for _, t := range terms {
		if p, ok := ix.inverted[t]; ok {
			candidates.Or(p.docs)
		}
	}

	scores := make(map[uint32]float64, candidates.GetCardinality())
	for _, t := range terms {
		p, ok := ix.inverted[t]
		if !ok {
			continue
		}

		// IDF = log(1 + (N - n + 0.5) / (n + 0.5))
		n := float64(p.docs.GetCardinality())
		idf := math.Log(1 + (float64(docCount)-n+0.5)/(n+0.5))

		it := p.docs.Iterator()
		for it.HasNext() {
			docID := it.Next()
			tf := float64(p.counts[docID])
			docLen := float64(ix.docLengths[docID])

			num := tf * (k1 + 1)
			denom := tf + k1*(1-b+b*(docLen/avgDL))
			scores[docID] += idf * (num / denom)
		}
	}

	// Rank candidates best-first, breaking score ties by doc id for
	// deterministic output.
	type scored struct {
		docID uint32
		score float64
	}
	ranked := make([]scored, 0, len(scores))
	it := candidates.Iterator()
	for it.HasNext() {
		docID := it.Next()
		ranked = append(ranked, scored{docID: docID, score: scores[docID]})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].docID < ranked[j].docID
	})

	if k > len(ranked) {
		k = len(ranked)
	}
	hits := make([]rank.Hit, k)
	for i := 0; i < k; i++ {
		hits[i] = rank.Hit{ID: ix.extIDs[ranked[i].docID], Score: float32(ranked[i].score)}
	}
	return hits, nil
}
