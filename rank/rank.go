// Package rank defines the client surface of a rank-search collaborator:
// a service that ingests documents and answers ranked full-text queries.
package rank

import "context"

// Document is a single unit of ingested text.
type Document struct {
	// ID is the external document identifier (caller-chosen, unique per index).
	ID string

	// Text is the document body.
	Text string
}

// Hit is a single ranked match.
type Hit struct {
	// ID is the external identifier of the matching document.
	ID string

	// Score is the collaborator's relevance score (higher is better).
	Score float32
}

// BulkResult reports the outcome of a bulk ingestion.
type BulkResult struct {
	// Indexed is the number of successfully ingested documents.
	Indexed int

	// Failed is the number of documents that could not be ingested.
	Failed int
}

// Client talks to a rank-search collaborator.
// Implementations must be safe for concurrent use.
type Client interface {
	// CreateIndex creates (or acknowledges) the named search index.
	CreateIndex(ctx context.Context, index string) error

	// BulkIngest ingests documents into the named index.
	BulkIngest(ctx context.Context, index string, docs []Document) (BulkResult, error)

	// Search returns up to k matches for the query, best-first.
	Search(ctx context.Context, index, query string, k int) ([]Hit, error)

	// DeleteIndex removes the named index and its documents.
	DeleteIndex(ctx context.Context, index string) error
}
