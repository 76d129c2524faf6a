package simidx

import (
	"errors"
	"fmt"
)

var (
	// ErrNotBuilt is returned when searching an index that has no vectors yet.
	ErrNotBuilt = errors.New("index not built: no vectors added")

	// ErrInvalidConfig is returned for conflicting construction options.
	ErrInvalidConfig = errors.New("invalid index configuration")

	// ErrTimeout is returned when a network-bound operation exceeds its deadline.
	ErrTimeout = errors.New("operation timed out")

	// ErrConnection is returned when the rank-search collaborator is unreachable.
	ErrConnection = errors.New("search service unreachable")
)

// ErrMissingIndex indicates an operation referenced an index name that is
// not attached to the registry.
type ErrMissingIndex struct {
	Name string
}

func (e *ErrMissingIndex) Error() string {
	return fmt.Sprintf("index %q not attached", e.Name)
}

// ErrDuplicateIndex indicates an attach operation used a name that is
// already taken.
type ErrDuplicateIndex struct {
	Name string
}

func (e *ErrDuplicateIndex) Error() string {
	return fmt.Sprintf("index %q already attached", e.Name)
}

// ErrBulkIngest indicates a bulk document ingestion partially failed.
// The whole batch is reported as failed; callers retry the batch.
type ErrBulkIngest struct {
	Failed int
	cause  error
}

func (e *ErrBulkIngest) Error() string {
	return fmt.Sprintf("bulk ingestion failed for %d document(s)", e.Failed)
}

func (e *ErrBulkIngest) Unwrap() error { return e.cause }
