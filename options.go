package simidx

import (
	"time"

	"github.com/simidx/simidx/backend"
	"github.com/simidx/simidx/metric"
	"github.com/simidx/simidx/persistence"
)

// DefaultSearchBatchSize bounds how many queries a batched search
// processes per chunk.
const DefaultSearchBatchSize = 1000

// DefaultTopK is the result count used when callers pass k <= 0.
const DefaultTopK = 10

type vectorStoreOptions struct {
	metric      metric.Metric
	dimension   int // 0 = fixed by the first added batch
	factorySpec string
	custom      backend.Backend
	batchSize   int
	compression persistence.Compression
	logger      *Logger
}

// VectorStoreOption configures a VectorStore.
type VectorStoreOption func(*vectorStoreOptions)

// WithMetric sets the scoring metric for the default backend.
func WithMetric(m metric.Metric) VectorStoreOption {
	return func(o *vectorStoreOptions) { o.metric = m }
}

// WithDimension hints the vector dimensionality up front instead of
// fixing it from the first added batch.
func WithDimension(dim int) VectorStoreOption {
	return func(o *vectorStoreOptions) { o.dimension = dim }
}

// WithFactorySpec selects the backend by factory spec string, e.g.
// "Flat", "IVF64,nprobe=8" or "LSH256". Mutually exclusive with
// WithBackend.
func WithFactorySpec(spec string) VectorStoreOption {
	return func(o *vectorStoreOptions) { o.factorySpec = spec }
}

// WithBackend injects a pre-built backend. Mutually exclusive with
// WithFactorySpec.
func WithBackend(b backend.Backend) VectorStoreOption {
	return func(o *vectorStoreOptions) { o.custom = b }
}

// WithSearchBatchSize bounds the chunk size of batched searches.
func WithSearchBatchSize(n int) VectorStoreOption {
	return func(o *vectorStoreOptions) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithCompression selects the snapshot payload compression.
func WithCompression(c persistence.Compression) VectorStoreOption {
	return func(o *vectorStoreOptions) { o.compression = c }
}

// WithVectorLogger sets the store logger.
func WithVectorLogger(l *Logger) VectorStoreOption {
	return func(o *vectorStoreOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

func applyVectorStoreOptions(optFns []VectorStoreOption) vectorStoreOptions {
	o := vectorStoreOptions{
		metric:      metric.L2,
		batchSize:   DefaultSearchBatchSize,
		compression: persistence.CompressionNone,
		logger:      NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

// DefaultDocumentTimeout bounds calls to the rank-search collaborator.
const DefaultDocumentTimeout = 30 * time.Second

type documentStoreOptions struct {
	indexName string
	timeout   time.Duration
	logger    *Logger
}

// DocumentStoreOption configures a DocumentStore.
type DocumentStoreOption func(*documentStoreOptions)

// WithIndexName sets the collaborator-side index name. A unique name is
// generated when unset.
func WithIndexName(name string) DocumentStoreOption {
	return func(o *documentStoreOptions) { o.indexName = name }
}

// WithTimeout bounds each call to the rank-search collaborator.
func WithTimeout(d time.Duration) DocumentStoreOption {
	return func(o *documentStoreOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithDocumentLogger sets the store logger.
func WithDocumentLogger(l *Logger) DocumentStoreOption {
	return func(o *documentStoreOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

func applyDocumentStoreOptions(optFns []DocumentStoreOption) documentStoreOptions {
	o := documentStoreOptions{
		timeout: DefaultDocumentTimeout,
		logger:  NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
