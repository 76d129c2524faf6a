// Package lsh provides a hashing-based approximate search backend.
//
// Vectors are reduced to sign signatures against a set of random
// hyperplanes. Queries rank stored signatures by Hamming distance to
// gather a candidate set, then rerank the candidates exactly under the
// configured metric. Signature comparison is a popcount over packed
// words, so the coarse pass is cheap even for large stores.
package lsh

import (
	"fmt"
	"math/bits"
	"math/rand"
	"strconv"
	"strings"
	"sync"

	"github.com/simidx/simidx/backend"
	"github.com/simidx/simidx/internal/queue"
	"github.com/simidx/simidx/metric"
	"github.com/simidx/simidx/persistence"
)

var _ backend.Backend = (*LSH)(nil)

func init() {
	backend.RegisterFactory("LSH", func(arg string, m metric.Metric, dim int) (backend.Backend, error) {
		nbits := DefaultOptions.Bits
		if s := strings.TrimSpace(arg); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("lsh: invalid bit count in factory spec: %q", arg)
			}
			nbits = n
		}
		return New(dim, m, func(o *Options) { o.Bits = nbits })
	})
	backend.RegisterLoader(persistence.BackendKindLSH, load)
}

// Options contains tuning knobs for the LSH backend.
type Options struct {
	// Bits is the signature length in bits (number of hyperplanes).
	Bits int

	// CandidateFactor scales the coarse candidate set: the Hamming pass
	// keeps k*CandidateFactor candidates for exact reranking.
	CandidateFactor int

	// Seed makes hyperplane generation deterministic.
	Seed int64
}

// DefaultOptions contains the default configuration for the LSH backend.
var DefaultOptions = Options{
	Bits:            64,
	CandidateFactor: 16,
	Seed:            1,
}

// LSH is a random-hyperplane signature backend.
type LSH struct {
	mu     sync.RWMutex
	m      metric.Metric
	dim    int
	opts   Options
	words  int // signature words per vector
	ntotal int

	hyperplanes []float32 // bits*dim, row-major
	signatures  []uint64  // ntotal*words
	data        []float32 // row-major vectors by position, for reranking
}

// New creates an LSH backend for the given dimension and metric.
func New(dim int, m metric.Metric, optFns ...func(o *Options)) (*LSH, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("lsh: invalid dimension: %d", dim)
	}

	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Bits <= 0 {
		return nil, fmt.Errorf("lsh: invalid bit count: %d", opts.Bits)
	}
	if opts.CandidateFactor <= 0 {
		opts.CandidateFactor = DefaultOptions.CandidateFactor
	}

	l := &LSH{
		m:     m,
		dim:   dim,
		opts:  opts,
		words: (opts.Bits + 63) / 64,
	}
	l.hyperplanes = randomHyperplanes(opts.Bits, dim, opts.Seed)
	return l, nil
}

func randomHyperplanes(nbits, dim int, seed int64) []float32 {
	rng := rand.New(rand.NewSource(seed))
	planes := make([]float32, nbits*dim)
	for i := range planes {
		planes[i] = float32(rng.NormFloat64())
	}
	return planes
}

func (l *LSH) Kind() uint8           { return persistence.BackendKindLSH }
func (l *LSH) Metric() metric.Metric { return l.m }
func (l *LSH) Dimension() int        { return l.dim }

// Ntotal returns the number of stored vectors.
func (l *LSH) Ntotal() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.ntotal
}

// sign computes the packed signature of v against the hyperplanes.
func (l *LSH) sign(v []float32) []uint64 {
	sig := make([]uint64, l.words)
	for b := 0; b < l.opts.Bits; b++ {
		plane := l.hyperplanes[b*l.dim : (b+1)*l.dim]
		var dot float32
		for i := range v {
			dot += v[i] * plane[i]
		}
		if dot >= 0 {
			sig[b/64] |= 1 << (b % 64)
		}
	}
	return sig
}

func hamming(a, b []uint64) int {
	var d int
	for i := range a {
		d += bits.OnesCount64(a[i] ^ b[i])
	}
	return d
}

// Add appends vectors in input order, storing their signatures.
// The whole batch is validated before any vector is stored.
func (l *LSH) Add(vectors [][]float32) error {
	for _, v := range vectors {
		if len(v) == 0 {
			return backend.ErrEmptyVector
		}
		if len(v) != l.dim {
			return &backend.ErrDimensionMismatch{Expected: l.dim, Actual: len(v)}
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, v := range vectors {
		l.data = append(l.data, v...)
		l.signatures = append(l.signatures, l.sign(v)...)
	}
	l.ntotal += len(vectors)
	return nil
}

// Search ranks signatures by Hamming distance, then reranks the best
// candidates exactly under the metric.
func (l *LSH) Search(query []float32, k int) ([]backend.SearchResult, error) {
	if k <= 0 {
		return nil, backend.ErrInvalidK
	}
	if len(query) != l.dim {
		return nil, &backend.ErrDimensionMismatch{Expected: l.dim, Actual: len(query)}
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.ntotal == 0 {
		return nil, nil
	}

	qsig := l.sign(query)

	nCandidates := k * l.opts.CandidateFactor
	if nCandidates > l.ntotal {
		nCandidates = l.ntotal
	}

	// Coarse pass: smallest Hamming distance wins, so evict from a max-heap.
	coarse := queue.NewMax(nCandidates)
	for i := 0; i < l.ntotal; i++ {
		d := float32(hamming(qsig, l.signatures[i*l.words:(i+1)*l.words]))
		if coarse.Len() < nCandidates {
			coarse.Push(queue.Item{Position: int64(i), Score: d})
			continue
		}
		if worst, _ := coarse.Top(); d < worst.Score {
			coarse.Pop()
			coarse.Push(queue.Item{Position: int64(i), Score: d})
		}
	}

	actualK := k
	if actualK > l.ntotal {
		actualK = l.ntotal
	}
	top := backend.NewCollector(l.m, actualK)
	for coarse.Len() > 0 {
		item, _ := coarse.Pop()
		vec := l.data[item.Position*int64(l.dim) : (item.Position+1)*int64(l.dim)]
		top.Offer(item.Position, l.m.Score(query, vec))
	}
	return top.Results(), nil
}
