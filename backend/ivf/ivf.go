// Package ivf provides a partitioned approximate search backend.
//
// Vectors are assigned to kmeans-trained coarse partitions; queries only
// score vectors in the nprobe partitions whose centroids are closest to
// the query. Recall is traded for sublinear query cost.
package ivf

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"

	"github.com/simidx/simidx/backend"
	"github.com/simidx/simidx/internal/kmeans"
	"github.com/simidx/simidx/metric"
	"github.com/simidx/simidx/persistence"
)

var _ backend.Backend = (*IVF)(nil)

func init() {
	backend.RegisterFactory("IVF", parseFactory)
	backend.RegisterLoader(persistence.BackendKindIVF, load)
}

// parseFactory parses "IVF<nlist>[,NPROBE=<n>]" factory arguments.
// The "IVF" prefix has already been stripped by the registry.
func parseFactory(arg string, m metric.Metric, dim int) (backend.Backend, error) {
	parts := strings.Split(arg, ",")
	nlist, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || nlist <= 0 {
		return nil, fmt.Errorf("ivf: invalid partition count in factory spec: %q", arg)
	}

	opts := DefaultOptions
	for _, p := range parts[1:] {
		key, val, ok := strings.Cut(strings.TrimSpace(p), "=")
		if !ok {
			return nil, fmt.Errorf("ivf: invalid factory option: %q", p)
		}
		switch key {
		case "NPROBE":
			n, err := strconv.Atoi(val)
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("ivf: invalid nprobe: %q", val)
			}
			opts.NProbe = n
		default:
			return nil, fmt.Errorf("ivf: unknown factory option: %q", key)
		}
	}

	return New(dim, m, nlist, func(o *Options) { *o = opts })
}

// Options contains tuning knobs for the IVF backend.
type Options struct {
	// NProbe is the number of partitions probed per query.
	NProbe int

	// TrainIterations bounds the kmeans training loop.
	TrainIterations int

	// Seed makes centroid initialization deterministic.
	Seed int64
}

// DefaultOptions contains the default configuration for the IVF backend.
var DefaultOptions = Options{
	NProbe:          4,
	TrainIterations: 25,
	Seed:            1,
}

// IVF is a partitioned approximate nearest-neighbor backend.
type IVF struct {
	mu     sync.RWMutex
	m      metric.Metric
	dim    int
	nlist  int
	opts   Options
	ntotal int

	data      []float32 // row-major vectors by position
	centroids []float32 // trained coarse centroids (k*dim), nil until trained
	lists     [][]int64 // positions per partition
}

// New creates an IVF backend with nlist partitions.
// Partitions are trained from the first added batch; if that batch has
// fewer vectors than nlist, the partition count shrinks to fit.
func New(dim int, m metric.Metric, nlist int, optFns ...func(o *Options)) (*IVF, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("ivf: invalid dimension: %d", dim)
	}
	if nlist <= 0 {
		return nil, fmt.Errorf("ivf: invalid partition count: %d", nlist)
	}

	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	return &IVF{m: m, dim: dim, nlist: nlist, opts: opts}, nil
}

func (ix *IVF) Kind() uint8           { return persistence.BackendKindIVF }
func (ix *IVF) Metric() metric.Metric { return ix.m }
func (ix *IVF) Dimension() int        { return ix.dim }

// Ntotal returns the number of stored vectors.
func (ix *IVF) Ntotal() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.ntotal
}

// Add appends vectors in input order, assigning each to its partition.
// The whole batch is validated before any vector is stored.
func (ix *IVF) Add(vectors [][]float32) error {
	for _, v := range vectors {
		if len(v) == 0 {
			return backend.ErrEmptyVector
		}
		if len(v) != ix.dim {
			return &backend.ErrDimensionMismatch{Expected: ix.dim, Actual: len(v)}
		}
	}
	if len(vectors) == 0 {
		return nil
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	for _, v := range vectors {
		ix.data = append(ix.data, v...)
	}

	if ix.centroids == nil {
		// Train partitions from everything stored so far.
		rng := rand.New(rand.NewSource(ix.opts.Seed))
		ix.centroids = kmeans.Train(ix.data, ix.dim, ix.nlist, ix.opts.TrainIterations, rng)
		ix.lists = make([][]int64, len(ix.centroids)/ix.dim)
		for pos := 0; pos < ix.ntotal+len(vectors); pos++ {
			c := kmeans.Assign(ix.data[pos*ix.dim:(pos+1)*ix.dim], ix.centroids, ix.dim)
			ix.lists[c] = append(ix.lists[c], int64(pos))
		}
		ix.ntotal += len(vectors)
		return nil
	}

	for i := range vectors {
		pos := ix.ntotal + i
		c := kmeans.Assign(ix.data[pos*ix.dim:(pos+1)*ix.dim], ix.centroids, ix.dim)
		ix.lists[c] = append(ix.lists[c], int64(pos))
	}
	ix.ntotal += len(vectors)
	return nil
}

// Search probes the nprobe closest partitions and ranks their vectors.
func (ix *IVF) Search(query []float32, k int) ([]backend.SearchResult, error) {
	if k <= 0 {
		return nil, backend.ErrInvalidK
	}
	if len(query) != ix.dim {
		return nil, &backend.ErrDimensionMismatch{Expected: ix.dim, Actual: len(query)}
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.ntotal == 0 || ix.centroids == nil {
		return nil, nil
	}

	probes := kmeans.Closest(query, ix.centroids, ix.dim, ix.opts.NProbe)

	actualK := k
	if actualK > ix.ntotal {
		actualK = ix.ntotal
	}
	top := backend.NewCollector(ix.m, actualK)

	for _, p := range probes {
		for _, pos := range ix.lists[p] {
			vec := ix.data[pos*int64(ix.dim) : (pos+1)*int64(ix.dim)]
			top.Offer(pos, ix.m.Score(query, vec))
		}
	}
	return top.Results(), nil
}
