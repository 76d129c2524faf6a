package ivf

import (
	"io"

	"github.com/simidx/simidx/backend"
	"github.com/simidx/simidx/metric"
	"github.com/simidx/simidx/persistence"
)

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

// WriteTo writes the backend payload in binary format.
// Layout: metric u32, dim u32, nlist u32, nprobe u32, seed u64, ntotal u64,
// centroid floats (centroidCount u64 first), vectors, per-position
// partition assignments.
func (ix *IVF) WriteTo(w io.Writer) (int64, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	cw := &countingWriter{w: w}
	bw := persistence.NewBinaryWriter(cw)

	for _, v := range []uint32{uint32(ix.m), uint32(ix.dim), uint32(ix.nlist), uint32(ix.opts.NProbe)} {
		if err := bw.WriteUint32(v); err != nil {
			return cw.n, err
		}
	}
	if err := bw.WriteUint64(uint64(ix.opts.Seed)); err != nil {
		return cw.n, err
	}
	if err := bw.WriteUint64(uint64(ix.ntotal)); err != nil {
		return cw.n, err
	}

	if err := bw.WriteUint64(uint64(len(ix.centroids))); err != nil {
		return cw.n, err
	}
	if err := bw.WriteFloat32Slice(ix.centroids); err != nil {
		return cw.n, err
	}
	if err := bw.WriteFloat32Slice(ix.data); err != nil {
		return cw.n, err
	}

	// Assignments are stored per position so lists rebuild deterministically.
	assignments := make([]uint64, ix.ntotal)
	for listID, list := range ix.lists {
		for _, pos := range list {
			assignments[pos] = uint64(listID)
		}
	}
	if err := bw.WriteUint64Slice(assignments); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

func load(r io.Reader) (backend.Backend, error) {
	br := persistence.NewBinaryReader(r)

	var header [4]uint32
	for i := range header {
		v, err := br.ReadUint32()
		if err != nil {
			return nil, err
		}
		header[i] = v
	}
	seed, err := br.ReadUint64()
	if err != nil {
		return nil, err
	}
	ntotal, err := br.ReadUint64()
	if err != nil {
		return nil, err
	}

	centroidLen, err := br.ReadUint64()
	if err != nil {
		return nil, err
	}
	centroids, err := br.ReadFloat32Slice(int(centroidLen))
	if err != nil {
		return nil, err
	}
	data, err := br.ReadFloat32Slice(int(ntotal) * int(header[1]))
	if err != nil {
		return nil, err
	}
	assignments, err := br.ReadUint64Slice(int(ntotal))
	if err != nil {
		return nil, err
	}

	ix, err := New(int(header[1]), metric.Metric(header[0]), int(header[2]), func(o *Options) {
		o.NProbe = int(header[3])
		o.Seed = int64(seed)
	})
	if err != nil {
		return nil, err
	}

	ix.ntotal = int(ntotal)
	ix.centroids = centroids
	ix.data = data
	if centroidLen > 0 {
		ix.lists = make([][]int64, int(centroidLen)/ix.dim)
		for pos, listID := range assignments {
			ix.lists[listID] = append(ix.lists[listID], int64(pos))
		}
	}
	return ix, nil
}
