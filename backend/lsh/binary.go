package lsh

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
// Layout: metric u32, dim u32, bits u32, candidateFactor u32, seed u64,
// ntotal u64, hyperplanes, signatures, vectors. Hyperplanes are stored
// explicitly so a round-trip never depends on RNG reproducibility.
func (l *LSH) WriteTo(w io.Writer) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	cw := &countingWriter{w: w}
	bw := persistence.NewBinaryWriter(cw)

	for _, v := range []uint32{uint32(l.m), uint32(l.dim), uint32(l.opts.Bits), uint32(l.opts.CandidateFactor)} {
		if err := bw.WriteUint32(v); err != nil {
			return cw.n, err
		}
	}
	if err := bw.WriteUint64(uint64(l.opts.Seed)); err != nil {
		return cw.n, err
	}
	if err := bw.WriteUint64(uint64(l.ntotal)); err != nil {
		return cw.n, err
	}
	if err := bw.WriteFloat32Slice(l.hyperplanes); err != nil {
		return cw.n, err
	}
	if err := bw.WriteUint64Slice(l.signatures); err != nil {
		return cw.n, err
	}
	if err := bw.WriteFloat32Slice(l.data); err != nil {
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

	l, err := New(int(header[1]), metric.Metric(header[0]), func(o *Options) {
		o.Bits = int(header[2])
		o.CandidateFactor = int(header[3])
		o.Seed = int64(seed)
	})
	if err != nil {
		return nil, err
	}

	hyperplanes, err := br.ReadFloat32Slice(l.opts.Bits * l.dim)
	if err != nil {
		return nil, err
	}
	signatures, err := br.ReadUint64Slice(int(ntotal) * l.words)
	if err != nil {
		return nil, err
	}
	data, err := br.ReadFloat32Slice(int(ntotal) * l.dim)
	if err != nil {
		return nil, err
	}

	l.hyperplanes = hyperplanes
	l.signatures = signatures
	l.data = data
	l.ntotal = int(ntotal)
	return l, nil
}
