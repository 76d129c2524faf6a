package flat

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
// Layout: metric u32, dimension u32, count u64, vectors (count*dim f32).
func (f *Flat) WriteTo(w io.Writer) (int64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	cw := &countingWriter{w: w}
	bw := persistence.NewBinaryWriter(cw)

	if err := bw.WriteUint32(uint32(f.m)); err != nil {
		return cw.n, err
	}
	if err := bw.WriteUint32(uint32(f.dim)); err != nil {
		return cw.n, err
	}
	if err := bw.WriteUint64(uint64(f.ntotal)); err != nil {
		return cw.n, err
	}
	if err := bw.WriteFloat32Slice(f.data); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

func load(r io.Reader) (backend.Backend, error) {
	br := persistence.NewBinaryReader(r)

	m, err := br.ReadUint32()
	if err != nil {
		return nil, err
	}
	dim, err := br.ReadUint32()
	if err != nil {
		return nil, err
	}
	count, err := br.ReadUint64()
	if err != nil {
		return nil, err
	}
	data, err := br.ReadFloat32Slice(int(count) * int(dim))
	if err != nil {
		return nil, err
	}

	f, err := New(int(dim), metric.Metric(m))
	if err != nil {
		return nil, err
	}
	f.data = data
	f.ntotal = int(count)
	return f, nil
}
