// Package persistence provides binary serialization for index snapshots.
//
// A snapshot is a fixed-size header followed by a backend-defined payload.
// The payload may be block-compressed and is integrity-checked with CRC32.
package persistence

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unsafe"
)

// BinaryWriter writes backend payloads in optimized binary format.
type BinaryWriter struct {
	w         io.Writer
	byteOrder binary.ByteOrder
}

// NewBinaryWriter creates a new binary writer.
func NewBinaryWriter(w io.Writer) *BinaryWriter {
	return &BinaryWriter{
		w:         w,
		byteOrder: binary.LittleEndian, // Native on x86/ARM
	}
}

// WriteUint32 writes a single uint32.
func (bw *BinaryWriter) WriteUint32(v uint32) error {
	return binary.Write(bw.w, bw.byteOrder, v)
}

// WriteUint64 writes a single uint64.
func (bw *BinaryWriter) WriteUint64(v uint64) error {
	return binary.Write(bw.w, bw.byteOrder, v)
}

// WriteFloat32Slice writes a float32 slice as raw bytes (no allocation).
func (bw *BinaryWriter) WriteFloat32Slice(vec []float32) error {
	if len(vec) == 0 {
		return nil
	}
	byteSlice := unsafe.Slice((*byte)(unsafe.Pointer(&vec[0])), len(vec)*4)
	_, err := bw.w.Write(byteSlice)
	return err
}

// WriteUint64Slice writes a uint64 slice as raw bytes.
func (bw *BinaryWriter) WriteUint64Slice(slice []uint64) error {
	if len(slice) == 0 {
		return nil
	}
	byteSlice := unsafe.Slice((*byte)(unsafe.Pointer(&slice[0])), len(slice)*8)
	_, err := bw.w.Write(byteSlice)
	return err
}

// WriteInt64Slice writes an int64 slice as raw bytes.
func (bw *BinaryWriter) WriteInt64Slice(slice []int64) error {
	if len(slice) == 0 {
		return nil
	}
	byteSlice := unsafe.Slice((*byte)(unsafe.Pointer(&slice[0])), len(slice)*8)
	_, err := bw.w.Write(byteSlice)
	return err
}

// BinaryReader reads backend payloads written by BinaryWriter.
type BinaryReader struct {
	r         io.Reader
	byteOrder binary.ByteOrder
}

// NewBinaryReader creates a new binary reader.
func NewBinaryReader(r io.Reader) *BinaryReader {
	return &BinaryReader{
		r:         r,
		byteOrder: binary.LittleEndian,
	}
}

// ReadUint32 reads a single uint32.
func (br *BinaryReader) ReadUint32() (uint32, error) {
	var v uint32
	err := binary.Read(br.r, br.byteOrder, &v)
	return v, err
}

// ReadUint64 reads a single uint64.
func (br *BinaryReader) ReadUint64() (uint64, error) {
	var v uint64
	err := binary.Read(br.r, br.byteOrder, &v)
	return v, err
}

// ReadFloat32Slice reads count float32 values.
func (br *BinaryReader) ReadFloat32Slice(count int) ([]float32, error) {
	if count == 0 {
		return nil, nil
	}
	vec := make([]float32, count)
	byteSlice := unsafe.Slice((*byte)(unsafe.Pointer(&vec[0])), count*4)
	if _, err := io.ReadFull(br.r, byteSlice); err != nil {
		return nil, err
	}
	return vec, nil
}

// ReadUint64Slice reads count uint64 values.
func (br *BinaryReader) ReadUint64Slice(count int) ([]uint64, error) {
	if count == 0 {
		return nil, nil
	}
	slice := make([]uint64, count)
	byteSlice := unsafe.Slice((*byte)(unsafe.Pointer(&slice[0])), count*8)
	if _, err := io.ReadFull(br.r, byteSlice); err != nil {
		return nil, err
	}
	return slice, nil
}

// ReadInt64Slice reads count int64 values.
func (br *BinaryReader) ReadInt64Slice(count int) ([]int64, error) {
	if count == 0 {
		return nil, nil
	}
	slice := make([]int64, count)
	byteSlice := unsafe.Slice((*byte)(unsafe.Pointer(&slice[0])), count*8)
	if _, err := io.ReadFull(br.r, byteSlice); err != nil {
		return nil, err
	}
	return slice, nil
}

// WriteSnapshot writes a complete snapshot: header + checksummed payload.
// The header's Magic, Version, Compression, Checksum and PayloadSize fields
// are filled in here; the caller provides BackendKind, VectorCount and
// Dimension.
func WriteSnapshot(w io.Writer, header *FileHeader, payload []byte, c Compression) error {
	stored, used, err := compressPayload(payload, c)
	if err != nil {
		return err
	}

	header.Magic = MagicNumber
	header.Version = Version
	header.Compression = uint8(used)
	header.Checksum = Checksum(stored)
	header.PayloadSize = uint64(len(stored))

	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return err
	}
	_, err = w.Write(stored)
	return err
}

// ReadSnapshot reads a snapshot, verifies its checksum and returns the
// header together with the decompressed payload.
func ReadSnapshot(r io.Reader) (*FileHeader, []byte, error) {
	var header FileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, nil, err
	}
	if header.Magic != MagicNumber {
		return nil, nil, fmt.Errorf("%w: got 0x%08x", ErrInvalidMagic, header.Magic)
	}
	if header.Version != Version {
		return nil, nil, fmt.Errorf("%w: got 0x%08x", ErrInvalidVersion, header.Version)
	}

	stored := make([]byte, header.PayloadSize)
	if _, err := io.ReadFull(r, stored); err != nil {
		return nil, nil, err
	}
	if err := VerifyChecksum(stored, header.Checksum); err != nil {
		return nil, nil, err
	}

	payload, err := decompressPayload(stored, Compression(header.Compression))
	if err != nil {
		return nil, nil, err
	}
	return &header, payload, nil
}

// EncodePayload runs writeFunc against an in-memory buffer and returns the bytes.
func EncodePayload(writeFunc func(io.Writer) error) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeFunc(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveToFile atomically writes a snapshot file.
func SaveToFile(filename string, writeFunc func(io.Writer) error) error {
	dir := filepath.Dir(filename)
	base := filepath.Base(filename)

	// Write to a temp file in the same directory to ensure rename is atomic.
	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	_ = tmp.Chmod(0644)

	buf := bufio.NewWriterSize(tmp, 256*1024)
	if err := writeFunc(buf); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, filename); err != nil {
		return err
	}

	// Best-effort: fsync the directory so the rename is durable on POSIX.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}

	tmpName = ""
	return nil
}

// LoadFromFile reads a snapshot file through a buffered reader.
func LoadFromFile(filename string, readFunc func(io.Reader) error) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	return readFunc(bufio.NewReaderSize(f, 256*1024))
}
