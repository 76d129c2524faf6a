package persistence

import "errors"

const (
	// MagicNumber identifies simidx snapshot files (ASCII: "SIM1").
	MagicNumber = 0x53494D31
	// Version is the current file format version (v1.0.0).
	Version = 0x00010000

	// Backend kinds
	BackendKindFlat = 1
	BackendKindIVF  = 2
	BackendKindLSH  = 3

	// HeaderSize is the encoded size of FileHeader in bytes.
	HeaderSize = 52
)

var (
	ErrInvalidMagic   = errors.New("invalid magic number")
	ErrInvalidVersion = errors.New("unsupported version")
	ErrInvalidBackend = errors.New("invalid backend kind")
)

// FileHeader is the fixed-size header at the start of every snapshot file.
type FileHeader struct {
	Magic       uint32 // 0x53494D31 ("SIM1")
	Version     uint32 // File format version
	BackendKind uint8  // 1=Flat, 2=IVF, 3=LSH
	Compression uint8  // See Compression constants
	Padding     [2]byte
	VectorCount uint64 // Total number of vectors
	Dimension   uint32 // Vector dimensionality
	Checksum    uint32 // CRC32 of the stored (possibly compressed) payload
	PayloadSize uint64 // Stored payload size in bytes
	Reserved    [16]byte
}
