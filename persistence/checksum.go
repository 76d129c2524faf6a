package persistence

import (
	"fmt"
	"hash/crc32"
)

// Snapshot integrity uses CRC32 (IEEE polynomial): fast, hardware
// accelerated, and good at catching storage corruption. It is not a
// defense against tampering.

// Checksum computes the CRC32 checksum of data.
func Checksum(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// ChecksumMismatchError is returned when checksum verification fails.
type ChecksumMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch: expected 0x%08x, got 0x%08x", e.Expected, e.Actual)
}

// VerifyChecksum checks data against the expected CRC32 value.
func VerifyChecksum(data []byte, expected uint32) error {
	if actual := Checksum(data); actual != expected {
		return &ChecksumMismatchError{Expected: expected, Actual: actual}
	}
	return nil
}
