package persistence

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression defines the algorithm used for the snapshot payload.
type Compression uint8

const (
	// CompressionNone stores the payload uncompressed.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast).
	CompressionLZ4 Compression = 1
	// CompressionZstd uses zstd block compression (better ratio).
	CompressionZstd Compression = 2
)

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// compressPayload compresses data with the given algorithm.
// Format: [UncompressedSize uint64][Data...]. If the algorithm cannot
// shrink the data, it is stored uncompressed under CompressionNone.
func compressPayload(data []byte, c Compression) ([]byte, Compression, error) {
	if c == CompressionNone || len(data) == 0 {
		return data, CompressionNone, nil
	}

	var compressed []byte
	switch c {
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, 0, err
		}
		if n == 0 {
			// Incompressible
			return data, CompressionNone, nil
		}
		compressed = buf[:n]
	case CompressionZstd:
		enc := getZstdEncoder()
		compressed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, 0, fmt.Errorf("unknown compression: %d", c)
	}

	if len(compressed) >= len(data) {
		return data, CompressionNone, nil
	}

	out := make([]byte, 8+len(compressed))
	binary.LittleEndian.PutUint64(out, uint64(len(data)))
	copy(out[8:], compressed)
	return out, c, nil
}

// decompressPayload reverses compressPayload.
func decompressPayload(data []byte, c Compression) ([]byte, error) {
	if c == CompressionNone {
		return data, nil
	}
	if len(data) < 8 {
		return nil, fmt.Errorf("compressed payload too short: %d bytes", len(data))
	}
	size := binary.LittleEndian.Uint64(data)
	body := data[8:]

	switch c {
	case CompressionLZ4:
		out := make([]byte, size)
		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, err
		}
		return out[:n], nil
	case CompressionZstd:
		dec := getZstdDecoder()
		out, err := dec.DecodeAll(body, make([]byte, 0, size))
		zstdDecoderPool.Put(dec)
		return out, err
	default:
		return nil, fmt.Errorf("unknown compression: %d", c)
	}
}
