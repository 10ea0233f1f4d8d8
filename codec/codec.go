// Package codec provides block compression for persisted index blobs.
//
// Frame layout: [1 byte codec type][4 bytes uncompressed size, LE][payload].
// The type byte makes frames self-describing, so a namespace can mix codecs
// and a reader needs no external configuration.
package codec

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type identifies a compression algorithm.
type Type uint8

const (
	// None stores payloads uncompressed.
	None Type = 0
	// LZ4 favors speed over ratio; good for hot reload paths.
	LZ4 Type = 1
	// Zstd favors ratio over speed; good for cold remote storage.
	Zstd Type = 2
)

// String returns the codec name.
func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// ParseType maps a codec name back to its Type.
func ParseType(name string) (Type, error) {
	switch name {
	case "none", "":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return Zstd, nil
	default:
		return None, fmt.Errorf("codec: unknown type %q", name)
	}
}

const headerSize = 5

// maxFrameSize bounds the decoded size so a corrupt header cannot drive an
// unbounded allocation.
const maxFrameSize = 1 << 32

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

func frame(t Type, uncompressedLen int, payload []byte) []byte {
	out := make([]byte, headerSize, headerSize+len(payload))
	out[0] = byte(t)
	binary.LittleEndian.PutUint32(out[1:5], uint32(uncompressedLen))
	return append(out, payload...)
}

// Compress frames data with the requested codec. When compression does not
// shrink the payload the frame falls back to None, so callers always get the
// smaller representation.
func Compress(t Type, data []byte) ([]byte, error) {
	if t != None && len(data) > 0 {
		var compressed []byte
		switch t {
		case LZ4:
			buf := make([]byte, lz4.CompressBlockBound(len(data)))
			n, err := lz4.CompressBlock(data, buf, nil)
			if err != nil {
				return nil, fmt.Errorf("codec: lz4 compress: %w", err)
			}
			if n > 0 {
				compressed = buf[:n]
			}
		case Zstd:
			enc := getZstdEncoder()
			compressed = enc.EncodeAll(data, nil)
			zstdEncoderPool.Put(enc)
		default:
			return nil, fmt.Errorf("codec: unknown type %d", t)
		}
		if compressed != nil && len(compressed) < len(data) {
			return frame(t, len(data), compressed), nil
		}
	}
	return frame(None, len(data), data), nil
}

// Decompress unframes data produced by Compress.
func Decompress(data []byte) ([]byte, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("codec: frame truncated: %d bytes", len(data))
	}
	t := Type(data[0])
	size := binary.LittleEndian.Uint32(data[1:5])
	if uint64(size) > maxFrameSize {
		return nil, fmt.Errorf("codec: frame size %d exceeds limit", size)
	}
	payload := data[headerSize:]

	switch t {
	case None:
		if uint32(len(payload)) != size {
			return nil, fmt.Errorf("codec: frame size mismatch: header %d, payload %d", size, len(payload))
		}
		return payload, nil
	case LZ4:
		out := make([]byte, size)
		n, err := lz4.UncompressBlock(payload, out)
		if err != nil {
			return nil, fmt.Errorf("codec: lz4 decompress: %w", err)
		}
		if uint32(n) != size {
			return nil, fmt.Errorf("codec: lz4 size mismatch: header %d, got %d", size, n)
		}
		return out, nil
	case Zstd:
		dec := getZstdDecoder()
		out, err := dec.DecodeAll(payload, make([]byte, 0, size))
		zstdDecoderPool.Put(dec)
		if err != nil {
			return nil, fmt.Errorf("codec: zstd decompress: %w", err)
		}
		if uint32(len(out)) != size {
			return nil, fmt.Errorf("codec: zstd size mismatch: header %d, got %d", size, len(out))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("codec: unknown type %d", t)
	}
}
