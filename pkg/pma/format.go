// Package pma implements the on-disk Parallel-Mengene Archive container:
// a fixed header, a packed metadata section, one ChunkFrame per compressed
// chunk in ascending index order, and an optional whole-archive CRC32
// trailer. The byte layout here is normative (see spec §6) — every field,
// width, and ordering must match exactly for archives to be portable.
package pma

import (
	"encoding/binary"
	"fmt"

	"github.com/hocestnonsatis/parallel-mengene/pkg/pmerrors"
)

// Magic is the four-byte literal every archive begins with.
var Magic = [4]byte{'P', 'M', 'A', 0x01}

// FormatVersion is the only version this implementation writes or accepts.
const FormatVersion uint16 = 1

// Flag bits within FixedHeader.Flags.
const (
	FlagHasTrailerCRC uint16 = 1 << 0
)

// Inner-format tags recorded in Metadata.InnerFormatTag.
const (
	InnerFormatRaw uint8 = 0
	InnerFormatTar uint8 = 1
)

// Algorithm tags as written to Metadata.AlgorithmTag. These mirror
// pkg/codec.Algorithm's values but are redefined here so the wire format
// does not silently change if the codec package's iota ordering ever does.
const (
	AlgorithmTagLZ4  uint8 = 1
	AlgorithmTagGzip uint8 = 2
	AlgorithmTagZstd uint8 = 3
)

// FixedHeader is the archive's first 12 bytes.
type FixedHeader struct {
	Magic          [4]byte
	Version        uint16
	Flags          uint16
	MetadataLength uint32
}

const fixedHeaderSize = 4 + 2 + 2 + 4

func encodeFixedHeader(h FixedHeader) []byte {
	buf := make([]byte, fixedHeaderSize)
	copy(buf[0:4], h.Magic[:])
	binary.LittleEndian.PutUint16(buf[4:6], h.Version)
	binary.LittleEndian.PutUint16(buf[6:8], h.Flags)
	binary.LittleEndian.PutUint32(buf[8:12], h.MetadataLength)
	return buf
}

func decodeFixedHeader(buf []byte) (FixedHeader, error) {
	var h FixedHeader
	if len(buf) < fixedHeaderSize {
		return h, pmerrors.New(pmerrors.Corrupt, "truncated fixed header")
	}
	copy(h.Magic[:], buf[0:4])
	if h.Magic != Magic {
		return h, pmerrors.New(pmerrors.Corrupt, "magic mismatch")
	}
	h.Version = binary.LittleEndian.Uint16(buf[4:6])
	h.Flags = binary.LittleEndian.Uint16(buf[6:8])
	h.MetadataLength = binary.LittleEndian.Uint32(buf[8:12])
	return h, nil
}

// Metadata is the archive's packed metadata section. Its serialized form
// may carry trailing bytes beyond what this struct's fields fill — those
// must be ignored, permitting forward-compatible extensions.
type Metadata struct {
	AlgorithmTag    uint8
	Level           uint8
	WorkerCount     uint16
	ChunkCount      uint32
	OriginalSize    uint64
	CreatedUnixSecs uint64
	InnerFormatTag  uint8
	Filename        string
}

// minMetadataSize is the size of every fixed field before the variable
// filename bytes.
const minMetadataSize = 1 + 1 + 2 + 4 + 8 + 8 + 1 + 2

func encodeMetadata(m Metadata) ([]byte, error) {
	nameBytes := []byte(m.Filename)
	if len(nameBytes) > 0xFFFF {
		return nil, pmerrors.New(pmerrors.InvalidInput, "filename too long")
	}

	buf := make([]byte, minMetadataSize+len(nameBytes))
	buf[0] = m.AlgorithmTag
	buf[1] = m.Level
	binary.LittleEndian.PutUint16(buf[2:4], m.WorkerCount)
	binary.LittleEndian.PutUint32(buf[4:8], m.ChunkCount)
	binary.LittleEndian.PutUint64(buf[8:16], m.OriginalSize)
	binary.LittleEndian.PutUint64(buf[16:24], m.CreatedUnixSecs)
	buf[24] = m.InnerFormatTag
	binary.LittleEndian.PutUint16(buf[25:27], uint16(len(nameBytes)))
	copy(buf[27:], nameBytes)
	return buf, nil
}

func decodeMetadata(buf []byte) (Metadata, error) {
	var m Metadata
	if len(buf) < minMetadataSize {
		return m, pmerrors.New(pmerrors.Corrupt, "truncated metadata")
	}
	m.AlgorithmTag = buf[0]
	m.Level = buf[1]
	m.WorkerCount = binary.LittleEndian.Uint16(buf[2:4])
	m.ChunkCount = binary.LittleEndian.Uint32(buf[4:8])
	m.OriginalSize = binary.LittleEndian.Uint64(buf[8:16])
	m.CreatedUnixSecs = binary.LittleEndian.Uint64(buf[16:24])
	m.InnerFormatTag = buf[24]
	nameLen := int(binary.LittleEndian.Uint16(buf[25:27]))
	if len(buf) < minMetadataSize+nameLen {
		return m, pmerrors.New(pmerrors.Corrupt, "truncated metadata filename")
	}
	m.Filename = string(buf[27 : 27+nameLen])
	// Any bytes beyond 27+nameLen are forward-compatible extensions and
	// are intentionally ignored.
	return m, nil
}

// ChunkFrame is one compressed chunk together with its sizes and CRC32,
// as it appears on disk (or as parsed from disk before decompression).
type ChunkFrame struct {
	Index            int
	UncompressedSize uint32
	CompressedSize   uint32
	Payload          []byte
	CRC32            uint32
}

const chunkFrameHeaderSize = 4 + 4 // uncompressed_size + compressed_size

func encodeChunkFrameHeader(uncompressedSize, compressedSize uint32) []byte {
	buf := make([]byte, chunkFrameHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], uncompressedSize)
	binary.LittleEndian.PutUint32(buf[4:8], compressedSize)
	return buf
}

func decodeChunkFrameHeader(buf []byte) (uncompressedSize, compressedSize uint32, err error) {
	if len(buf) < chunkFrameHeaderSize {
		return 0, 0, pmerrors.New(pmerrors.Corrupt, "truncated chunk frame header")
	}
	return binary.LittleEndian.Uint32(buf[0:4]), binary.LittleEndian.Uint32(buf[4:8]), nil
}

// AlgorithmTagName renders a tag for error messages.
func AlgorithmTagName(tag uint8) string {
	switch tag {
	case AlgorithmTagLZ4:
		return "lz4"
	case AlgorithmTagGzip:
		return "gzip"
	case AlgorithmTagZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", tag)
	}
}
