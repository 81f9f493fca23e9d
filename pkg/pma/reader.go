package pma

import (
	"encoding/binary"
	"hash"
	"hash/crc32"
	"io"

	"github.com/hocestnonsatis/parallel-mengene/pkg/chunker"
	"github.com/hocestnonsatis/parallel-mengene/pkg/pmerrors"
)

// maxCompressedFrameSize is the implausible-size ceiling ReadFrame rejects
// compressed_size against, mirroring the uncompressed_size check just above
// that check in ReadFrame. Compressed output can slightly exceed the uncompressed input on
// incompressible chunks, so the ceiling is a small multiple of
// chunker.MaxChunkSize rather than an exact match.
const maxCompressedFrameSize = 2 * chunker.MaxChunkSize

// Reader parses a PMA archive: it validates the fixed header and metadata
// eagerly in NewReader, then hands out ChunkFrames one at a time via
// ReadFrame in on-disk order. It does not decompress frames — that is left
// to the caller (pkg/pipeline), which may do so in parallel.
type Reader struct {
	r            io.Reader
	header       FixedHeader
	meta         Metadata
	hasher       hash.Hash32
	tee          io.Reader
	framesRead   uint32
	trailerCRC   bool
}

// NewReader reads and validates the fixed header and metadata section.
func NewReader(r io.Reader) (*Reader, error) {
	hasher := crc32.NewIEEE()
	tee := io.TeeReader(r, hasher)

	headerBuf := make([]byte, fixedHeaderSize)
	if _, err := io.ReadFull(tee, headerBuf); err != nil {
		return nil, pmerrors.Wrap(pmerrors.Corrupt, "read fixed header", err)
	}
	header, err := decodeFixedHeader(headerBuf)
	if err != nil {
		return nil, err
	}
	if header.Version != FormatVersion {
		return nil, pmerrors.New(pmerrors.UnsupportedVersion,
			"archive format version is not supported")
	}

	metaBuf := make([]byte, header.MetadataLength)
	if _, err := io.ReadFull(tee, metaBuf); err != nil {
		return nil, pmerrors.Wrap(pmerrors.Corrupt, "read metadata", err)
	}
	meta, err := decodeMetadata(metaBuf)
	if err != nil {
		return nil, err
	}

	return &Reader{
		r:          r,
		header:     header,
		meta:       meta,
		hasher:     hasher,
		tee:        tee,
		trailerCRC: header.Flags&FlagHasTrailerCRC != 0,
	}, nil
}

// Metadata returns the parsed metadata section.
func (rd *Reader) Metadata() Metadata { return rd.meta }

// HasTrailerCRC reports whether the archive carries a whole-archive CRC32
// trailer.
func (rd *Reader) HasTrailerCRC() bool { return rd.trailerCRC }

// ReadFrame reads the next ChunkFrame in on-disk order. It returns io.EOF
// once ChunkCount frames have been read (the trailer, if any, is consumed
// separately by VerifyTrailer).
func (rd *Reader) ReadFrame() (*ChunkFrame, error) {
	if rd.framesRead >= rd.meta.ChunkCount {
		return nil, io.EOF
	}

	headerBuf := make([]byte, chunkFrameHeaderSize)
	if _, err := io.ReadFull(rd.tee, headerBuf); err != nil {
		return nil, pmerrors.Wrap(pmerrors.Corrupt, "read chunk frame header", err)
	}
	uncompressedSize, compressedSize, err := decodeChunkFrameHeader(headerBuf)
	if err != nil {
		return nil, err
	}
	if uncompressedSize == 0 || uncompressedSize > chunker.MaxChunkSize {
		return nil, pmerrors.New(pmerrors.Corrupt, "implausible uncompressed_size in frame")
	}
	// compressedSize is attacker-controlled input read straight off the
	// wire; bound it before allocating so a truncated or malicious archive
	// cannot force a multi-gigabyte allocation ahead of io.ReadFull ever
	// getting a chance to fail on short input. maxCompressedFrameSize gives
	// headroom above MaxChunkSize for codec framing overhead on
	// incompressible chunks (gzip/zstd/lz4 headers, block boundaries).
	if compressedSize > maxCompressedFrameSize {
		return nil, pmerrors.New(pmerrors.Corrupt, "implausible compressed_size in frame")
	}

	payload := make([]byte, compressedSize)
	if compressedSize > 0 {
		if _, err := io.ReadFull(rd.tee, payload); err != nil {
			return nil, pmerrors.Wrap(pmerrors.Corrupt, "read chunk frame payload", err)
		}
	}

	crcBuf := make([]byte, 4)
	if _, err := io.ReadFull(rd.tee, crcBuf); err != nil {
		return nil, pmerrors.Wrap(pmerrors.Corrupt, "read chunk frame crc", err)
	}

	frame := &ChunkFrame{
		Index:            int(rd.framesRead),
		UncompressedSize: uncompressedSize,
		CompressedSize:   compressedSize,
		Payload:          payload,
		CRC32:            binary.LittleEndian.Uint32(crcBuf),
	}
	rd.framesRead++
	return frame, nil
}

// VerifyTrailer reads and checks the whole-archive CRC32 trailer, if the
// archive has one. It must be called only after every frame has been read
// via ReadFrame, and is a no-op (returning nil) when the archive has no
// trailer.
func (rd *Reader) VerifyTrailer() error {
	if !rd.trailerCRC {
		return nil
	}
	if rd.framesRead != rd.meta.ChunkCount {
		return pmerrors.New(pmerrors.Corrupt, "trailer verification requires all frames to be read first")
	}

	expected := rd.hasher.Sum32()
	buf := make([]byte, 4)
	if _, err := io.ReadFull(rd.r, buf); err != nil {
		return pmerrors.Wrap(pmerrors.Corrupt, "read trailer", err)
	}
	actual := binary.LittleEndian.Uint32(buf)
	if actual != expected {
		return pmerrors.New(pmerrors.Corrupt, "whole-archive CRC32 trailer mismatch")
	}
	return nil
}

// VerifyFrame checks a frame's CRC32 against the decompressed bytes it is
// supposed to represent.
func VerifyFrame(frame *ChunkFrame, decompressed []byte) error {
	if uint32(len(decompressed)) != frame.UncompressedSize {
		return pmerrors.New(pmerrors.Decompression, "decompressed size does not match frame header")
	}
	if crc32.ChecksumIEEE(decompressed) != frame.CRC32 {
		return pmerrors.New(pmerrors.Decompression, "chunk CRC32 mismatch")
	}
	return nil
}
