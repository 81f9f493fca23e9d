package pma

import (
	"hash"
	"hash/crc32"
	"io"

	"github.com/hocestnonsatis/parallel-mengene/pkg/pmerrors"
)

// Writer serializes a PMA archive to an underlying io.Writer: fixed header,
// metadata, then ChunkFrames in the order WriteFrame is called (callers,
// not Writer, are responsible for calling it in strictly ascending index
// order — see pkg/pipeline's reorder buffer).
type Writer struct {
	w            io.Writer
	trailerCRC   bool
	hasher       hash.Hash32
	tee          io.Writer
	frameCount   uint32
	expectFrames uint32
	closed       bool
}

// NewWriter writes the fixed header and metadata immediately and returns a
// Writer ready to accept ChunkFrames via WriteFrame.
func NewWriter(w io.Writer, meta Metadata, trailerCRC bool) (*Writer, error) {
	metaBytes, err := encodeMetadata(meta)
	if err != nil {
		return nil, err
	}

	var flags uint16
	if trailerCRC {
		flags |= FlagHasTrailerCRC
	}
	header := FixedHeader{
		Magic:          Magic,
		Version:        FormatVersion,
		Flags:          flags,
		MetadataLength: uint32(len(metaBytes)),
	}

	hasher := crc32.NewIEEE()
	tee := io.MultiWriter(w, hasher)

	if _, err := tee.Write(encodeFixedHeader(header)); err != nil {
		return nil, pmerrors.Wrap(pmerrors.Io, "write fixed header", err)
	}
	if _, err := tee.Write(metaBytes); err != nil {
		return nil, pmerrors.Wrap(pmerrors.Io, "write metadata", err)
	}

	return &Writer{
		w:            w,
		trailerCRC:   trailerCRC,
		hasher:       hasher,
		tee:          tee,
		expectFrames: meta.ChunkCount,
	}, nil
}

// WriteFrame appends one ChunkFrame. The caller supplies the already
// compressed payload and the CRC32 of the pre-compression (uncompressed)
// bytes.
func (wr *Writer) WriteFrame(uncompressedSize uint32, payload []byte, crc uint32) error {
	if wr.closed {
		return pmerrors.New(pmerrors.Io, "write to closed archive writer")
	}
	header := encodeChunkFrameHeader(uncompressedSize, uint32(len(payload)))
	if _, err := wr.tee.Write(header); err != nil {
		return pmerrors.Wrap(pmerrors.Io, "write frame header", err)
	}
	if len(payload) > 0 {
		if _, err := wr.tee.Write(payload); err != nil {
			return pmerrors.Wrap(pmerrors.Io, "write frame payload", err)
		}
	}
	crcBuf := make([]byte, 4)
	putUint32LE(crcBuf, crc)
	if _, err := wr.tee.Write(crcBuf); err != nil {
		return pmerrors.Wrap(pmerrors.Io, "write frame crc", err)
	}
	wr.frameCount++
	return nil
}

// Close writes the trailer (if enabled) and marks the writer done. It does
// not flush or sync the underlying writer — that is the caller's
// responsibility, since Writer only knows about an io.Writer, not a file.
// pkg/pipeline's Coordinator calls vfs.SyncWriteCloser.Sync on the
// underlying temp file after Close and before renaming it into place.
func (wr *Writer) Close() error {
	if wr.closed {
		return nil
	}
	wr.closed = true

	if wr.frameCount != wr.expectFrames {
		return pmerrors.New(pmerrors.Io,
			"chunk count mismatch: wrote fewer or more frames than metadata declared")
	}

	if wr.trailerCRC {
		sum := wr.hasher.Sum32()
		buf := make([]byte, 4)
		putUint32LE(buf, sum)
		if _, err := wr.w.Write(buf); err != nil {
			return pmerrors.Wrap(pmerrors.Io, "write trailer crc", err)
		}
	}
	return nil
}

func putUint32LE(buf []byte, v uint32) {
	buf[0] = byte(v)
	buf[1] = byte(v >> 8)
	buf[2] = byte(v >> 16)
	buf[3] = byte(v >> 24)
}
