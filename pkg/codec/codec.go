// Package codec provides a uniform compress/decompress interface over a
// single independent byte block for each supported algorithm. Every call is
// self-contained: no state is carried between chunks, so chunks can be
// compressed and decompressed in any order or in parallel.
package codec

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hocestnonsatis/parallel-mengene/pkg/pmerrors"
)

// Algorithm identifies one of the three archive-legal compressors. The set
// is closed: Metadata.algorithm_tag on disk only ever encodes one of these
// three values (see pkg/pma).
type Algorithm uint8

const (
	LZ4 Algorithm = iota + 1
	Gzip
	Zstd
)

func (a Algorithm) String() string {
	switch a {
	case LZ4:
		return "lz4"
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// LevelRange returns the caller-visible [min, max] level bounds for an
// algorithm, and its default level.
func LevelRange(a Algorithm) (min, max, def int, err error) {
	switch a {
	case LZ4:
		return 1, 16, 1, nil
	case Gzip:
		return 1, 9, 6, nil
	case Zstd:
		return 1, 22, 3, nil
	default:
		return 0, 0, 0, pmerrors.New(pmerrors.InvalidInput, fmt.Sprintf("unknown algorithm %d", a))
	}
}

// ValidateLevel checks level against the algorithm's documented range,
// substituting the algorithm's default when level is zero (unset).
func ValidateLevel(a Algorithm, level int) (int, error) {
	min, max, def, err := LevelRange(a)
	if err != nil {
		return 0, err
	}
	if level == 0 {
		return def, nil
	}
	if level < min || level > max {
		return 0, pmerrors.New(pmerrors.InvalidInput,
			fmt.Sprintf("%s level %d out of range [%d,%d]", a, level, min, max))
	}
	return level, nil
}

// Compress produces the compressed form of data using algorithm at level.
// Compressing an empty input returns an empty slice without invoking the
// underlying codec, matching §4.1's boundary rule.
func Compress(a Algorithm, level int, data []byte) ([]byte, error) {
	if len(data) == 0 {
		return []byte{}, nil
	}
	level, err := ValidateLevel(a, level)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	switch a {
	case LZ4:
		err = compressLZ4(&buf, data, level)
	case Gzip:
		err = compressGzip(&buf, data, level)
	case Zstd:
		err = compressZstd(&buf, data, level)
	default:
		return nil, pmerrors.New(pmerrors.InvalidInput, fmt.Sprintf("unknown algorithm %d", a))
	}
	if err != nil {
		return nil, pmerrors.Wrap(pmerrors.Compression, fmt.Sprintf("%s compress", a), err)
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress. expectedSize is an optional hint (0 means
// unknown) used to pre-size the output buffer; it is never trusted for
// correctness, only for allocation.
func Decompress(a Algorithm, compressed []byte, expectedSize int) ([]byte, error) {
	if len(compressed) == 0 {
		return []byte{}, nil
	}

	var (
		out []byte
		err error
	)
	switch a {
	case LZ4:
		out, err = decompressLZ4(compressed, expectedSize)
	case Gzip:
		out, err = decompressGzip(compressed, expectedSize)
	case Zstd:
		out, err = decompressZstd(compressed, expectedSize)
	default:
		return nil, pmerrors.New(pmerrors.InvalidInput, fmt.Sprintf("unknown algorithm %d", a))
	}
	if err != nil {
		return nil, pmerrors.Wrap(pmerrors.Decompression, fmt.Sprintf("%s decompress", a), err)
	}
	return out, nil
}

// --- Gzip: stdlib block API, levels map 1:1. ---

func compressGzip(w io.Writer, data []byte, level int) error {
	gw, err := gzip.NewWriterLevel(w, level)
	if err != nil {
		return err
	}
	if _, err := gw.Write(data); err != nil {
		gw.Close()
		return err
	}
	return gw.Close()
}

func decompressGzip(compressed []byte, expectedSize int) ([]byte, error) {
	gr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer gr.Close()
	out := make([]byte, 0, sizeHint(expectedSize, len(compressed)*3))
	buf := bytes.NewBuffer(out)
	if _, err := io.Copy(buf, gr); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// --- LZ4: pierrec/lz4/v4 block-oriented writer/reader. Spec levels 1-16
// bucket onto pierrec's Fast/Level1..Level9 constants. ---

func lz4Level(level int) lz4.CompressionLevel {
	switch {
	case level <= 1:
		return lz4.Fast
	case level >= 16:
		return lz4.Level9
	default:
		// Levels 2-15 spread linearly across Level1..Level9.
		step := (level - 2) * 9 / 14
		levels := []lz4.CompressionLevel{
			lz4.Level1, lz4.Level2, lz4.Level3, lz4.Level4, lz4.Level5,
			lz4.Level6, lz4.Level7, lz4.Level8, lz4.Level9,
		}
		if step >= len(levels) {
			step = len(levels) - 1
		}
		return levels[step]
	}
}

func compressLZ4(w io.Writer, data []byte, level int) error {
	zw := lz4.NewWriter(w)
	if err := zw.Apply(lz4.CompressionLevelOption(lz4Level(level))); err != nil {
		return err
	}
	if _, err := zw.Write(data); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

func decompressLZ4(compressed []byte, expectedSize int) ([]byte, error) {
	zr := lz4.NewReader(bytes.NewReader(compressed))
	out := bytes.NewBuffer(make([]byte, 0, sizeHint(expectedSize, len(compressed)*3)))
	if _, err := io.Copy(out, zr); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// --- Zstd: klauspost/compress/zstd. Spec levels 1-22 bucket onto the
// library's 4-step EncoderLevel enum. ---

func zstdLevel(level int) zstd.EncoderLevel {
	switch {
	case level <= 3:
		return zstd.SpeedFastest
	case level <= 9:
		return zstd.SpeedDefault
	case level <= 15:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}

func compressZstd(w io.Writer, data []byte, level int) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstdLevel(level)))
	if err != nil {
		return err
	}
	if _, err := enc.Write(data); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

func decompressZstd(compressed []byte, expectedSize int) ([]byte, error) {
	dec, err := zstd.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	out := bytes.NewBuffer(make([]byte, 0, sizeHint(expectedSize, len(compressed)*3)))
	if _, err := io.Copy(out, dec); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func sizeHint(expected, fallback int) int {
	if expected > 0 {
		return expected
	}
	return fallback
}
