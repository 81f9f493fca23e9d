package pipeline

import (
	"bytes"
	"context"
	"testing"

	"github.com/hocestnonsatis/parallel-mengene/pkg/codec"
	"github.com/hocestnonsatis/parallel-mengene/pkg/vfs"
)

func roundTrip(t *testing.T, data []byte, opts Options) {
	t.Helper()
	fs := vfs.NewMemory()
	fs.Put("in.bin", data)
	c := New(fs)

	sum, err := c.CompressFile(context.Background(), "in.bin", "out.pma", opts)
	if err != nil {
		t.Fatalf("CompressFile: %v", err)
	}
	if sum.InputSize != int64(len(data)) {
		t.Fatalf("Summary.InputSize = %d, want %d", sum.InputSize, len(data))
	}

	if _, err := c.DecompressFile(context.Background(), "out.pma", "roundtrip.bin", Options{}); err != nil {
		t.Fatalf("DecompressFile: %v", err)
	}

	got, ok := fs.Get("roundtrip.bin")
	if !ok {
		t.Fatal("roundtrip.bin was not written")
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("round trip mismatch: got %d bytes, want %d bytes", len(got), len(data))
	}
}

func TestRoundTripAutoSelect(t *testing.T) {
	data := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog\n"), 5000)
	roundTrip(t, data, Options{WorkerCount: 4})
}

func TestRoundTripExplicitAlgorithm(t *testing.T) {
	data := make([]byte, 200*1024)
	for i := range data {
		data[i] = byte(i)
	}
	roundTrip(t, data, Options{WorkerCount: 3, Algorithm: codec.Zstd, Level: 5, NoTrailerCRC: false})
}

func TestRoundTripEmptyInput(t *testing.T) {
	roundTrip(t, []byte{}, Options{WorkerCount: 2})
}

func TestRoundTripSingleByte(t *testing.T) {
	roundTrip(t, []byte{0x42}, Options{WorkerCount: 2})
}

func TestRoundTripVerifyOnWrite(t *testing.T) {
	data := bytes.Repeat([]byte("verify-on-write payload "), 8000)
	roundTrip(t, data, Options{WorkerCount: 4, Algorithm: codec.LZ4, VerifyOnWrite: true})
}

func TestCompressCancelledContextLeavesNoOutput(t *testing.T) {
	fs := vfs.NewMemory()
	fs.Put("in.bin", bytes.Repeat([]byte("x"), 1024*1024))
	c := New(fs)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // already cancelled before the pipeline starts

	_, err := c.CompressFile(ctx, "in.bin", "out.pma", Options{WorkerCount: 2})
	if err == nil {
		t.Fatal("expected error for a pre-cancelled context")
	}
	if _, ok := fs.Get("out.pma"); ok {
		t.Fatal("cancelled compression must not leave a partial or complete output file")
	}
}

func TestDecompressDetectsFrameCorruption(t *testing.T) {
	fs := vfs.NewMemory()
	data := bytes.Repeat([]byte("corruption-detection-payload "), 2000)
	fs.Put("in.bin", data)
	c := New(fs)

	if _, err := c.CompressFile(context.Background(), "in.bin", "out.pma", Options{WorkerCount: 2, Algorithm: codec.Gzip}); err != nil {
		t.Fatalf("CompressFile: %v", err)
	}

	archive, ok := fs.Get("out.pma")
	if !ok {
		t.Fatal("out.pma missing")
	}
	corrupted := append([]byte(nil), archive...)
	// flip the last byte of the last frame's payload, which sits just before
	// that frame's 4-byte CRC32 and the 4-byte trailer
	corrupted[len(corrupted)-9] ^= 0xFF
	fs.Put("out.pma", corrupted)

	if _, err := c.DecompressFile(context.Background(), "out.pma", "roundtrip.bin", Options{}); err == nil {
		t.Fatal("expected decompression to detect corrupted frame data")
	}
}
