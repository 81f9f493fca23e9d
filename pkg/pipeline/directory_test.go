package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hocestnonsatis/parallel-mengene/pkg/pma"
	"github.com/hocestnonsatis/parallel-mengene/pkg/tarpack"
	"github.com/hocestnonsatis/parallel-mengene/pkg/vfs"
)

// TestDirectoryArchiveRoundTrip exercises the tarpack + pipeline + pma
// InnerFormatTag combination end to end: pack a directory tree into a TAR
// stream, compress that stream with InnerFormatTag set to InnerFormatTar,
// decompress it, and unpack the recovered TAR back into a directory tree
// identical to the source.
func TestDirectoryArchiveRoundTrip(t *testing.T) {
	srcDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(srcDir, "a.txt"), []byte("0123456789"), 0o644); err != nil {
		t.Fatalf("write a.txt: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(srcDir, "b"), 0o755); err != nil {
		t.Fatalf("mkdir b: %v", err)
	}
	payload := bytes.Repeat([]byte{0xAB, 0xCD}, 512*1024)
	if err := os.WriteFile(filepath.Join(srcDir, "b", "c.bin"), payload, 0o644); err != nil {
		t.Fatalf("write c.bin: %v", err)
	}

	workDir := t.TempDir()
	tarPath := filepath.Join(workDir, "packed.tar")
	tarFile, err := os.Create(tarPath)
	if err != nil {
		t.Fatalf("create tar: %v", err)
	}
	if err := tarpack.Pack(tarFile, srcDir); err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if err := tarFile.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}

	archivePath := filepath.Join(workDir, "packed.pma")
	coordinator := New(vfs.OS{})
	sum, err := coordinator.CompressFile(context.Background(), tarPath, archivePath, Options{
		WorkerCount:    2,
		InnerFormatTag: pma.InnerFormatTar,
		NoTrailerCRC:   false,
	})
	if err != nil {
		t.Fatalf("CompressFile: %v", err)
	}
	if sum.InputSize == 0 {
		t.Fatal("Summary.InputSize = 0, want the packed tar size")
	}

	f, err := os.Open(archivePath)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	reader, err := pma.NewReader(f)
	if err != nil {
		f.Close()
		t.Fatalf("NewReader: %v", err)
	}
	f.Close()
	if reader.Metadata().InnerFormatTag != pma.InnerFormatTar {
		t.Fatalf("InnerFormatTag = %d, want InnerFormatTar", reader.Metadata().InnerFormatTag)
	}

	recoveredTarPath := filepath.Join(workDir, "recovered.tar")
	if _, err := coordinator.DecompressFile(context.Background(), archivePath, recoveredTarPath, Options{}); err != nil {
		t.Fatalf("DecompressFile: %v", err)
	}

	destDir := t.TempDir()
	recoveredTar, err := os.Open(recoveredTarPath)
	if err != nil {
		t.Fatalf("open recovered tar: %v", err)
	}
	defer recoveredTar.Close()
	if err := tarpack.Unpack(recoveredTar, destDir); err != nil {
		t.Fatalf("Unpack: %v", err)
	}

	gotA, err := os.ReadFile(filepath.Join(destDir, "a.txt"))
	if err != nil {
		t.Fatalf("read recovered a.txt: %v", err)
	}
	if string(gotA) != "0123456789" {
		t.Fatalf("a.txt = %q, want %q", gotA, "0123456789")
	}

	gotC, err := os.ReadFile(filepath.Join(destDir, "b", "c.bin"))
	if err != nil {
		t.Fatalf("read recovered b/c.bin: %v", err)
	}
	if !bytes.Equal(gotC, payload) {
		t.Fatalf("b/c.bin round trip mismatch: got %d bytes, want %d bytes", len(gotC), len(payload))
	}
}
