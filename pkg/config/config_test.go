package config

import (
	"path/filepath"
	"testing"

	"github.com/hocestnonsatis/parallel-mengene/pkg/codec"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.WorkerCount = 4
	cfg.Algorithm = "zstd"
	cfg.Level = 9

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !Exists(path) {
		t.Fatal("Exists should report true after Save")
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.WorkerCount != 4 || got.Algorithm != "zstd" || got.Level != 9 {
		t.Fatalf("Load round trip mismatch: %+v", got)
	}
}

func TestParseAlgorithm(t *testing.T) {
	cases := []struct {
		in   string
		want codec.Algorithm
		ok   bool
	}{
		{"auto", 0, true},
		{"", 0, true},
		{"lz4", codec.LZ4, true},
		{"gzip", codec.Gzip, true},
		{"zstd", codec.Zstd, true},
		{"brotli", 0, false},
	}
	for _, c := range cases {
		got, err := ParseAlgorithm(c.in)
		if c.ok && err != nil {
			t.Fatalf("ParseAlgorithm(%q): unexpected error %v", c.in, err)
		}
		if !c.ok && err == nil {
			t.Fatalf("ParseAlgorithm(%q): expected error", c.in)
		}
		if c.ok && got != c.want {
			t.Fatalf("ParseAlgorithm(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestExistsMissingFile(t *testing.T) {
	if Exists(filepath.Join(t.TempDir(), "nope.yaml")) {
		t.Fatal("Exists should report false for a missing file")
	}
}
