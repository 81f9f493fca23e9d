package analyzer

import (
	"bytes"
	"testing"

	"github.com/hocestnonsatis/parallel-mengene/pkg/codec"
)

func TestAnalyzeRepetitiveDataLowEntropy(t *testing.T) {
	data := bytes.Repeat([]byte{'A'}, 4096)
	stats := Analyze(Sample(data), int64(len(data)))
	if stats.Entropy > 0.01 {
		t.Fatalf("expected ~0 entropy for repetitive data, got %f", stats.Entropy)
	}
}

func TestAnalyzeUniformRandomHighEntropy(t *testing.T) {
	data := make([]byte, 4096)
	for i := range data {
		data[i] = byte(i * 37 % 256)
	}
	stats := Analyze(Sample(data), int64(len(data)))
	if stats.Entropy < 7.0 {
		t.Fatalf("expected high entropy for near-uniform data, got %f", stats.Entropy)
	}
}

func TestAnalyzeZeroFile(t *testing.T) {
	data := make([]byte, 10*1024*1024)
	stats := Analyze(Sample(data), int64(len(data)))
	if stats.ZeroRatio != 1.0 {
		t.Fatalf("expected ZeroRatio 1.0, got %f", stats.ZeroRatio)
	}
	sel := Select(stats)
	if sel.Algorithm != codec.Zstd || sel.Level != 9 {
		t.Fatalf("expected Zstd level 9 for all-zero input, got %s level %d", sel.Algorithm, sel.Level)
	}
}

func TestAnalyzeTextSelectsZstd6(t *testing.T) {
	data := bytes.Repeat([]byte("hello world\n"), 100000)
	stats := Analyze(Sample(data), int64(len(data)))
	sel := Select(stats)
	if sel.Algorithm != codec.Zstd || sel.Level != 6 {
		t.Fatalf("expected Zstd level 6 for printable text, got %s level %d", sel.Algorithm, sel.Level)
	}
}

func TestSelectHighEntropyPicksLZ4(t *testing.T) {
	stats := Stats{Entropy: 8.0, ZeroRatio: 0.0, PrintableRatio: 0.0, SizeClass: Large}
	sel := Select(stats)
	if sel.Algorithm != codec.LZ4 || sel.Level != 1 {
		t.Fatalf("expected LZ4 level 1 for high entropy, got %s level %d", sel.Algorithm, sel.Level)
	}
}

func TestSelectHugeSizePicksLZ4Level3(t *testing.T) {
	stats := Stats{Entropy: 5.0, ZeroRatio: 0.1, PrintableRatio: 0.1, SizeClass: Huge}
	sel := Select(stats)
	if sel.Algorithm != codec.LZ4 || sel.Level != 3 {
		t.Fatalf("expected LZ4 level 3 for huge size class, got %s level %d", sel.Algorithm, sel.Level)
	}
}

func TestSampleBounded(t *testing.T) {
	data := make([]byte, SampleSize*2)
	s := Sample(data)
	if len(s) != SampleSize {
		t.Fatalf("Sample length = %d, want %d", len(s), SampleSize)
	}
}

func TestClassifySize(t *testing.T) {
	cases := []struct {
		size int64
		want SizeClass
	}{
		{100, Tiny},
		{2 * 1024 * 1024, Small},
		{100 * 1024 * 1024, Medium},
		{1024 * 1024 * 1024, Large},
		{5 * 1024 * 1024 * 1024, Huge},
	}
	for _, c := range cases {
		if got := ClassifySize(c.size); got != c.want {
			t.Fatalf("ClassifySize(%d) = %s, want %s", c.size, got, c.want)
		}
	}
}
