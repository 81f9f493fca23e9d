// Package analyzer computes lightweight content statistics over a bounded
// prefix of an input and turns them into an algorithm/level selection.
package analyzer

import (
	"math"

	"github.com/hocestnonsatis/parallel-mengene/pkg/codec"
)

// SampleSize is the largest prefix analyzed; the full input is used when
// shorter.
const SampleSize = 64 * 1024

// SizeClass buckets an input by size for the decision table.
type SizeClass int

const (
	Tiny SizeClass = iota // < 1 MiB
	Small                 // < 16 MiB
	Medium                // < 256 MiB
	Large                 // < 4 GiB
	Huge                  // >= 4 GiB
)

func (c SizeClass) String() string {
	switch c {
	case Tiny:
		return "tiny"
	case Small:
		return "small"
	case Medium:
		return "medium"
	case Large:
		return "large"
	default:
		return "huge"
	}
}

// ClassifySize buckets an input size in bytes.
func ClassifySize(size int64) SizeClass {
	const (
		mib = 1024 * 1024
		gib = 1024 * mib
	)
	switch {
	case size < mib:
		return Tiny
	case size < 16*mib:
		return Small
	case size < 256*mib:
		return Medium
	case size < 4*gib:
		return Large
	default:
		return Huge
	}
}

// Stats holds the byte-level measurements over the analyzed sample.
type Stats struct {
	Entropy         float64
	PrintableRatio  float64
	ZeroRatio       float64
	SizeClass       SizeClass
}

// Analyze computes Stats over sample, which the caller has already bounded
// to at most SampleSize bytes (or the full input, if smaller). fullSize is
// the size of the whole input, used for size-class classification.
func Analyze(sample []byte, fullSize int64) Stats {
	if len(sample) == 0 {
		return Stats{SizeClass: ClassifySize(fullSize)}
	}

	var counts [256]int
	var printable, zero int
	for _, b := range sample {
		counts[b]++
		if b == 0 {
			zero++
		}
		if isPrintable(b) {
			printable++
		}
	}

	n := float64(len(sample))
	var entropy float64
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		entropy -= p * math.Log2(p)
	}

	return Stats{
		Entropy:        entropy,
		PrintableRatio: float64(printable) / n,
		ZeroRatio:      float64(zero) / n,
		SizeClass:      ClassifySize(fullSize),
	}
}

func isPrintable(b byte) bool {
	return (b >= 0x09 && b <= 0x0D) || (b >= 0x20 && b <= 0x7E)
}

// Selection is the outcome of algorithm selection: the algorithm/level
// chosen and, for observability, which rule of the decision table fired.
type Selection struct {
	Algorithm codec.Algorithm
	Level     int
	Reason    string
}

// Select applies the fixed, first-match decision table over stats. Selection
// is advisory: callers may always override the algorithm and level.
func Select(s Stats) Selection {
	switch {
	case s.Entropy >= 7.8 && s.ZeroRatio < 0.02:
		return Selection{codec.LZ4, 1, "high entropy, already near-random"}
	case s.PrintableRatio >= 0.85 && s.SizeClass <= Medium:
		return Selection{codec.Zstd, 6, "mostly printable text, moderate size"}
	case s.ZeroRatio >= 0.30 || s.Entropy <= 3.0:
		return Selection{codec.Zstd, 9, "highly redundant content"}
	case s.SizeClass == Huge:
		return Selection{codec.LZ4, 3, "huge input, favor throughput"}
	default:
		return Selection{codec.Zstd, 3, "default balance"}
	}
}

// Sample returns the prefix of data to analyze: the full input when it is
// no larger than SampleSize, or the first SampleSize bytes otherwise.
func Sample(data []byte) []byte {
	if len(data) <= SampleSize {
		return data
	}
	return data[:SampleSize]
}
