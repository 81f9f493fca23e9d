// Package memstrategy decides how a file should be read for compression or
// decompression — memory-mapped, buffered, or streamed — based on its size
// and the machine's available memory, and provides a preflight budget check
// so a run fails fast instead of being killed by the OOM killer mid-pipeline.
package memstrategy

import (
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/hocestnonsatis/parallel-mengene/pkg/pmerrors"
)

// Strategy names the read path pkg/pipeline should use for a given input.
type Strategy int

const (
	// StreamStrategy reads the input incrementally, chunk by chunk, and
	// never holds more than a small multiple of one chunk in memory.
	StreamStrategy Strategy = iota
	// BufferStrategy reads the whole input into a single in-memory byte
	// slice up front.
	BufferStrategy
	// MmapStrategy memory-maps the input file and copies each chunk's byte
	// range out of the mapping as it is read, avoiding a full-file copy into
	// the heap. Workers receive those per-chunk copies, not slices of the
	// mapping itself.
	MmapStrategy
)

func (s Strategy) String() string {
	switch s {
	case StreamStrategy:
		return "stream"
	case BufferStrategy:
		return "buffer"
	case MmapStrategy:
		return "mmap"
	default:
		return "unknown"
	}
}

// bufferCeiling is the threshold below which a small input is simply
// buffered whole; above it the decision is mmap-vs-stream against the
// memory budget alone, per spec §4.4's N-vs-M table.
const bufferCeiling = 8 * 1024 * 1024 // 8 MiB

// DefaultBudgetFraction is the share of total physical RAM a single run is
// allowed to commit to in-memory buffers when the caller (config.Config or
// pipeline.Options) leaves the fraction unset (zero or negative).
const DefaultBudgetFraction = 0.25

func resolveFraction(fraction float64) float64 {
	if fraction <= 0 {
		return DefaultBudgetFraction
	}
	return fraction
}

// Choose picks a read strategy for an input of the given size. It never
// consults the caller's requested worker count: the memory strategy is a
// function of the file alone, workers only affect how many chunks are
// in flight for a given strategy (see pkg/pipeline). fraction is the share
// of availableMemory the run may commit to mmap/buffer strategies before
// falling back to streaming; pass 0 to use DefaultBudgetFraction.
func Choose(inputSize int64, availableMemory uint64, fraction float64) Strategy {
	if inputSize <= bufferCeiling {
		return BufferStrategy
	}
	budget := uint64(float64(availableMemory) * resolveFraction(fraction))
	if uint64(inputSize) <= budget {
		return MmapStrategy
	}
	return StreamStrategy
}

// TotalMemory reports total physical RAM in bytes, via gopsutil.
func TotalMemory() (uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, pmerrors.Wrap(pmerrors.ResourceExhausted, "read system memory stats", err)
	}
	return vm.Total, nil
}

// ChooseForFile is Choose wired to the live system memory reading, for
// callers that don't already have a memory figure handy (mainly tests pass
// an explicit availableMemory to Choose instead). fraction is forwarded to
// Choose; pass 0 to use DefaultBudgetFraction.
func ChooseForFile(inputSize int64, fraction float64) (Strategy, error) {
	total, err := TotalMemory()
	if err != nil {
		return StreamStrategy, err
	}
	return Choose(inputSize, total, fraction), nil
}

// CheckBudget returns an error if committing estimatedBytes of in-memory
// buffers (across all in-flight chunks and worker output queues) would
// exceed the run's memory budget. Call this once before starting the
// pipeline, sized to worker count * chunk size * safety factor, so an
// oversized run is rejected up front rather than thrashing or getting
// OOM-killed partway through. fraction is the configured share of total RAM
// the run may use; pass 0 to use DefaultBudgetFraction.
func CheckBudget(estimatedBytes uint64, fraction float64) error {
	total, err := TotalMemory()
	if err != nil {
		return err
	}
	budget := uint64(float64(total) * resolveFraction(fraction))
	if estimatedBytes > budget {
		return pmerrors.New(pmerrors.ResourceExhausted,
			"estimated memory usage exceeds the run's memory budget")
	}
	return nil
}
