package pipeline

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hocestnonsatis/parallel-mengene/pkg/codec"
	"github.com/hocestnonsatis/parallel-mengene/pkg/memstrategy"
)

// Options configures one CompressFile call. Zero values mean "use the
// coordinator's defaults": auto-detected algorithm and level, logical-core
// worker count, whole-archive trailer CRC on (spec §4.8's trailer_crc
// defaults to true, so the bool here is inverted to keep the zero value
// matching that default).
type Options struct {
	WorkerCount int
	Algorithm   codec.Algorithm // 0 means "select automatically"
	Level       int             // 0 means "algorithm default"
	// NoTrailerCRC disables the whole-archive CRC32 trailer. Leave false to
	// get spec §4.8's default of a trailer being written.
	NoTrailerCRC   bool
	InnerFormatTag uint8
	// MemoryBudgetFraction is the share of total physical RAM the run may
	// commit to mmap/buffer strategies before memstrategy falls back to
	// streaming. Zero means memstrategy.DefaultBudgetFraction.
	MemoryBudgetFraction float64
	// VerifyOnWrite re-decompresses each chunk immediately after compressing
	// it and compares the result against the source bytes before the frame
	// is appended to the archive, trading throughput for a stronger
	// per-chunk correctness guarantee than the CRC32 alone provides.
	VerifyOnWrite bool
	Progress      ProgressFunc
	// Logger receives structured Debug-level progress lines every
	// logInterval chunks. A nil Logger disables logging entirely — the
	// coordinator never requires one.
	Logger *logrus.Logger
}

// logInterval is how often (in chunks) the coordinator emits a debug log
// line, mirroring the original pipeline's periodic progress logging.
const logInterval = 64

// Summary reports what happened during a completed operation, per spec §4.8.
type Summary struct {
	InputSize   int64
	OutputSize  int64
	Elapsed     time.Duration
	Algorithm   codec.Algorithm
	Level       int
	WorkerCount int
	ChunkCount  int
	Strategy    memstrategy.Strategy
}

// Throughput returns InputSize bytes per second processed, or 0 for a
// zero-duration or empty run.
func (s Summary) Throughput() float64 {
	secs := s.Elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(s.InputSize) / secs
}

type chunkTask struct {
	index int
	data  []byte
}

type chunkResult struct {
	index            int
	uncompressedSize uint32
	payload          []byte
	crc32            uint32
	err              error
}

// frameTask is one parsed-but-not-yet-decompressed archive frame handed to
// a decompress worker.
type frameTask struct {
	index            int
	uncompressedSize uint32
	compressed       []byte
	expectedCRC      uint32
}
