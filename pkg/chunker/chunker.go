// Package chunker implements the pure chunk-sizing policy: given an input
// size and worker count, decide how large each independently-compressible
// chunk should be.
package chunker

const (
	// MinChunkSize is the lower bound below which framing overhead would
	// dominate the chunk's own payload.
	MinChunkSize = 64 * 1024
	// MaxChunkSize is the upper bound above which a single chunk would
	// dwarf the benefit of parallelism and inflate peak RSS.
	MaxChunkSize = 16 * 1024 * 1024
)

// ChunkSize computes the target chunk size C for an input of inputSize
// bytes split across workerCount workers. The result is deterministic in
// its inputs and never depends on wall-clock or machine state.
func ChunkSize(inputSize int64, workerCount int) int {
	if inputSize <= MinChunkSize {
		return MinChunkSize
	}
	if workerCount < 1 {
		workerCount = 1
	}

	target := inputSize / int64(8*workerCount)
	target = roundToPowerOfTwo(target)

	if target < MinChunkSize {
		target = MinChunkSize
	}
	if target > MaxChunkSize {
		target = MaxChunkSize
	}
	return int(target)
}

// ChunkCount returns ceil(inputSize / chunkSize), or 0 for an empty input.
func ChunkCount(inputSize int64, chunkSize int) int {
	if inputSize == 0 {
		return 0
	}
	if chunkSize <= 0 {
		chunkSize = MinChunkSize
	}
	return int((inputSize + int64(chunkSize) - 1) / int64(chunkSize))
}

// Bounds returns the byte range [start, end) of chunk index i within an
// input of the given size, using chunkSize for every chunk but the last,
// which may be shorter.
func Bounds(inputSize int64, chunkSize, index int) (start, end int64) {
	start = int64(index) * int64(chunkSize)
	end = start + int64(chunkSize)
	if end > inputSize {
		end = inputSize
	}
	return start, end
}

// roundToPowerOfTwo rounds n up to the nearest power of two. n <= 1 rounds
// to 1.
func roundToPowerOfTwo(n int64) int64 {
	if n <= 1 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	n++
	return n
}
