package chunker

import "testing"

func TestChunkSizeBelowLowerBound(t *testing.T) {
	if got := ChunkSize(1024, 4); got != MinChunkSize {
		t.Fatalf("ChunkSize(1024, 4) = %d, want %d", got, MinChunkSize)
	}
}

func TestChunkSizeUpperBound(t *testing.T) {
	got := ChunkSize(100*1024*1024*1024, 1)
	if got > MaxChunkSize {
		t.Fatalf("ChunkSize exceeded max: %d > %d", got, MaxChunkSize)
	}
	if got != MaxChunkSize {
		t.Fatalf("ChunkSize(100GiB, 1) = %d, want %d", got, MaxChunkSize)
	}
}

func TestChunkSizeIsPowerOfTwo(t *testing.T) {
	for _, size := range []int64{2 * 1024 * 1024, 50 * 1024 * 1024, 500 * 1024 * 1024} {
		got := ChunkSize(size, 4)
		if got&(got-1) != 0 {
			t.Fatalf("ChunkSize(%d, 4) = %d is not a power of two", size, got)
		}
	}
}

func TestChunkCountExactMultiple(t *testing.T) {
	c := 128 * 1024
	if got := ChunkCount(int64(c), c); got != 1 {
		t.Fatalf("ChunkCount(chunkSize, chunkSize) = %d, want 1", got)
	}
	if got := ChunkCount(int64(c)+1, c); got != 2 {
		t.Fatalf("ChunkCount(chunkSize+1, chunkSize) = %d, want 2", got)
	}
}

func TestChunkCountEmpty(t *testing.T) {
	if got := ChunkCount(0, MinChunkSize); got != 0 {
		t.Fatalf("ChunkCount(0, ...) = %d, want 0", got)
	}
}

func TestBoundsLastChunkShorter(t *testing.T) {
	c := 128 * 1024
	total := int64(c) + 1
	start, end := Bounds(total, c, 1)
	if start != int64(c) || end != total {
		t.Fatalf("Bounds(last chunk) = [%d,%d), want [%d,%d)", start, end, c, total)
	}
}
