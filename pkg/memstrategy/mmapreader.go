package memstrategy

import (
	"golang.org/x/exp/mmap"

	"github.com/hocestnonsatis/parallel-mengene/pkg/pmerrors"
)

// MappedFile is a memory-mapped read-only view of a file on disk. Chunk
// boundaries can be read directly out of the mapping with ReadAt, without
// an intervening copy into a stream buffer.
type MappedFile struct {
	ra   *mmap.ReaderAt
	size int64
}

// OpenMapped memory-maps path for reading.
func OpenMapped(path string) (*MappedFile, error) {
	ra, err := mmap.Open(path)
	if err != nil {
		return nil, pmerrors.Wrap(pmerrors.Io, "mmap open", err)
	}
	return &MappedFile{ra: ra, size: int64(ra.Len())}, nil
}

// Len returns the mapped file's size in bytes.
func (m *MappedFile) Len() int64 { return m.size }

// ReadRange copies out the bytes in [start, end) of the mapping. Unlike a
// raw slice over the mapping, this keeps the pipeline's chunk ownership
// model uniform across all three strategies (stream, buffer, mmap) — each
// hands the worker pool an independently owned []byte.
func (m *MappedFile) ReadRange(start, end int64) ([]byte, error) {
	if start < 0 || end < start || end > m.size {
		return nil, pmerrors.New(pmerrors.InvalidInput, "mmap range out of bounds")
	}
	buf := make([]byte, end-start)
	if _, err := m.ra.ReadAt(buf, start); err != nil {
		return nil, pmerrors.Wrap(pmerrors.Io, "mmap read", err)
	}
	return buf, nil
}

// Close unmaps the file.
func (m *MappedFile) Close() error {
	if err := m.ra.Close(); err != nil {
		return pmerrors.Wrap(pmerrors.Io, "mmap close", err)
	}
	return nil
}
