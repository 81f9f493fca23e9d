package vfs

import (
	"bytes"
	"io"
	"sync"

	"github.com/hocestnonsatis/parallel-mengene/pkg/pmerrors"
)

// Memory is an in-memory FileSystem for tests, grounded on the same
// "wrap a filesystem entirely in a map" shape absfs-compressfs's memfs.go
// uses, narrowed to the read/write/stat/remove surface FileSystem needs.
type Memory struct {
	mu    sync.Mutex
	files map[string][]byte
	tmp   map[string][]byte
	tmpN  int
}

var _ FileSystem = (*Memory)(nil)

// NewMemory returns an empty in-memory filesystem.
func NewMemory() *Memory {
	return &Memory{files: make(map[string][]byte), tmp: make(map[string][]byte)}
}

// Put seeds path with data, as if it had been written by a prior run.
func (m *Memory) Put(path string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = append([]byte(nil), data...)
}

// Get returns the current bytes at path, or (nil, false) if absent.
func (m *Memory) Get(path string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.files[path]
	return b, ok
}

func (m *Memory) Open(path string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.files[path]
	if !ok {
		return nil, pmerrors.New(pmerrors.Io, "open: no such file: "+path)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *Memory) Stat(path string) (Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.files[path]
	if !ok {
		return Info{}, pmerrors.New(pmerrors.Io, "stat: no such file: "+path)
	}
	return Info{Size: int64(len(b))}, nil
}

type memWriter struct {
	m       *Memory
	tmpPath string
	buf     bytes.Buffer
}

func (w *memWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

// Sync is a no-op: memWriter has no backing storage to flush.
func (w *memWriter) Sync() error { return nil }

func (w *memWriter) Close() error {
	w.m.mu.Lock()
	defer w.m.mu.Unlock()
	w.m.tmp[w.tmpPath] = w.buf.Bytes()
	return nil
}

func (m *Memory) CreateTemp(finalPath string) (SyncWriteCloser, string, error) {
	m.mu.Lock()
	m.tmpN++
	tmpPath := finalPath + ".tmp" + string(rune('0'+m.tmpN%10))
	m.mu.Unlock()
	return &memWriter{m: m, tmpPath: tmpPath}, tmpPath, nil
}

func (m *Memory) Rename(tempPath, finalPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.tmp[tempPath]
	if !ok {
		return pmerrors.New(pmerrors.Io, "rename: no such temp file: "+tempPath)
	}
	delete(m.tmp, tempPath)
	m.files[finalPath] = b
	return nil
}

func (m *Memory) Remove(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
	delete(m.tmp, path)
	return nil
}
