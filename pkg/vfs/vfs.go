// Package vfs narrows filesystem access down to what pkg/pipeline's
// Coordinator actually needs: read one input path, write one output path
// atomically, stat a path, and remove a path. Two implementations exist —
// an OS-backed one for real runs and an in-memory one so pipeline tests
// never touch disk.
package vfs

import (
	"io"
	"os"
	"path/filepath"

	"github.com/hocestnonsatis/parallel-mengene/pkg/pmerrors"
)

// Info is the subset of file metadata the pipeline cares about.
type Info struct {
	Size  int64
	IsDir bool
}

// SyncWriteCloser is a writable temp-output handle that can be flushed to
// stable storage before the caller renames it into place. Sync returns nil
// on backends (such as the in-memory filesystem) with nothing to flush.
type SyncWriteCloser interface {
	io.Writer
	io.Closer
	Sync() error
}

// FileSystem is the surface pkg/pipeline depends on instead of the os
// package directly.
type FileSystem interface {
	// Open opens path for reading.
	Open(path string) (io.ReadCloser, error)
	// Stat returns metadata for path.
	Stat(path string) (Info, error)
	// CreateTemp creates a new, empty file in the same directory as
	// finalPath (so the eventual rename is same-filesystem and atomic),
	// returning it for writing plus the temporary path actually used.
	CreateTemp(finalPath string) (SyncWriteCloser, string, error)
	// Rename atomically replaces finalPath with the file at tempPath.
	Rename(tempPath, finalPath string) error
	// Remove deletes path. Removing a path that does not exist is not an
	// error, matching the coordinator's best-effort cleanup on cancel.
	Remove(path string) error
}

// OS is the real, disk-backed FileSystem.
type OS struct{}

var _ FileSystem = OS{}

func (OS) Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pmerrors.Wrap(pmerrors.Io, "open input", err)
	}
	return f, nil
}

func (OS) Stat(path string) (Info, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return Info{}, pmerrors.Wrap(pmerrors.Io, "stat", err)
	}
	return Info{Size: fi.Size(), IsDir: fi.IsDir()}, nil
}

func (OS) CreateTemp(finalPath string) (SyncWriteCloser, string, error) {
	dir := filepath.Dir(finalPath)
	f, err := os.CreateTemp(dir, ".pmengene-*.tmp")
	if err != nil {
		return nil, "", pmerrors.Wrap(pmerrors.Io, "create temp output", err)
	}
	return f, f.Name(), nil
}

func (OS) Rename(tempPath, finalPath string) error {
	if err := os.Rename(tempPath, finalPath); err != nil {
		return pmerrors.Wrap(pmerrors.Io, "rename temp output into place", err)
	}
	return nil
}

func (OS) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return pmerrors.Wrap(pmerrors.Io, "remove", err)
	}
	return nil
}
