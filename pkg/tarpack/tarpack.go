// Package tarpack packs a directory tree into a single TAR byte stream and
// unpacks it back, so the pipeline coordinator can treat "compress a
// directory" as "compress one TAR-shaped input" (Metadata.InnerFormatTag
// records that the payload is TAR-wrapped once decompressed).
package tarpack

import (
	"archive/tar"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hocestnonsatis/parallel-mengene/pkg/pmerrors"
)

// Pack walks root and writes a TAR stream of every regular file, directory,
// and symlink under it to w. Paths inside the archive are relative to root.
func Pack(w io.Writer, root string) error {
	tw := tar.NewWriter(w)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		var linkTarget string
		if info.Mode()&os.ModeSymlink != 0 {
			linkTarget, err = os.Readlink(path)
			if err != nil {
				return err
			}
		}

		header, err := tar.FileInfoHeader(info, linkTarget)
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		if d.IsDir() {
			header.Name += "/"
		}

		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if d.IsDir() || info.Mode()&os.ModeSymlink != 0 {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
	if err != nil {
		return pmerrors.Wrap(pmerrors.Io, "pack directory into tar", err)
	}
	return pmerrors.Wrap(pmerrors.Io, "close tar writer", tw.Close())
}

// Unpack reads a TAR stream from r and recreates its entries under destRoot.
// destRoot must already exist. Entry names that resolve outside destRoot
// via ".." are rejected; an absolute entry name is joined under destRoot
// rather than rejected.
func Unpack(r io.Reader, destRoot string) error {
	tr := tar.NewReader(r)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return pmerrors.Wrap(pmerrors.Corrupt, "read tar entry", err)
		}

		target, err := safeJoin(destRoot, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, os.FileMode(header.Mode)|0o700); err != nil {
				return pmerrors.Wrap(pmerrors.Io, "create directory from tar", err)
			}
		case tar.TypeSymlink:
			if err := os.Symlink(header.Linkname, target); err != nil {
				return pmerrors.Wrap(pmerrors.Io, "create symlink from tar", err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o700); err != nil {
				return pmerrors.Wrap(pmerrors.Io, "create parent directory from tar", err)
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode))
			if err != nil {
				return pmerrors.Wrap(pmerrors.Io, "create file from tar", err)
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return pmerrors.Wrap(pmerrors.Io, "write file from tar", err)
			}
			if err := out.Close(); err != nil {
				return pmerrors.Wrap(pmerrors.Io, "close file from tar", err)
			}
		default:
			// Device nodes, FIFOs, and other unusual entries are skipped
			// rather than rejected outright, matching a best-effort unpack.
		}
	}
}

func safeJoin(root, name string) (string, error) {
	target := filepath.Join(root, name)
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", pmerrors.New(pmerrors.Corrupt, "tar entry escapes destination root: "+name)
	}
	return target, nil
}
