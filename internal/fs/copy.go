package fs

import (
	"io"
	"os"
	"path/filepath"

	"github.com/mirrorpack/mirrorpack/internal/errors"
)

// CopyFile copies the content of the regular file src to dst, creating the
// parent directories of dst. An existing dst is truncated. The new file is
// created with mode 0600, callers apply the final permissions.
func CopyFile(dst, src string) (n int64, err error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	defer func() {
		_ = in.Close()
	}()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return 0, errors.WithStack(err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return 0, errors.WithStack(err)
	}

	n, err = io.Copy(out, in)
	if err != nil {
		_ = out.Close()
		return n, errors.Wrap(err, "Copy")
	}

	return n, errors.Wrap(out.Close(), "Close")
}

// RemoveIfExists removes the entry at path. A directory is removed together
// with its content. A missing entry is not an error.
func RemoveIfExists(path string) error {
	if _, err := os.Lstat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return errors.WithStack(err)
	}
	return errors.WithStack(os.RemoveAll(path))
}
