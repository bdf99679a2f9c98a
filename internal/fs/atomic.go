package fs

import (
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/mirrorpack/mirrorpack/internal/debug"
	"github.com/mirrorpack/mirrorpack/internal/errors"
)

var tempFile = os.CreateTemp // Overridden by test.

// WriteFileAtomic creates finalname with the content written by fn. The data
// is written to a temporary file in the same directory first, which is
// renamed to finalname only if fn and all file operations succeed. On error
// the temporary file is removed and finalname is left untouched.
func WriteFileAtomic(finalname string, mode os.FileMode, fn func(wr io.Writer) error) (err error) {
	dir := filepath.Dir(finalname)
	f, err := tempFile(dir, filepath.Base(finalname)+"-tmp-")
	if err != nil {
		return errors.WithStack(err)
	}

	defer func(f *os.File) {
		if err != nil {
			_ = f.Close() // Double Close is harmless.
			_ = os.Remove(f.Name())
		}
	}(f)

	if err = fn(f); err != nil {
		return err
	}

	// Ignore error if filesystem does not support fsync.
	err = f.Sync()
	syncNotSup := err != nil && errors.Is(err, syscall.ENOTSUP)
	if err != nil && !syncNotSup {
		return errors.WithStack(err)
	}

	if err = f.Chmod(mode); err != nil {
		debug.Log("chmod %v failed: %v", f.Name(), err)
	}

	// Close, then rename. Windows doesn't like the reverse order.
	if err = f.Close(); err != nil {
		return errors.WithStack(err)
	}
	if err = os.Rename(f.Name(), finalname); err != nil {
		return errors.WithStack(err)
	}

	if !syncNotSup {
		err = fsyncDir(dir)
		if err != nil {
			return errors.WithStack(err)
		}
	}

	return nil
}
