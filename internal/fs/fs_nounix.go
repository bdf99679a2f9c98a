//go:build !unix

package fs

import (
	"github.com/mirrorpack/mirrorpack/internal/data"
	"github.com/mirrorpack/mirrorpack/internal/errors"
)

var errUnsupported = errors.New("file metadata is only supported on unix systems")

// Classify is not supported on this platform.
func Classify(_ string) (data.Kind, error) {
	return 0, errUnsupported
}

// LoadMetadata is not supported on this platform.
func LoadMetadata(_ string) (data.Metadata, error) {
	return data.Metadata{}, errUnsupported
}

// ApplyMetadata is not supported on this platform.
func ApplyMetadata(_ string, _ data.Metadata, _ func(msg string, args ...interface{})) error {
	return errUnsupported
}

// Mkfifo is not supported on this platform.
func Mkfifo(_ string, _ uint32) error {
	return errUnsupported
}

func fsyncDir(_ string) error {
	return nil
}
