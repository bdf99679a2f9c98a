// Package pack serializes a repository into a single package file and
// restores it from there. A package starts with a header naming the layout
// and the algorithms applied to every payload, followed by the entries in
// one of two layouts:
//
// HeaderPerFile stores each entry inline:
//
//	count(u32) | { path(str) | orig_size(u64) | stored_size(u64) | payload }*
//
// TocAtEnd stores all payloads first, followed by a table of contents and
// the absolute offset of that table in the last eight bytes:
//
//	payload* | "TOC1" | count(u32) | { path(str) | orig_size(u64) | offset(u64) | stored_size(u64) }* | toc_offset(u64)
//
// All integers are little-endian, strings carry a u32 length prefix.
// Payloads are compressed first and encrypted second.
package pack

import (
	"bytes"
	"fmt"

	"github.com/mirrorpack/mirrorpack/internal/binio"
	"github.com/mirrorpack/mirrorpack/internal/compress"
	"github.com/mirrorpack/mirrorpack/internal/crypto"
	"github.com/mirrorpack/mirrorpack/internal/errors"
)

const (
	// Magic is the first six bytes of every package.
	Magic = "SEXP01"
	// Version is the format version written to new packages.
	Version = 1

	tocMagic = "TOC1"

	// maxSaltSize bounds the salt length read from a package.
	maxSaltSize = 1024
)

var (
	// ErrMagicMismatch is returned for files which do not start with Magic.
	ErrMagicMismatch = errors.New("not a package file (magic mismatch)")
	// ErrPasswordRequired is returned if encryption is used without a password.
	ErrPasswordRequired = errors.New("encryption requires a non-empty password")
)

// InvalidFileError is returned for packages with a damaged structure.
type InvalidFileError struct {
	Message string
}

func (e InvalidFileError) Error() string {
	return "invalid package: " + e.Message
}

func invalidf(format string, args ...interface{}) error {
	return errors.WithStack(InvalidFileError{Message: fmt.Sprintf(format, args...)})
}

// IsInvalidFile reports whether err is caused by a damaged package.
func IsInvalidFile(err error) bool {
	var e InvalidFileError
	return errors.As(err, &e) || errors.Is(err, ErrMagicMismatch) || errors.Is(err, binio.ErrShortRead)
}

// Layout selects how entries are arranged in a package.
type Layout uint8

const (
	HeaderPerFile Layout = iota + 1
	TocAtEnd
)

// Valid reports whether l is a known layout.
func (l Layout) Valid() bool {
	return l == HeaderPerFile || l == TocAtEnd
}

// Set implements the method needed for pflag command flag parsing.
func (l *Layout) Set(s string) error {
	switch s {
	case "header":
		*l = HeaderPerFile
	case "toc":
		*l = TocAtEnd
	default:
		return fmt.Errorf("invalid layout %q, must be one of (header|toc)", s)
	}
	return nil
}

func (l Layout) String() string {
	switch l {
	case HeaderPerFile:
		return "header"
	case TocAtEnd:
		return "toc"
	default:
		return fmt.Sprintf("invalid(%d)", uint8(l))
	}
}

// Type implements the method needed for pflag command flag parsing.
func (l *Layout) Type() string {
	return "layout"
}

// Header is the self-describing start of a package.
type Header struct {
	Version     uint8
	Layout      Layout
	Compression compress.Algorithm
	Encryption  crypto.Algorithm
	Salt        []byte
}

func (h Header) validate() error {
	switch {
	case !h.Layout.Valid():
		return invalidf("unknown layout %d", uint8(h.Layout))
	case !h.Compression.Valid():
		return invalidf("unknown compression %d", uint8(h.Compression))
	case !h.Encryption.Valid():
		return invalidf("unknown encryption %d", uint8(h.Encryption))
	}
	return nil
}

func writeHeader(wr *binio.Writer, h Header) error {
	if _, err := wr.Write([]byte(Magic)); err != nil {
		return err
	}
	for _, v := range []uint8{h.Version, uint8(h.Layout), uint8(h.Compression), uint8(h.Encryption)} {
		if err := wr.U8(v); err != nil {
			return err
		}
	}
	return wr.Bytes(h.Salt)
}

func readHeader(rd *binio.Reader) (Header, error) {
	magic, err := rd.Raw(uint64(len(Magic)))
	if err != nil {
		if errors.Is(err, binio.ErrShortRead) {
			return Header{}, errors.Wrap(ErrMagicMismatch, "file is too short")
		}
		return Header{}, err
	}
	if !bytes.Equal(magic, []byte(Magic)) {
		return Header{}, errors.WithStack(ErrMagicMismatch)
	}

	var codes [4]uint8
	for i := range codes {
		if codes[i], err = rd.U8(); err != nil {
			return Header{}, err
		}
	}
	h := Header{
		Version:     codes[0],
		Layout:      Layout(codes[1]),
		Compression: compress.Algorithm(codes[2]),
		Encryption:  crypto.Algorithm(codes[3]),
	}
	if err := h.validate(); err != nil {
		return Header{}, err
	}

	saltLen, err := rd.U32()
	if err != nil {
		return Header{}, err
	}
	if saltLen > maxSaltSize {
		return Header{}, invalidf("salt of %d bytes is too large", saltLen)
	}
	if h.Salt, err = rd.Raw(uint64(saltLen)); err != nil {
		return Header{}, err
	}

	return h, nil
}
