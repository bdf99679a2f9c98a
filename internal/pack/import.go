package pack

import (
	"bufio"
	"context"
	"os"
	"path/filepath"

	"github.com/mirrorpack/mirrorpack/internal/binio"
	"github.com/mirrorpack/mirrorpack/internal/crypto"
	"github.com/mirrorpack/mirrorpack/internal/debug"
	"github.com/mirrorpack/mirrorpack/internal/errors"
	"github.com/mirrorpack/mirrorpack/internal/repository"
)

type openPackage struct {
	f         *os.File
	size      int64
	header    Header
	rd        *binio.Reader
	headerEnd int64
}

func openFile(packagePath string) (*openPackage, error) {
	f, err := os.Open(packagePath)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, errors.WithStack(err)
	}

	rd := binio.NewReader(bufio.NewReader(f))
	h, err := readHeader(rd)
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, packagePath)
	}
	if h.Version != Version {
		debug.Log("package %v has version %d, expected %d", packagePath, h.Version, Version)
	}

	return &openPackage{
		f:         f,
		size:      fi.Size(),
		header:    h,
		rd:        rd,
		headerEnd: rd.Offset(),
	}, nil
}

func (p *openPackage) Close() error {
	return p.f.Close()
}

// each calls fn for all entries with their stored payload.
func (p *openPackage) each(fn func(e Entry, payload []byte) error) ([]Entry, error) {
	switch p.header.Layout {
	case HeaderPerFile:
		return readInline(p.rd, p.size, fn)
	case TocAtEnd:
		entries, err := readTOC(p.f, p.size, p.headerEnd)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			payload, err := readPayload(p.f, e)
			if err != nil {
				return nil, err
			}
			if err := fn(e, payload); err != nil {
				return nil, err
			}
		}
		return entries, nil
	}
	return nil, invalidf("unknown layout %d", uint8(p.header.Layout))
}

// ReadHeader returns the header of the package at packagePath.
func ReadHeader(packagePath string) (Header, error) {
	p, err := openFile(packagePath)
	if err != nil {
		return Header{}, err
	}
	_ = p.Close()
	return p.header, nil
}

// Import restores the files of the package at packagePath below repoRoot,
// which is created if necessary. All entries are read, decrypted and
// checked before the first file is written, so a damaged package leaves
// repoRoot untouched.
func Import(ctx context.Context, packagePath, repoRoot, password string) ([]Entry, error) {
	p, err := openFile(packagePath)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = p.Close()
	}()

	if p.header.Encryption != crypto.None && password == "" {
		return nil, errors.WithStack(ErrPasswordRequired)
	}

	type file struct {
		rel  string
		data []byte
	}
	var files []file
	seen := make(map[string]struct{})

	entries, err := p.each(func(e Entry, payload []byte) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := repository.ValidPath(e.Path); err != nil {
			return invalidf("entry %q: %v", e.Path, err)
		}
		if _, ok := seen[e.Path]; ok {
			return invalidf("duplicate entry %q", e.Path)
		}
		seen[e.Path] = struct{}{}

		buf, err := decode(p.header, password, e, payload)
		if err != nil {
			return err
		}
		files = append(files, file{rel: e.Path, data: buf})
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, packagePath)
	}

	debug.Log("import %d entries from %v to %v", len(files), packagePath, repoRoot)
	if err := os.MkdirAll(repoRoot, 0755); err != nil {
		return nil, errors.Wrap(err, "MkdirAll")
	}

	for _, f := range files {
		target := filepath.Join(repoRoot, filepath.FromSlash(f.rel))
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return nil, errors.Wrap(err, "MkdirAll")
		}
		if err := os.WriteFile(target, f.data, 0644); err != nil {
			return nil, errors.Wrap(err, "WriteFile")
		}
	}

	return entries, nil
}

// Inspect returns the header and the entries of the package at packagePath
// without decoding any payload. For TocAtEnd packages only the table of
// contents is read.
func Inspect(packagePath string) (Header, []Entry, error) {
	p, err := openFile(packagePath)
	if err != nil {
		return Header{}, nil, err
	}
	defer func() {
		_ = p.Close()
	}()

	var entries []Entry
	switch p.header.Layout {
	case HeaderPerFile:
		entries, err = readInline(p.rd, p.size, nil)
	case TocAtEnd:
		entries, err = readTOC(p.f, p.size, p.headerEnd)
	}
	if err != nil {
		return Header{}, nil, errors.Wrap(err, packagePath)
	}
	return p.header, entries, nil
}
