package pack

import (
	"bufio"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mirrorpack/mirrorpack/internal/binio"
	"github.com/mirrorpack/mirrorpack/internal/compress"
	"github.com/mirrorpack/mirrorpack/internal/crypto"
	"github.com/mirrorpack/mirrorpack/internal/debug"
	"github.com/mirrorpack/mirrorpack/internal/errors"
	mpfs "github.com/mirrorpack/mirrorpack/internal/fs"
)

// Options select how a package is written.
type Options struct {
	Layout      Layout
	Compression compress.Algorithm
	Encryption  crypto.Algorithm
	Password    string
}

// Check returns an error if the options cannot be used for an export.
func (opts Options) Check() error {
	switch {
	case !opts.Layout.Valid():
		return errors.Errorf("invalid layout %v", opts.Layout)
	case !opts.Compression.Valid():
		return errors.Errorf("invalid compression %v", opts.Compression)
	case !opts.Encryption.Valid():
		return errors.Errorf("invalid encryption %v", opts.Encryption)
	case opts.Encryption != crypto.None && opts.Password == "":
		return errors.WithStack(ErrPasswordRequired)
	}
	return nil
}

type sourceFile struct {
	path string
	rel  string
}

// listFiles returns all regular files below root in lexical order. The file
// skip is left out.
func listFiles(root string, skip os.FileInfo) ([]sourceFile, error) {
	var files []sourceFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			if !d.IsDir() {
				debug.Log("skipping non-regular file %v", path)
			}
			return nil
		}

		if skip != nil {
			fi, err := d.Info()
			if err != nil {
				return errors.WithStack(err)
			}
			if os.SameFile(fi, skip) {
				debug.Log("skipping output file %v", path)
				return nil
			}
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return errors.WithStack(err)
		}
		files = append(files, sourceFile{path: path, rel: filepath.ToSlash(rel)})
		return nil
	})
	return files, errors.Wrap(err, "walk")
}

// Export writes all regular files below repoRoot into a new package at
// packagePath. The package is written to a temporary file first and only
// renamed to packagePath on success. Nothing is written if the options are
// invalid.
func Export(ctx context.Context, repoRoot, packagePath string, opts Options) ([]Entry, error) {
	if err := opts.Check(); err != nil {
		return nil, err
	}

	fi, err := os.Stat(repoRoot)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if !fi.IsDir() {
		return nil, errors.Errorf("%v is not a directory", repoRoot)
	}

	// an earlier package inside the repository must not be packed
	existing, _ := os.Stat(packagePath)
	files, err := listFiles(repoRoot, existing)
	if err != nil {
		return nil, err
	}

	h := Header{
		Version:     Version,
		Layout:      opts.Layout,
		Compression: opts.Compression,
		Encryption:  opts.Encryption,
	}
	if opts.Encryption != crypto.None {
		if h.Salt, err = crypto.NewSalt(); err != nil {
			return nil, err
		}
	}

	debug.Log("export %d files from %v to %v, layout %v, compression %v, encryption %v",
		len(files), repoRoot, packagePath, h.Layout, h.Compression, h.Encryption)

	var entries []Entry
	err = mpfs.WriteFileAtomic(packagePath, 0644, func(out io.Writer) error {
		bw := bufio.NewWriter(out)
		wr := binio.NewWriter(bw)

		if err := writeHeader(wr, h); err != nil {
			return err
		}

		p, err := NewPacker(wr, h.Layout, len(files))
		if err != nil {
			return err
		}

		for _, file := range files {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			buf, err := os.ReadFile(file.path)
			if err != nil {
				return errors.WithStack(err)
			}

			payload, err := encode(h, opts.Password, buf)
			if err != nil {
				return errors.Wrap(err, file.rel)
			}

			if err := p.Add(file.rel, uint64(len(buf)), payload); err != nil {
				return err
			}
		}

		entries, err = p.Finalize()
		if err != nil {
			return err
		}
		return errors.Wrap(bw.Flush(), "Flush")
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// encode compresses and then encrypts buf.
func encode(h Header, password string, buf []byte) ([]byte, error) {
	compressed, err := compress.Compress(h.Compression, buf)
	if err != nil {
		return nil, err
	}
	return crypto.Apply(h.Encryption, password, h.Salt, compressed)
}

// decode reverses encode and checks the size of the result.
func decode(h Header, password string, e Entry, payload []byte) ([]byte, error) {
	decrypted, err := crypto.Apply(h.Encryption, password, h.Salt, payload)
	if err != nil {
		return nil, err
	}
	buf, err := compress.Decompress(h.Compression, decrypted, e.OrigSize)
	if err != nil {
		return nil, invalidf("entry %q is corrupted: %v", e.Path, err)
	}
	return buf, nil
}
