package pack

import (
	"fmt"

	"github.com/mirrorpack/mirrorpack/internal/binio"
	"github.com/mirrorpack/mirrorpack/internal/errors"
)

// Entry describes one file in a package.
type Entry struct {
	Path       string
	OrigSize   uint64
	StoredSize uint64
	// Offset is the absolute position of the payload in the package.
	Offset int64
}

func (e Entry) String() string {
	return fmt.Sprintf("<Entry %v, %d/%d bytes at %d>", e.Path, e.StoredSize, e.OrigSize, e.Offset)
}

// Packer writes the entries of a package after its header.
type Packer struct {
	wr      *binio.Writer
	layout  Layout
	count   uint32
	entries []Entry
}

// NewPacker returns a packer which writes count entries in the given layout
// to wr. The header must already have been written to wr, so that offsets
// are absolute.
func NewPacker(wr *binio.Writer, layout Layout, count int) (*Packer, error) {
	if !layout.Valid() {
		return nil, errors.Errorf("invalid layout %v", layout)
	}
	if count < 0 || uint64(count) > uint64(^uint32(0)) {
		return nil, errors.Errorf("cannot pack %d entries", count)
	}

	p := &Packer{wr: wr, layout: layout, count: uint32(count)}
	if layout == HeaderPerFile {
		if err := wr.U32(p.count); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Add writes the payload of one entry. origSize is the size before
// compression and encryption.
func (p *Packer) Add(path string, origSize uint64, payload []byte) error {
	if len(p.entries) == int(p.count) {
		return errors.Errorf("packer: more than %d entries added", p.count)
	}

	e := Entry{Path: path, OrigSize: origSize, StoredSize: uint64(len(payload))}

	if p.layout == HeaderPerFile {
		if err := p.wr.String(path); err != nil {
			return err
		}
		if err := p.wr.U64(origSize); err != nil {
			return err
		}
		if err := p.wr.U64(e.StoredSize); err != nil {
			return err
		}
	}

	e.Offset = p.wr.Offset()
	if _, err := p.wr.Write(payload); err != nil {
		return err
	}

	p.entries = append(p.entries, e)
	return nil
}

// Finalize completes the package. For TocAtEnd it writes the table of
// contents and the trailing offset.
func (p *Packer) Finalize() ([]Entry, error) {
	if len(p.entries) != int(p.count) {
		return nil, errors.Errorf("packer: %d of %d entries added", len(p.entries), p.count)
	}

	if p.layout == TocAtEnd {
		tocOffset := p.wr.Offset()
		if _, err := p.wr.Write([]byte(tocMagic)); err != nil {
			return nil, err
		}
		if err := p.wr.U32(p.count); err != nil {
			return nil, err
		}
		for _, e := range p.entries {
			if err := p.wr.String(e.Path); err != nil {
				return nil, err
			}
			for _, v := range []uint64{e.OrigSize, uint64(e.Offset), e.StoredSize} {
				if err := p.wr.U64(v); err != nil {
					return nil, err
				}
			}
		}
		if err := p.wr.U64(uint64(tocOffset)); err != nil {
			return nil, err
		}
	}

	return p.entries, nil
}
