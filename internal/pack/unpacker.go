package pack

import (
	"bytes"
	"io"

	"github.com/mirrorpack/mirrorpack/internal/binio"
	"github.com/mirrorpack/mirrorpack/internal/debug"
	"github.com/mirrorpack/mirrorpack/internal/errors"
)

const (
	// smallest encoding of an entry in the respective layout
	minInlineEntrySize = 4 + 8 + 8
	minTOCEntrySize    = 4 + 8 + 8 + 8

	trailerSize = 8
)

// readInline reads the entries of a HeaderPerFile package from rd, which is
// positioned directly after the header. If fn is nil, payloads are skipped.
// size is the total length of the package.
func readInline(rd *binio.Reader, size int64, fn func(e Entry, payload []byte) error) ([]Entry, error) {
	count, err := rd.U32()
	if err != nil {
		return nil, err
	}
	if remaining := size - rd.Offset(); int64(count) > remaining/minInlineEntrySize {
		return nil, invalidf("entry count %d exceeds the file size", count)
	}

	entries := make([]Entry, 0, count)
	for i := uint32(0); i < count; i++ {
		var e Entry
		if e.Path, err = rd.String(); err != nil {
			return nil, err
		}
		if e.OrigSize, err = rd.U64(); err != nil {
			return nil, err
		}
		if e.StoredSize, err = rd.U64(); err != nil {
			return nil, err
		}

		e.Offset = rd.Offset()
		if e.StoredSize > uint64(size-e.Offset) {
			return nil, invalidf("entry %q: payload of %d bytes exceeds the file size", e.Path, e.StoredSize)
		}

		if fn == nil {
			err = rd.Skip(e.StoredSize)
		} else {
			var payload []byte
			payload, err = rd.Raw(e.StoredSize)
			if err == nil {
				err = fn(e, payload)
			}
		}
		if err != nil {
			return nil, err
		}

		entries = append(entries, e)
	}

	if rd.Offset() != size {
		return nil, invalidf("%d bytes of trailing data", size-rd.Offset())
	}
	return entries, nil
}

// readTOC reads the table of contents of a TocAtEnd package. headerEnd is
// the offset of the first payload.
func readTOC(rd io.ReaderAt, size int64, headerEnd int64) ([]Entry, error) {
	if size < headerEnd+trailerSize {
		return nil, invalidf("file is too small for a table of contents")
	}

	buf := make([]byte, trailerSize)
	if _, err := rd.ReadAt(buf, size-trailerSize); err != nil {
		return nil, errors.Wrap(err, "ReadAt")
	}
	offset, err := binio.NewReader(bytes.NewReader(buf)).U64()
	if err != nil {
		return nil, err
	}

	tocEnd := size - trailerSize
	if offset < uint64(headerEnd) || offset > uint64(tocEnd) {
		return nil, invalidf("table of contents offset %d out of range [%d, %d]", offset, headerEnd, tocEnd)
	}
	tocOffset := int64(offset)
	debug.Log("toc at %d, %d bytes", tocOffset, tocEnd-tocOffset)

	toc := binio.NewReader(io.NewSectionReader(rd, tocOffset, tocEnd-tocOffset))
	magic, err := toc.Raw(uint64(len(tocMagic)))
	if err != nil {
		return nil, err
	}
	if string(magic) != tocMagic {
		return nil, invalidf("table of contents magic mismatch")
	}

	count, err := toc.U32()
	if err != nil {
		return nil, err
	}
	if int64(count) > (tocEnd-tocOffset)/minTOCEntrySize {
		return nil, invalidf("entry count %d exceeds the table of contents size", count)
	}

	entries := make([]Entry, 0, count)
	for i := uint32(0); i < count; i++ {
		var e Entry
		var off uint64
		if e.Path, err = toc.String(); err != nil {
			return nil, err
		}
		if e.OrigSize, err = toc.U64(); err != nil {
			return nil, err
		}
		if off, err = toc.U64(); err != nil {
			return nil, err
		}
		if e.StoredSize, err = toc.U64(); err != nil {
			return nil, err
		}

		// payloads lie between the header and the table of contents
		if off < uint64(headerEnd) || off > uint64(tocOffset) || e.StoredSize > uint64(tocOffset)-off {
			return nil, invalidf("entry %q: payload [%d, +%d) out of range", e.Path, off, e.StoredSize)
		}
		e.Offset = int64(off)
		entries = append(entries, e)
	}

	if toc.Offset() != tocEnd-tocOffset {
		return nil, invalidf("%d bytes of trailing data in table of contents", tocEnd-tocOffset-toc.Offset())
	}
	return entries, nil
}

// readPayload returns the stored bytes of e.
func readPayload(rd io.ReaderAt, e Entry) ([]byte, error) {
	buf := make([]byte, e.StoredSize)
	n, err := rd.ReadAt(buf, e.Offset)
	if n == len(buf) {
		return buf, nil
	}
	if err == io.EOF {
		return nil, errors.Wrapf(binio.ErrShortRead, "payload of %v", e.Path)
	}
	return nil, errors.Wrap(err, "ReadAt")
}
