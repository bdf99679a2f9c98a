// Package binio reads and writes the little-endian primitives used by the
// package file format: fixed width unsigned integers, and byte blocks and
// strings prefixed with a 32 bit length.
package binio

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/mirrorpack/mirrorpack/internal/errors"
)

// ErrShortRead is returned when the source ends before a value was read
// completely.
var ErrShortRead = errors.New("unexpected end of data")

// MaxBlockSize is the largest length accepted for a byte block or string.
const MaxBlockSize = math.MaxUint32

// Writer writes primitives to an underlying writer and tracks the number of
// bytes written so far.
type Writer struct {
	wr  io.Writer
	off int64
	buf [8]byte
}

// NewWriter returns a Writer which starts counting at offset 0.
func NewWriter(wr io.Writer) *Writer {
	return &Writer{wr: wr}
}

// Offset returns the number of bytes written.
func (w *Writer) Offset() int64 {
	return w.off
}

// Write writes p unmodified.
func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.wr.Write(p)
	w.off += int64(n)
	if err != nil {
		return n, errors.Wrap(err, "Write")
	}
	return n, nil
}

func (w *Writer) write(p []byte) error {
	_, err := w.Write(p)
	return err
}

// U8 writes a single byte.
func (w *Writer) U8(v uint8) error {
	w.buf[0] = v
	return w.write(w.buf[:1])
}

// U16 writes v in little-endian byte order.
func (w *Writer) U16(v uint16) error {
	binary.LittleEndian.PutUint16(w.buf[:2], v)
	return w.write(w.buf[:2])
}

// U32 writes v in little-endian byte order.
func (w *Writer) U32(v uint32) error {
	binary.LittleEndian.PutUint32(w.buf[:4], v)
	return w.write(w.buf[:4])
}

// U64 writes v in little-endian byte order.
func (w *Writer) U64(v uint64) error {
	binary.LittleEndian.PutUint64(w.buf[:8], v)
	return w.write(w.buf[:8])
}

// Bytes writes the length of p as a U32, followed by p.
func (w *Writer) Bytes(p []byte) error {
	if uint64(len(p)) > MaxBlockSize {
		return errors.Errorf("block of %d bytes is too large", len(p))
	}
	if err := w.U32(uint32(len(p))); err != nil {
		return err
	}
	return w.write(p)
}

// String writes s like Bytes.
func (w *Writer) String(s string) error {
	return w.Bytes([]byte(s))
}

// Reader reads primitives from an underlying reader and tracks the number of
// bytes consumed.
type Reader struct {
	rd  io.Reader
	off int64
	buf [8]byte
}

// NewReader returns a Reader which starts counting at offset 0.
func NewReader(rd io.Reader) *Reader {
	return &Reader{rd: rd}
}

// Offset returns the number of bytes consumed.
func (r *Reader) Offset() int64 {
	return r.off
}

func (r *Reader) fill(p []byte) error {
	n, err := io.ReadFull(r.rd, p)
	r.off += int64(n)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return errors.Wrapf(ErrShortRead, "read %d of %d bytes", n, len(p))
	}
	return errors.Wrap(err, "ReadFull")
}

// U8 reads a single byte.
func (r *Reader) U8() (uint8, error) {
	if err := r.fill(r.buf[:1]); err != nil {
		return 0, err
	}
	return r.buf[0], nil
}

// U16 reads a little-endian uint16.
func (r *Reader) U16() (uint16, error) {
	if err := r.fill(r.buf[:2]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(r.buf[:2]), nil
}

// U32 reads a little-endian uint32.
func (r *Reader) U32() (uint32, error) {
	if err := r.fill(r.buf[:4]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(r.buf[:4]), nil
}

// U64 reads a little-endian uint64.
func (r *Reader) U64() (uint64, error) {
	if err := r.fill(r.buf[:8]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(r.buf[:8]), nil
}

// Raw reads exactly n bytes. Memory is allocated as data arrives, so a
// corrupted length does not cause a huge allocation up front.
func (r *Reader) Raw(n uint64) ([]byte, error) {
	if n > MaxBlockSize*2 {
		return nil, errors.Errorf("block of %d bytes is too large", n)
	}

	var buf bytes.Buffer
	copied, err := io.CopyN(&buf, r.rd, int64(n))
	r.off += copied
	if err == io.EOF {
		return nil, errors.Wrapf(ErrShortRead, "read %d of %d bytes", copied, n)
	}
	if err != nil {
		return nil, errors.Wrap(err, "CopyN")
	}
	return buf.Bytes(), nil
}

// Bytes reads a block written by Writer.Bytes.
func (r *Reader) Bytes() ([]byte, error) {
	n, err := r.U32()
	if err != nil {
		return nil, err
	}
	return r.Raw(uint64(n))
}

// String reads a string written by Writer.String.
func (r *Reader) String() (string, error) {
	buf, err := r.Bytes()
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// Skip discards the next n bytes.
func (r *Reader) Skip(n uint64) error {
	if n > math.MaxInt64 {
		return errors.Errorf("cannot skip %d bytes", n)
	}
	skipped, err := io.CopyN(io.Discard, r.rd, int64(n))
	r.off += skipped
	if err == io.EOF {
		return errors.Wrapf(ErrShortRead, "skipped %d of %d bytes", skipped, n)
	}
	return errors.Wrap(err, "CopyN")
}
