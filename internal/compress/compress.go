// Package compress implements the payload compression algorithms of the
// package format. Every algorithm is lossless; Decompress checks that the
// result has the size recorded at compression time.
package compress

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/mirrorpack/mirrorpack/internal/errors"
)

// Algorithm identifies a compression algorithm. The values are stored in the
// package header and must not change.
type Algorithm uint8

const (
	None Algorithm = iota
	RLE
	Zstd
	LZ4

	numAlgorithms
)

// Valid reports whether a is a known algorithm.
func (a Algorithm) Valid() bool {
	return a < numAlgorithms
}

// Set implements the method needed for pflag command flag parsing.
func (a *Algorithm) Set(s string) error {
	switch s {
	case "none":
		*a = None
	case "rle":
		*a = RLE
	case "zstd":
		*a = Zstd
	case "lz4":
		*a = LZ4
	default:
		return fmt.Errorf("invalid compression %q, must be one of (none|rle|zstd|lz4)", s)
	}
	return nil
}

func (a Algorithm) String() string {
	switch a {
	case None:
		return "none"
	case RLE:
		return "rle"
	case Zstd:
		return "zstd"
	case LZ4:
		return "lz4"
	default:
		return fmt.Sprintf("invalid(%d)", uint8(a))
	}
}

// Type implements the method needed for pflag command flag parsing.
func (a *Algorithm) Type() string {
	return "compression"
}

// Compress returns buf compressed with alg. For None, buf itself is returned.
func Compress(alg Algorithm, buf []byte) ([]byte, error) {
	switch alg {
	case None:
		return buf, nil
	case RLE:
		return EncodeRLE(buf), nil
	case Zstd:
		enc, err := zstdEncoder()
		if err != nil {
			return nil, err
		}
		return enc.EncodeAll(buf, nil), nil
	case LZ4:
		return compressLZ4(buf)
	}
	return nil, errors.Errorf("unknown compression algorithm %d", uint8(alg))
}

// Decompress reverses Compress. origSize is the length of the uncompressed
// data, a result of any other length is an error.
func Decompress(alg Algorithm, buf []byte, origSize uint64) ([]byte, error) {
	var (
		out []byte
		err error
	)

	switch alg {
	case None:
		out = buf
	case RLE:
		out, err = DecodeRLE(buf)
	case Zstd:
		if len(buf) == 0 {
			// EncodeAll does not emit a frame for empty input
			break
		}
		var dec *zstd.Decoder
		dec, err = zstdDecoder()
		if err == nil {
			out, err = dec.DecodeAll(buf, make([]byte, 0, capHint(origSize)))
			err = errors.Wrap(err, "zstd.DecodeAll")
		}
	case LZ4:
		out, err = decompressLZ4(buf, origSize)
	default:
		return nil, errors.Errorf("unknown compression algorithm %d", uint8(alg))
	}

	if err != nil {
		return nil, err
	}

	if uint64(len(out)) != origSize {
		return nil, errors.Errorf("%v: decompressed size %d does not match recorded size %d", alg, len(out), origSize)
	}
	return out, nil
}

// capHint bounds the preallocation for a size read from untrusted input.
func capHint(size uint64) int {
	const maxHint = 64 << 20
	if size > maxHint {
		return maxHint
	}
	return int(size)
}

var (
	zstdOnce sync.Once
	zstdEnc  *zstd.Encoder
	zstdDec  *zstd.Decoder
	zstdErr  error
)

func initZstd() {
	zstdEnc, zstdErr = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
		zstd.WithEncoderConcurrency(1),
	)
	if zstdErr != nil {
		zstdErr = errors.Wrap(zstdErr, "zstd.NewWriter")
		return
	}

	zstdDec, zstdErr = zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	zstdErr = errors.Wrap(zstdErr, "zstd.NewReader")
}

func zstdEncoder() (*zstd.Encoder, error) {
	zstdOnce.Do(initZstd)
	return zstdEnc, zstdErr
}

func zstdDecoder() (*zstd.Decoder, error) {
	zstdOnce.Do(initZstd)
	return zstdDec, zstdErr
}

func compressLZ4(buf []byte) ([]byte, error) {
	var out bytes.Buffer
	wr := lz4.NewWriter(&out)
	if err := wr.Apply(lz4.ChecksumOption(false)); err != nil {
		return nil, errors.Wrap(err, "lz4.Apply")
	}

	if _, err := wr.Write(buf); err != nil {
		return nil, errors.Wrap(err, "lz4.Write")
	}
	if err := wr.Close(); err != nil {
		return nil, errors.Wrap(err, "lz4.Close")
	}
	return out.Bytes(), nil
}

func decompressLZ4(buf []byte, origSize uint64) ([]byte, error) {
	rd := lz4.NewReader(bytes.NewReader(buf))

	out := bytes.NewBuffer(make([]byte, 0, capHint(origSize)))
	// one byte more than expected is enough to detect a size mismatch
	_, err := io.Copy(out, io.LimitReader(rd, int64(origSize)+1))
	if err != nil {
		return nil, errors.Wrap(err, "lz4.Read")
	}
	return out.Bytes(), nil
}
