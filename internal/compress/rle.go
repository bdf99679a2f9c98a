package compress

import "github.com/mirrorpack/mirrorpack/internal/errors"

// maxRun is the longest run a single pair can describe.
const maxRun = 255

// EncodeRLE encodes buf as a sequence of (count, value) byte pairs. Runs
// longer than 255 bytes are split into several pairs. An empty input yields
// an empty output.
func EncodeRLE(buf []byte) []byte {
	out := make([]byte, 0, len(buf)/2+2)
	for i := 0; i < len(buf); {
		v := buf[i]
		n := 1
		for i+n < len(buf) && buf[i+n] == v && n < maxRun {
			n++
		}
		out = append(out, byte(n), v)
		i += n
	}
	return out
}

// DecodeRLE reverses EncodeRLE. The input must consist of complete pairs and
// no pair may have a count of zero.
func DecodeRLE(buf []byte) ([]byte, error) {
	if len(buf)%2 != 0 {
		return nil, errors.Errorf("rle: odd input length %d", len(buf))
	}

	size := 0
	for i := 0; i < len(buf); i += 2 {
		if buf[i] == 0 {
			return nil, errors.Errorf("rle: zero run length at offset %d", i)
		}
		size += int(buf[i])
	}

	out := make([]byte, 0, size)
	for i := 0; i < len(buf); i += 2 {
		for n := buf[i]; n > 0; n-- {
			out = append(out, buf[i+1])
		}
	}
	return out, nil
}
