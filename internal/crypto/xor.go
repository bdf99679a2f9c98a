package crypto

import (
	"crypto/cipher"
	"hash/fnv"
)

// XORStream is a keystream generated by a xorshift32 generator. The generator
// is seeded with the FNV-1a hash of the password followed by the salt.
type XORStream struct {
	state uint32
}

var _ cipher.Stream = &XORStream{}

// NewXORStream returns the keystream for password and salt.
func NewXORStream(password string, salt []byte) *XORStream {
	h := fnv.New32a()
	_, _ = h.Write([]byte(password))
	_, _ = h.Write(salt)
	return &XORStream{state: h.Sum32()}
}

func (s *XORStream) next() byte {
	x := s.state
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	s.state = x
	return byte(x)
}

// XORKeyStream XORs each byte of src with the next keystream byte and writes
// the result to dst. dst and src may overlap entirely.
func (s *XORStream) XORKeyStream(dst, src []byte) {
	if len(dst) < len(src) {
		panic("crypto: output smaller than input")
	}
	for i, b := range src {
		dst[i] = b ^ s.next()
	}
}
