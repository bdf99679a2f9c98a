package crypto

import (
	"crypto/rc4"

	"github.com/mirrorpack/mirrorpack/internal/errors"
)

// maxRC4Key is the longest key the RC4 key schedule can use. Bytes beyond
// it never influence the permutation.
const maxRC4Key = 256

// rc4Key returns password||salt, or a single zero byte if both are empty.
func rc4Key(password string, salt []byte) []byte {
	key := make([]byte, 0, len(password)+len(salt))
	key = append(key, password...)
	key = append(key, salt...)
	if len(key) == 0 {
		return []byte{0}
	}
	if len(key) > maxRC4Key {
		key = key[:maxRC4Key]
	}
	return key
}

// NewRC4Stream returns an RC4 keystream keyed with password and salt.
func NewRC4Stream(password string, salt []byte) (*rc4.Cipher, error) {
	c, err := rc4.NewCipher(rc4Key(password, salt))
	if err != nil {
		return nil, errors.Wrap(err, "rc4.NewCipher")
	}
	return c, nil
}
