// Package crypto implements the stream ciphers used to obfuscate package
// payloads. They are keyed from a password and a random per-package salt.
// Neither cipher is suitable for protecting data against a determined
// attacker: there is no authentication and the key schedule is weak.
package crypto

import (
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"github.com/mirrorpack/mirrorpack/internal/errors"
)

// SaltSize is the length of the salt generated for each package.
const SaltSize = 16

// Algorithm identifies a cipher. The values are stored in the package header
// and must not change.
type Algorithm uint8

const (
	None Algorithm = iota
	XOR
	RC4

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
	case "xor":
		*a = XOR
	case "rc4":
		*a = RC4
	default:
		return fmt.Errorf("invalid encryption %q, must be one of (none|xor|rc4)", s)
	}
	return nil
}

func (a Algorithm) String() string {
	switch a {
	case None:
		return "none"
	case XOR:
		return "xor"
	case RC4:
		return "rc4"
	default:
		return fmt.Sprintf("invalid(%d)", uint8(a))
	}
}

// Type implements the method needed for pflag command flag parsing.
func (a *Algorithm) Type() string {
	return "encryption"
}

// NewSalt returns SaltSize random bytes.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, errors.Wrap(err, "rand.Read")
	}
	return salt, nil
}

// NewStream returns a fresh keystream for alg. Every payload must be
// processed with its own stream. For None, nil is returned.
func NewStream(alg Algorithm, password string, salt []byte) (cipher.Stream, error) {
	switch alg {
	case None:
		return nil, nil
	case XOR:
		return NewXORStream(password, salt), nil
	case RC4:
		return NewRC4Stream(password, salt)
	}
	return nil, errors.Errorf("unknown encryption algorithm %d", uint8(alg))
}

// Apply returns buf transformed by a fresh keystream for alg. Both ciphers
// are their own inverse, so Apply both encrypts and decrypts. buf is not
// modified.
func Apply(alg Algorithm, password string, salt []byte, buf []byte) ([]byte, error) {
	stream, err := NewStream(alg, password, salt)
	if err != nil {
		return nil, err
	}
	if stream == nil {
		return buf, nil
	}

	out := make([]byte, len(buf))
	stream.XORKeyStream(out, buf)
	return out, nil
}
