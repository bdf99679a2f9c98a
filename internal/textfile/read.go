// Package textfile reads small text files written by users, such as pattern
// lists and password files. UTF-16 files with a byte order mark are converted
// to UTF-8 and a UTF-8 byte order mark is removed.
package textfile

import (
	"bytes"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"

	"github.com/mirrorpack/mirrorpack/internal/errors"
)

var (
	bomUTF8              = []byte{0xef, 0xbb, 0xbf}
	bomUTF16BigEndian    = []byte{0xfe, 0xff}
	bomUTF16LittleEndian = []byte{0xff, 0xfe}
)

// Decode removes a byte order mark and converts the bytes to UTF-8.
func Decode(data []byte) ([]byte, error) {
	if bytes.HasPrefix(data, bomUTF8) {
		return data[len(bomUTF8):], nil
	}

	if !bytes.HasPrefix(data, bomUTF16BigEndian) && !bytes.HasPrefix(data, bomUTF16LittleEndian) {
		return data, nil
	}

	// UseBOM selects the endianness from the mark
	e := unicode.UTF16(unicode.BigEndian, unicode.UseBOM)
	return e.NewDecoder().Bytes(data)
}

// Read returns the content of filename converted to UTF-8.
func Read(filename string) ([]byte, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return Decode(data)
}

// ReadLines returns the lines of filename with surrounding white space
// removed. Empty lines and lines starting with # are skipped.
func ReadLines(filename string) ([]string, error) {
	data, err := Read(filename)
	if err != nil {
		return nil, err
	}

	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// ReadFirstLine returns the first line of filename without the line ending.
// All other white space is kept.
func ReadFirstLine(filename string) (string, error) {
	data, err := Read(filename)
	if err != nil {
		return "", err
	}

	line, _, _ := strings.Cut(string(data), "\n")
	return strings.TrimSuffix(line, "\r"), nil
}
