// Package ui contains helpers for formatting values shown to the user.
package ui

import (
	"fmt"
	"math/bits"
	"os"
	"strconv"
	"time"
	"unicode"

	"github.com/mirrorpack/mirrorpack/internal/errors"
)

// FormatBytes formats c with a binary unit suffix.
func FormatBytes(c uint64) string {
	b := float64(c)
	switch {
	case c >= 1<<40:
		return fmt.Sprintf("%.3f TiB", b/(1<<40))
	case c >= 1<<30:
		return fmt.Sprintf("%.3f GiB", b/(1<<30))
	case c >= 1<<20:
		return fmt.Sprintf("%.3f MiB", b/(1<<20))
	case c >= 1<<10:
		return fmt.Sprintf("%.3f KiB", b/(1<<10))
	default:
		return fmt.Sprintf("%d B", c)
	}
}

// FormatPercent formats numerator/denominator as a percentage.
func FormatPercent(numerator uint64, denominator uint64) string {
	if denominator == 0 {
		return ""
	}

	percent := 100.0 * float64(numerator) / float64(denominator)
	if percent > 100 {
		percent = 100
	}

	return fmt.Sprintf("%3.2f%%", percent)
}

// FormatDuration formats d as MM:SS, or HH:MM:SS if d is at least an hour.
func FormatDuration(d time.Duration) string {
	sec := uint64(d / time.Second)
	hours := sec / 3600
	sec -= hours * 3600
	mins := sec / 60
	sec -= mins * 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, mins, sec)
	}
	return fmt.Sprintf("%d:%02d", mins, sec)
}

// FormatMode formats the permission and type bits of a stat mode like ls
// does, for example "drwxr-xr-x".
func FormatMode(mode uint32) string {
	fm := os.FileMode(mode & 0777)
	switch mode & 0170000 {
	case 0040000:
		fm |= os.ModeDir
	case 0120000:
		fm |= os.ModeSymlink
	case 0060000:
		fm |= os.ModeDevice
	case 0020000:
		fm |= os.ModeDevice | os.ModeCharDevice
	case 0010000:
		fm |= os.ModeNamedPipe
	case 0140000:
		fm |= os.ModeSocket
	}
	if mode&04000 != 0 {
		fm |= os.ModeSetuid
	}
	if mode&02000 != 0 {
		fm |= os.ModeSetgid
	}
	if mode&01000 != 0 {
		fm |= os.ModeSticky
	}
	return fm.String()
}

// ParseBytes parses a size in bytes from s. It understands the suffixes
// B, K, M, G and T for powers of 1024.
func ParseBytes(s string) (int64, error) {
	if s == "" {
		return 0, errors.New("expected size, got empty string")
	}

	numStr := s[:len(s)-1]
	var unit uint64 = 1

	switch s[len(s)-1] {
	case 'b', 'B':
	case 'k', 'K':
		unit = 1 << 10
	case 'm', 'M':
		unit = 1 << 20
	case 'g', 'G':
		unit = 1 << 30
	case 't', 'T':
		unit = 1 << 40
	default:
		numStr = s
	}
	value, err := strconv.ParseInt(numStr, 10, 64)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	if value < 0 {
		return 0, errors.Errorf("negative size %q", s)
	}

	hi, lo := bits.Mul64(uint64(value), unit)
	value = int64(lo)
	if hi != 0 || value < 0 {
		return 0, errors.Wrapf(strconv.ErrRange, "ParseBytes: %q", numStr)
	}

	return value, nil
}

// Quote lines with funny characters in them, meaning control chars, newlines,
// tabs, anything else non-printable and invalid UTF-8.
func Quote(line string) string {
	for _, r := range line {
		// The replacement character usually means the input is not UTF-8.
		if r == unicode.ReplacementChar || !unicode.IsPrint(r) {
			return strconv.Quote(line)
		}
	}
	return line
}
