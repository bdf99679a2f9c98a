package ui

import (
	"testing"
	"time"

	rtest "github.com/mirrorpack/mirrorpack/internal/test"
)

func TestFormatBytes(t *testing.T) {
	for _, c := range []struct {
		size uint64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.000 KiB"},
		{5<<20 + 1<<19, "5.500 MiB"},
		{1 << 30, "1.000 GiB"},
		{1 << 40, "1.000 TiB"},
	} {
		if got := FormatBytes(c.size); got != c.want {
			t.Errorf("want %q, got %q", c.want, got)
		}
	}
}

func TestFormatPercent(t *testing.T) {
	rtest.Equals(t, "", FormatPercent(1, 0))
	rtest.Equals(t, "0.00%", FormatPercent(0, 10))
	rtest.Equals(t, "33.33%", FormatPercent(1, 3))
	rtest.Equals(t, "100.00%", FormatPercent(7, 5))
}

func TestFormatDuration(t *testing.T) {
	rtest.Equals(t, "0:05", FormatDuration(5*time.Second))
	rtest.Equals(t, "2:03", FormatDuration(123*time.Second))
	rtest.Equals(t, "1:00:01", FormatDuration(time.Hour+time.Second))
}

func TestFormatMode(t *testing.T) {
	for _, c := range []struct {
		mode uint32
		want string
	}{
		{0100644, "-rw-r--r--"},
		{040755, "drwxr-xr-x"},
		{0120777, "Lrwxrwxrwx"},
		{010600, "prw-------"},
		{020666, "Dcrw-rw-rw-"},
		{0104755, "urwxr-xr-x"},
	} {
		rtest.Equals(t, c.want, FormatMode(c.mode))
	}
}

func TestParseBytes(t *testing.T) {
	for _, tt := range []struct {
		in       string
		expected int64
	}{
		{"1024", 1024},
		{"1024b", 1024},
		{"1k", 1024},
		{"100K", 102400},
		{"10M", 10485760},
		{"20G", 21474836480},
		{"2T", 2199023255552},
	} {
		actual, err := ParseBytes(tt.in)
		rtest.OK(t, err)
		rtest.Equals(t, tt.expected, actual)
	}

	for _, s := range []string{"", " ", "foobar", "zzz", "-1", "9223372036854775807T"} {
		_, err := ParseBytes(s)
		rtest.Assert(t, err != nil, "expected error for %q", s)
	}
}

func TestQuote(t *testing.T) {
	rtest.Equals(t, "plain/path", Quote("plain/path"))
	rtest.Equals(t, `"new\nline"`, Quote("new\nline"))
}
