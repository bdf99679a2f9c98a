package textfile

import (
	"encoding/hex"
	"path/filepath"
	"testing"

	rtest "github.com/mirrorpack/mirrorpack/internal/test"
)

func dec(s string) []byte {
	data, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return data
}

func TestRead(t *testing.T) {
	var tests = []struct {
		data []byte
		want []byte
	}{
		{data: []byte("foo bar baz")},
		{data: []byte("Ööbär")},
		{
			data: []byte("\xef\xbb\xbffööbär"),
			want: []byte("fööbär"),
		},
		{
			data: dec("feff006600f600f6006200e40072"),
			want: []byte("fööbär"),
		},
		{
			data: dec("fffe6600f600f6006200e4007200"),
			want: []byte("fööbär"),
		},
	}

	for _, test := range tests {
		t.Run("", func(t *testing.T) {
			want := test.want
			if want == nil {
				want = test.data
			}

			name := filepath.Join(rtest.TempDir(t), "file")
			rtest.WriteFile(t, name, test.data, 0644)

			data, err := Read(name)
			rtest.OK(t, err)
			rtest.Equals(t, want, data)
		})
	}
}

func TestReadLines(t *testing.T) {
	name := filepath.Join(rtest.TempDir(t), "patterns")
	rtest.WriteFile(t, name, []byte("\xef\xbb\xbf# comment\r\n*.tmp\r\n\n  cache/  \nfoo\n"), 0644)

	lines, err := ReadLines(name)
	rtest.OK(t, err)
	rtest.Equals(t, []string{"*.tmp", "cache/", "foo"}, lines)
}

func TestReadFirstLine(t *testing.T) {
	var tests = []struct {
		data string
		want string
	}{
		{"secret\n", "secret"},
		{"secret\r\nsecond line\n", "secret"},
		{" with spaces ", " with spaces "},
		{"", ""},
	}

	for _, test := range tests {
		name := filepath.Join(rtest.TempDir(t), "password")
		rtest.WriteFile(t, name, []byte(test.data), 0600)

		line, err := ReadFirstLine(name)
		rtest.OK(t, err)
		rtest.Equals(t, test.want, line)
	}
}
