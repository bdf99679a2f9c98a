package data

import (
	"fmt"
	"strings"
)

// Kind is the type of a filesystem entry. The numeric values are written to
// the repository index and must not change.
type Kind uint8

const (
	KindRegular Kind = iota
	KindDirectory
	KindSymlink
	KindBlockDevice
	KindCharDevice
	KindFifo
	KindSocket

	numKinds
)

var kindNames = [...]string{
	KindRegular:     "file",
	KindDirectory:   "dir",
	KindSymlink:     "symlink",
	KindBlockDevice: "blockdev",
	KindCharDevice:  "chardev",
	KindFifo:        "fifo",
	KindSocket:      "socket",
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool { return k < numKinds }

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("invalid(%d)", uint8(k))
	}
	return kindNames[k]
}

// HasContent reports whether entries of this kind keep their bytes in the
// repository's data area.
func (k Kind) HasContent() bool { return k == KindRegular }

// IsDevice reports whether k is a block or character device.
func (k Kind) IsDevice() bool { return k == KindBlockDevice || k == KindCharDevice }

// Kinds returns all known kinds in code order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, numKinds)
	for k := Kind(0); k < numKinds; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// ParseKind parses the name of a kind as returned by Kind.String. A few
// common aliases are accepted as well.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "file", "regular", "f":
		return KindRegular, nil
	case "dir", "directory", "d":
		return KindDirectory, nil
	case "symlink", "link", "l":
		return KindSymlink, nil
	case "blockdev", "block", "b":
		return KindBlockDevice, nil
	case "chardev", "char", "c":
		return KindCharDevice, nil
	case "fifo", "pipe", "p":
		return KindFifo, nil
	case "socket", "sock", "s":
		return KindSocket, nil
	}
	return 0, fmt.Errorf("unknown file type %q", s)
}
