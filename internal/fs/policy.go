package fs

import (
	"strings"

	"github.com/mirrorpack/mirrorpack/internal/data"
)

// Policy is the set of kinds that are eligible for backup. The zero value
// allows nothing.
type Policy uint16

// MinimalPolicy backs up regular files, directories and symlinks.
var MinimalPolicy = NewPolicy(data.KindRegular, data.KindDirectory, data.KindSymlink)

// FifoPolicy additionally backs up named pipes.
var FifoPolicy = MinimalPolicy.With(data.KindFifo)

// NewPolicy returns a policy allowing exactly kinds.
func NewPolicy(kinds ...data.Kind) Policy {
	return Policy(0).With(kinds...)
}

// With returns a copy of p which also allows kinds.
func (p Policy) With(kinds ...data.Kind) Policy {
	for _, k := range kinds {
		if k.Valid() {
			p |= 1 << k
		}
	}
	return p
}

// Without returns a copy of p which does not allow kinds.
func (p Policy) Without(kinds ...data.Kind) Policy {
	for _, k := range kinds {
		if k.Valid() {
			p &^= 1 << k
		}
	}
	return p
}

// Eligible reports whether entries of kind k may be backed up.
func (p Policy) Eligible(k data.Kind) bool {
	return k.Valid() && p&(1<<k) != 0
}

func (p Policy) String() string {
	var names []string
	for _, k := range data.Kinds() {
		if p.Eligible(k) {
			names = append(names, k.String())
		}
	}
	return strings.Join(names, ",")
}
