// Package filter decides which entries of a source tree are backed up. All
// filters implement Filter and are combined with Chain, which includes an
// entry only if every filter includes it.
//
// Filters are called with the path of the entry on the local filesystem.
// Filters that need to inspect the entry do not follow symlinks, and include
// entries they cannot inspect.
package filter

import (
	"github.com/mirrorpack/mirrorpack/internal/debug"
)

// Filter decides whether the entry at path should be backed up.
type Filter interface {
	ShouldInclude(path string) bool
}

// Func adapts a function to the Filter interface.
type Func func(path string) bool

// ShouldInclude calls f(path).
func (f Func) ShouldInclude(path string) bool {
	return f(path)
}

// Chain includes an entry only if all filters include it. An empty chain
// includes everything.
type Chain []Filter

// ShouldInclude returns false as soon as one filter rejects the entry.
func (c Chain) ShouldInclude(path string) bool {
	for _, f := range c {
		if f == nil {
			continue
		}
		if !f.ShouldInclude(path) {
			debug.Log("%v rejected by %T", path, f)
			return false
		}
	}
	return true
}

// Add appends f to the chain.
func (c *Chain) Add(f Filter) {
	*c = append(*c, f)
}
