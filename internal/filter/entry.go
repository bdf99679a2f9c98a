package filter

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mirrorpack/mirrorpack/internal/data"
	"github.com/mirrorpack/mirrorpack/internal/debug"
	"github.com/mirrorpack/mirrorpack/internal/fs"
)

// TypeFilter includes entries of the listed kinds. An empty list includes
// everything.
type TypeFilter struct {
	Kinds []data.Kind
}

func (f *TypeFilter) ShouldInclude(path string) bool {
	if len(f.Kinds) == 0 {
		return true
	}

	kind, err := fs.Classify(path)
	if err != nil {
		debug.Log("classify %v: %v", path, err)
		return true
	}
	for _, k := range f.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// NameFilter includes entries whose base name contains one of the keywords.
// No keywords include everything.
type NameFilter struct {
	Keywords []string
}

func (f *NameFilter) ShouldInclude(path string) bool {
	if len(f.Keywords) == 0 {
		return true
	}

	name := filepath.Base(path)
	for _, kw := range f.Keywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

// TimeFilter includes entries modified within [After, Before]. A zero time
// disables that bound.
type TimeFilter struct {
	After  time.Time
	Before time.Time
}

func (f *TimeFilter) ShouldInclude(path string) bool {
	if f.After.IsZero() && f.Before.IsZero() {
		return true
	}

	m, err := fs.LoadMetadata(path)
	if err != nil {
		debug.Log("stat %v: %v", path, err)
		return true
	}

	mtime := m.Time()
	if !f.After.IsZero() && mtime.Before(f.After) {
		return false
	}
	if !f.Before.IsZero() && mtime.After(f.Before) {
		return false
	}
	return true
}

// SizeFilter includes regular files with a size in [Min, Max]. A negative
// bound is disabled. Entries of other kinds are always included.
type SizeFilter struct {
	Min int64
	Max int64
}

func (f *SizeFilter) ShouldInclude(path string) bool {
	if f.Min < 0 && f.Max < 0 {
		return true
	}

	fi, err := os.Lstat(path)
	if err != nil || !fi.Mode().IsRegular() {
		return true
	}

	if f.Min >= 0 && fi.Size() < f.Min {
		return false
	}
	if f.Max >= 0 && fi.Size() > f.Max {
		return false
	}
	return true
}

// UserFilter includes entries owned by UID and GID. A negative value
// disables the check.
type UserFilter struct {
	UID int64
	GID int64
}

func (f *UserFilter) ShouldInclude(path string) bool {
	if f.UID < 0 && f.GID < 0 {
		return true
	}

	m, err := fs.LoadMetadata(path)
	if err != nil {
		debug.Log("stat %v: %v", path, err)
		return true
	}

	if f.UID >= 0 && int64(m.UID) != f.UID {
		return false
	}
	if f.GID >= 0 && int64(m.GID) != f.GID {
		return false
	}
	return true
}
