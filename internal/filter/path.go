package filter

import (
	"path/filepath"
	"strings"

	"github.com/mirrorpack/mirrorpack/internal/debug"
	"github.com/mirrorpack/mirrorpack/internal/errors"
)

// PathFilter includes or excludes entries by path patterns. An entry matching
// any exclude pattern is rejected. If include patterns are given, an entry
// must match at least one of them.
//
// Patterns are split into components which are matched with filepath.Match.
// A relative pattern matches a run of consecutive components anywhere in the
// path, so "cache" matches a cache directory at any depth and everything below
// it. An absolute pattern is anchored at the start of the path. The component
// "**" matches any number of intermediate directories. A trailing slash is
// ignored.
//
// If Root is set, absolute patterns are also matched against the path below
// Root, so that "/cache" selects only the cache directory at the top of the
// source tree.
type PathFilter struct {
	Root     string
	Includes []string
	Excludes []string

	prepared bool
	includes []Pattern
	excludes []Pattern
}

var _ Filter = &PathFilter{}

// ValidatePatterns returns an error listing all invalid patterns.
func ValidatePatterns(patterns []string) error {
	var invalid []string
	for _, p := range patterns {
		if p == "" {
			invalid = append(invalid, `""`)
			continue
		}
		for _, c := range preparePattern(p) {
			if _, err := filepath.Match(c, ""); err != nil {
				invalid = append(invalid, p)
				break
			}
		}
	}

	if len(invalid) > 0 {
		return errors.Errorf("invalid pattern(s) provided:\n%s", strings.Join(invalid, "\n"))
	}
	return nil
}

// candidates returns the forms of p the patterns are matched against.
func (f *PathFilter) candidates(p string) []string {
	if f.Root == "" {
		return []string{p}
	}

	rel, err := filepath.Rel(f.Root, p)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return []string{p}
	}
	return []string{p, string(filepath.Separator) + rel}
}

func (f *PathFilter) matchAny(patterns []Pattern, candidates []string) bool {
	for _, c := range candidates {
		matched, err := List(patterns, c)
		if err != nil {
			debug.Log("matching %v failed: %v", c, err)
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// ShouldInclude applies the exclude patterns first, then the include
// patterns.
func (f *PathFilter) ShouldInclude(p string) bool {
	if len(f.Includes) == 0 && len(f.Excludes) == 0 {
		return true
	}

	if !f.prepared {
		f.includes = ParsePatterns(f.Includes)
		f.excludes = ParsePatterns(f.Excludes)
		f.prepared = true
	}

	candidates := f.candidates(p)
	if f.matchAny(f.excludes, candidates) {
		return false
	}
	if len(f.includes) > 0 {
		return f.matchAny(f.includes, candidates)
	}
	return true
}
