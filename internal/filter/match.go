package filter

import (
	"path/filepath"
	"strings"

	"github.com/mirrorpack/mirrorpack/internal/errors"
)

// ErrBadString is returned when List is called with the empty string.
var ErrBadString = errors.New("filter.List: string is empty")

// Pattern is a parsed path pattern, one element per path component. An
// absolute pattern starts with an empty element.
type Pattern []string

func prepareStr(str string) ([]string, error) {
	if str == "" {
		return nil, ErrBadString
	}

	// convert file path separator to '/'
	if filepath.Separator != '/' {
		str = strings.ReplaceAll(str, string(filepath.Separator), "/")
	}

	return strings.Split(str, "/"), nil
}

func preparePattern(pattern string) Pattern {
	pattern = filepath.Clean(pattern)

	// convert file path separator to '/'
	if filepath.Separator != '/' {
		pattern = strings.ReplaceAll(pattern, string(filepath.Separator), "/")
	}

	return strings.Split(pattern, "/")
}

func hasDoubleWildcard(list Pattern) (ok bool, pos int) {
	for i, item := range list {
		if item == "**" {
			return true, i
		}
	}

	return false, 0
}

// match reports whether a run of consecutive components of strs matches
// patterns. Absolute patterns must match from the first component on, "**"
// matches any number of components.
func match(patterns Pattern, strs []string) (matched bool, err error) {
	if ok, pos := hasDoubleWildcard(patterns); ok {
		// expand '**' into zero, one, two ... single wildcards
		newPat := make(Pattern, len(strs))
		copy(newPat, patterns[:pos])
		for i := 0; i <= len(strs)-len(patterns)+1; i++ {
			newPat := newPat[:pos+i]
			if i > 0 {
				newPat[pos+i-1] = "*"
			}
			newPat = append(newPat, patterns[pos+1:]...)

			matched, err := match(newPat, strs)
			if err != nil {
				return false, err
			}
			if matched {
				return true, nil
			}
		}

		return false, nil
	}

	if len(patterns) == 0 && len(strs) == 0 {
		return true, nil
	}

	if len(patterns) <= len(strs) {
		maxOffset := len(strs) - len(patterns)
		if patterns[0] == "" {
			maxOffset = 0
		}
	outer:
		for offset := maxOffset; offset >= 0; offset-- {
			for i := len(patterns) - 1; i >= 0; i-- {
				ok, err := filepath.Match(patterns[i], strs[offset+i])
				if err != nil {
					return false, errors.Wrap(err, "Match")
				}
				if !ok {
					continue outer
				}
			}

			return true, nil
		}
	}

	return false, nil
}

// ParsePatterns prepares a list of patterns for use with List. Empty patterns
// are dropped.
func ParsePatterns(patterns []string) []Pattern {
	parsed := make([]Pattern, 0, len(patterns))
	for _, pat := range patterns {
		if pat == "" {
			continue
		}
		parsed = append(parsed, preparePattern(pat))
	}
	return parsed
}

// List returns true if str matches one of the patterns. When a pattern is
// malformed, filepath.ErrBadPattern is returned.
func List(patterns []Pattern, str string) (matched bool, err error) {
	if len(patterns) == 0 {
		return false, nil
	}

	strs, err := prepareStr(str)
	if err != nil {
		return false, err
	}
	for _, pat := range patterns {
		m, err := match(pat, strs)
		if err != nil {
			return false, err
		}
		if m {
			return true, nil
		}
	}

	return false, nil
}
