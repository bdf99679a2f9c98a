package filter

import (
	"strconv"
	"time"

	"github.com/spf13/pflag"

	"github.com/mirrorpack/mirrorpack/internal/data"
	"github.com/mirrorpack/mirrorpack/internal/errors"
	"github.com/mirrorpack/mirrorpack/internal/textfile"
	"github.com/mirrorpack/mirrorpack/internal/ui"
)

// Options collects the filter command line flags.
type Options struct {
	Includes     []string
	Excludes     []string
	IncludeFiles []string
	ExcludeFiles []string
	Names        []string
	Types        []string
	NewerThan    string
	OlderThan    string
	MinSize      string
	MaxSize      string
	UID          string
	GID          string
}

// Add registers the filter flags on f.
func (opts *Options) Add(f *pflag.FlagSet) {
	f.StringArrayVarP(&opts.Includes, "include", "i", nil, "include a `pattern` (can be specified multiple times)")
	f.StringArrayVarP(&opts.Excludes, "exclude", "e", nil, "exclude a `pattern` (can be specified multiple times)")
	f.StringArrayVar(&opts.IncludeFiles, "include-file", nil, "read include patterns from a `file` (can be specified multiple times)")
	f.StringArrayVar(&opts.ExcludeFiles, "exclude-file", nil, "read exclude patterns from a `file` (can be specified multiple times)")
	f.StringArrayVar(&opts.Names, "name", nil, "only include entries whose name contains `keyword` (can be specified multiple times)")
	f.StringSliceVar(&opts.Types, "type", nil, "only include entries of `type` (file, dir, symlink, fifo, ...)")
	f.StringVar(&opts.NewerThan, "newer-than", "", "only include entries modified after `time` (date or duration like 48h)")
	f.StringVar(&opts.OlderThan, "older-than", "", "only include entries modified before `time` (date or duration like 48h)")
	f.StringVar(&opts.MinSize, "min-size", "", "only include files of at least `size` (allowed suffixes: k/K, m/M, g/G, t/T)")
	f.StringVar(&opts.MaxSize, "max-size", "", "only include files of at most `size` (allowed suffixes: k/K, m/M, g/G, t/T)")
	f.StringVar(&opts.UID, "uid", "", "only include entries owned by user `id`")
	f.StringVar(&opts.GID, "gid", "", "only include entries owned by group `id`")
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTime parses an absolute time in one of several layouts in the local
// time zone, or a duration which is subtracted from now.
func ParseTime(s string, now time.Time) (time.Time, error) {
	for _, layout := range timeLayouts {
		t, err := time.ParseInLocation(layout, s, time.Local)
		if err == nil {
			return t, nil
		}
	}

	d, err := time.ParseDuration(s)
	if err == nil && d >= 0 {
		return now.Add(-d), nil
	}

	return time.Time{}, errors.Errorf("invalid time %q", s)
}

func parseSize(flag, s string) (int64, error) {
	if s == "" {
		return -1, nil
	}
	size, err := ui.ParseBytes(s)
	if err != nil {
		return 0, errors.Fatalf("%s: %v", flag, err)
	}
	return size, nil
}

func parseID(flag, s string) (int64, error) {
	if s == "" {
		return -1, nil
	}
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, errors.Fatalf("%s: invalid id %q", flag, s)
	}
	return int64(id), nil
}

// Build returns the chain of filters selected by the options. root is the
// source directory, absolute path patterns are also anchored at it.
func (opts Options) Build(root string, now time.Time) (Chain, error) {
	var chain Chain

	includes := append([]string(nil), opts.Includes...)
	excludes := append([]string(nil), opts.Excludes...)
	for _, file := range opts.IncludeFiles {
		lines, err := textfile.ReadLines(file)
		if err != nil {
			return nil, errors.Fatalf("--include-file: %v", err)
		}
		includes = append(includes, lines...)
	}
	for _, file := range opts.ExcludeFiles {
		lines, err := textfile.ReadLines(file)
		if err != nil {
			return nil, errors.Fatalf("--exclude-file: %v", err)
		}
		excludes = append(excludes, lines...)
	}

	if err := ValidatePatterns(includes); err != nil {
		return nil, errors.Fatalf("--include: %s", err)
	}
	if err := ValidatePatterns(excludes); err != nil {
		return nil, errors.Fatalf("--exclude: %s", err)
	}
	if len(includes) > 0 || len(excludes) > 0 {
		chain.Add(&PathFilter{Root: root, Includes: includes, Excludes: excludes})
	}

	if len(opts.Names) > 0 {
		chain.Add(&NameFilter{Keywords: opts.Names})
	}

	if len(opts.Types) > 0 {
		tf := &TypeFilter{}
		for _, s := range opts.Types {
			k, err := data.ParseKind(s)
			if err != nil {
				return nil, errors.Fatalf("--type: %v", err)
			}
			tf.Kinds = append(tf.Kinds, k)
		}
		chain.Add(tf)
	}

	if opts.NewerThan != "" || opts.OlderThan != "" {
		tf := &TimeFilter{}
		var err error
		if opts.NewerThan != "" {
			if tf.After, err = ParseTime(opts.NewerThan, now); err != nil {
				return nil, errors.Fatalf("--newer-than: %v", err)
			}
		}
		if opts.OlderThan != "" {
			if tf.Before, err = ParseTime(opts.OlderThan, now); err != nil {
				return nil, errors.Fatalf("--older-than: %v", err)
			}
		}
		chain.Add(tf)
	}

	minSize, err := parseSize("--min-size", opts.MinSize)
	if err != nil {
		return nil, err
	}
	maxSize, err := parseSize("--max-size", opts.MaxSize)
	if err != nil {
		return nil, err
	}
	if minSize >= 0 || maxSize >= 0 {
		chain.Add(&SizeFilter{Min: minSize, Max: maxSize})
	}

	uid, err := parseID("--uid", opts.UID)
	if err != nil {
		return nil, err
	}
	gid, err := parseID("--gid", opts.GID)
	if err != nil {
		return nil, err
	}
	if uid >= 0 || gid >= 0 {
		chain.Add(&UserFilter{UID: uid, GID: gid})
	}

	return chain, nil
}
