// Package archiver walks a source directory and stores every eligible entry
// in a repository.
package archiver

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/mirrorpack/mirrorpack/internal/data"
	"github.com/mirrorpack/mirrorpack/internal/debug"
	"github.com/mirrorpack/mirrorpack/internal/errors"
	"github.com/mirrorpack/mirrorpack/internal/filter"
	mpfs "github.com/mirrorpack/mirrorpack/internal/fs"
	"github.com/mirrorpack/mirrorpack/internal/repository"
	"github.com/mirrorpack/mirrorpack/internal/ui/progress"
)

// Options configure a Backup.
type Options struct {
	// Policy selects the kinds which are backed up. Defaults to
	// fs.MinimalPolicy.
	Policy mpfs.Policy
	// Reporter receives the progress. Defaults to progress.NoopReporter.
	Reporter progress.Reporter
}

// Backup copies a directory tree into a repository.
type Backup struct {
	repo *repository.Repository
	opts Options
}

// New returns a Backup storing into repo.
func New(repo *repository.Repository, opts Options) *Backup {
	if opts.Policy == 0 {
		opts.Policy = mpfs.MinimalPolicy
	}
	if opts.Reporter == nil {
		opts.Reporter = progress.NoopReporter{}
	}
	return &Backup{repo: repo, opts: opts}
}

type item struct {
	path string
	size int64
	err  error
}

// collect lists all entries below root in directory tree order. Entries
// which cannot be read are returned with their error. The repository root
// is skipped if it is located inside the source tree.
func (b *Backup) collect(root string) []item {
	repoInfo, _ := os.Stat(b.repo.Root())

	var items []item
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			items = append(items, item{path: path, err: err})
			return nil
		}
		if path == root {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			items = append(items, item{path: path, err: errors.WithStack(err)})
			return nil
		}

		if d.IsDir() && repoInfo != nil && os.SameFile(fi, repoInfo) {
			debug.Log("skipping repository %v inside the source", path)
			return filepath.SkipDir
		}

		it := item{path: path}
		if fi.Mode().IsRegular() {
			it.size = fi.Size()
		}
		items = append(items, it)
		return nil
	})
	return items
}

// Execute stores all entries below sourceRoot that f includes and the
// policy allows, then saves the index. Entries are added to an existing
// index. Errors of single entries are counted and passed to the reporter, the
// returned error is only set if the whole operation failed. The context is
// checked before each entry; on cancellation the entries stored so far are
// saved and the context's error is returned.
func (b *Backup) Execute(ctx context.Context, sourceRoot string, f filter.Filter) (stats progress.Stats, err error) {
	start := time.Now()
	report := b.opts.Reporter

	fi, err := os.Stat(sourceRoot)
	if err != nil {
		return stats, errors.Wrap(err, "source")
	}
	if !fi.IsDir() {
		return stats, errors.Errorf("source %v is not a directory", sourceRoot)
	}

	if err := b.repo.Initialize(); err != nil {
		return stats, err
	}

	items := b.collect(sourceRoot)
	stats.Total = len(items)
	report.Start("backup", len(items))
	debug.Log("backup of %v: %d entries, policy %v", sourceRoot, len(items), b.opts.Policy)

	defer func() {
		stats.Duration = time.Since(start)
		report.Complete(stats, err == nil && stats.Failed == 0)
	}()

	for i, it := range items {
		if ctx.Err() != nil {
			debug.Log("backup canceled after %d entries", i)
			if serr := b.repo.Save(); serr != nil {
				return stats, serr
			}
			return stats, ctx.Err()
		}

		rel, err := filepath.Rel(sourceRoot, it.path)
		if err != nil {
			rel = it.path
		}
		rel = filepath.ToSlash(rel)

		report.Progress(rel, i+1, len(items))
		if it.err != nil {
			stats.Failed++
			report.Error(rel, it.err)
			continue
		}

		if f != nil && !f.ShouldInclude(it.path) {
			stats.Skipped++
			report.Skipped(rel, "excluded by filter")
			continue
		}

		m, err := mpfs.LoadMetadata(it.path)
		if err != nil {
			stats.Failed++
			report.Error(rel, err)
			continue
		}

		if !b.opts.Policy.Eligible(m.Kind) {
			stats.Skipped++
			report.Skipped(rel, "unsupported file type "+m.Kind.String())
			continue
		}

		if err := b.repo.Store(it.path, rel, m); err != nil {
			stats.Failed++
			report.Error(rel, err)
			continue
		}

		if m.Kind == data.KindRegular {
			stats.Bytes += uint64(it.size)
		}
		stats.Succeeded++
		report.Success(rel)
	}

	if err := b.repo.Save(); err != nil {
		return stats, err
	}
	return stats, nil
}
