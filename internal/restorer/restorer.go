// Package restorer recreates the entries of a repository in a target
// directory.
package restorer

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/mirrorpack/mirrorpack/internal/data"
	"github.com/mirrorpack/mirrorpack/internal/debug"
	"github.com/mirrorpack/mirrorpack/internal/errors"
	"github.com/mirrorpack/mirrorpack/internal/repository"
	"github.com/mirrorpack/mirrorpack/internal/ui/progress"
)

// Options configure a Restore.
type Options struct {
	// Verify compares the content of each restored file with its blob.
	Verify bool
	// Reporter receives the progress. Defaults to progress.NoopReporter.
	Reporter progress.Reporter
}

// Restore restores a repository.
type Restore struct {
	repo *repository.Repository
	opts Options
}

// New returns a Restore reading from repo.
func New(repo *repository.Repository, opts Options) *Restore {
	if opts.Reporter == nil {
		opts.Reporter = progress.NoopReporter{}
	}
	return &Restore{repo: repo, opts: opts}
}

func hashFile(name string) (uint64, int64, error) {
	f, err := os.Open(name)
	if err != nil {
		return 0, 0, errors.WithStack(err)
	}
	defer func() {
		_ = f.Close()
	}()

	h := xxhash.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return 0, 0, errors.Wrap(err, "Copy")
	}
	return h.Sum64(), n, nil
}

// verifyFile checks that target has the same content as the blob of rel.
func (r *Restore) verifyFile(rel, target string) error {
	want, wantSize, err := hashFile(r.repo.BlobPath(rel))
	if err != nil {
		return err
	}
	got, gotSize, err := hashFile(target)
	if err != nil {
		return err
	}
	if wantSize != gotSize || want != got {
		return errors.Errorf("verify: content differs from the repository (%d bytes, expected %d)", gotSize, wantSize)
	}
	return nil
}

// Execute restores every index entry below targetRoot. Entries are processed
// in path order so that directories come before their content. Errors of
// single entries are counted and passed to the reporter. The context is
// checked before each entry.
func (r *Restore) Execute(ctx context.Context, targetRoot string) (stats progress.Stats, err error) {
	start := time.Now()
	report := r.opts.Reporter

	if err := os.MkdirAll(targetRoot, 0755); err != nil {
		return stats, errors.Wrap(err, "MkdirAll")
	}

	entries := r.repo.List()
	stats.Total = len(entries)
	report.Start("restore", len(entries))
	debug.Log("restore to %v: %d entries", targetRoot, len(entries))

	defer func() {
		stats.Duration = time.Since(start)
		report.Complete(stats, err == nil && stats.Failed == 0)
	}()

	for i, e := range entries {
		if ctx.Err() != nil {
			debug.Log("restore canceled after %d entries", i)
			return stats, ctx.Err()
		}

		report.Progress(e.Path, i+1, len(entries))
		if err := repository.ValidPath(e.Path); err != nil {
			stats.Failed++
			report.Error(e.Path, err)
			continue
		}

		target := filepath.Join(targetRoot, filepath.FromSlash(e.Path))
		m, err := r.repo.Restore(e.Path, target)
		if err != nil {
			stats.Failed++
			report.Error(e.Path, err)
			continue
		}

		if m.Kind == data.KindRegular {
			if r.opts.Verify {
				if err := r.verifyFile(e.Path, target); err != nil {
					stats.Failed++
					report.Error(e.Path, err)
					continue
				}
			}
			if fi, err := os.Lstat(target); err == nil {
				stats.Bytes += uint64(fi.Size())
			}
		}

		stats.Succeeded++
		report.Success(e.Path)
	}

	return stats, nil
}
