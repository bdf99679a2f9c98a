package restorer_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mirrorpack/mirrorpack/internal/archiver"
	"github.com/mirrorpack/mirrorpack/internal/data"
	"github.com/mirrorpack/mirrorpack/internal/fs"
	"github.com/mirrorpack/mirrorpack/internal/repository"
	"github.com/mirrorpack/mirrorpack/internal/restorer"
	rtest "github.com/mirrorpack/mirrorpack/internal/test"
	"github.com/mirrorpack/mirrorpack/internal/ui/progress"
)

func backup(t testing.TB, source, root string) *repository.Repository {
	t.Helper()
	repo := repository.New(root)
	_, err := archiver.New(repo, archiver.Options{Policy: fs.FifoPolicy}).Execute(context.TODO(), source, nil)
	rtest.OK(t, err)
	return repo
}

func TestRestoreRoundTrip(t *testing.T) {
	tempdir := rtest.TempDir(t)
	source := filepath.Join(tempdir, "source")

	content := rtest.Random(9, 50000)
	rtest.WriteFile(t, filepath.Join(source, "dir", "file"), content, 0600)
	rtest.WriteFile(t, filepath.Join(source, "empty"), nil, 0644)
	rtest.OK(t, os.Symlink("dir/file", filepath.Join(source, "link")))
	rtest.OK(t, os.Symlink("/does/not/exist", filepath.Join(source, "dangling")))
	rtest.OK(t, fs.Mkfifo(filepath.Join(source, "dir", "pipe"), 0620))
	rtest.OK(t, os.Chmod(filepath.Join(source, "dir", "pipe"), 0620))

	backup(t, source, filepath.Join(tempdir, "repo"))

	repo, err := repository.Open(filepath.Join(tempdir, "repo"))
	rtest.OK(t, err)

	target := filepath.Join(tempdir, "target")
	stats, err := restorer.New(repo, restorer.Options{Verify: true}).Execute(context.TODO(), target)
	rtest.OK(t, err)
	rtest.Equals(t, 6, stats.Succeeded)
	rtest.Equals(t, 0, stats.Failed)
	rtest.Equals(t, uint64(len(content)), stats.Bytes)

	rtest.Assert(t, bytes.Equal(content, rtest.ReadFile(t, filepath.Join(target, "dir", "file"))), "content differs")
	rtest.Equals(t, 0, len(rtest.ReadFile(t, filepath.Join(target, "empty"))))

	for name, want := range map[string]string{"link": "dir/file", "dangling": "/does/not/exist"} {
		got, err := os.Readlink(filepath.Join(target, name))
		rtest.OK(t, err)
		rtest.Equals(t, want, got)
	}

	fi, err := os.Lstat(filepath.Join(target, "dir", "pipe"))
	rtest.OK(t, err)
	rtest.Assert(t, fi.Mode()&os.ModeNamedPipe != 0, "pipe is not a fifo")
	rtest.Equals(t, os.FileMode(0620), fi.Mode().Perm())

	// restoring again over the existing tree succeeds
	stats, err = restorer.New(repo, restorer.Options{}).Execute(context.TODO(), target)
	rtest.OK(t, err)
	rtest.Equals(t, 0, stats.Failed)
}

func TestRestoreMtime(t *testing.T) {
	tempdir := rtest.TempDir(t)
	source := filepath.Join(tempdir, "source")
	file := filepath.Join(source, "file")
	rtest.WriteFile(t, file, []byte("x"), 0644)

	repo := backup(t, source, filepath.Join(tempdir, "repo"))
	// the index records the time, not the file system
	m, ok := repo.Lookup("file")
	rtest.Assert(t, ok, "file not in index")
	m.ModTime = 1000000000
	rtest.OK(t, repo.Store(file, "file", m))

	target := filepath.Join(tempdir, "target")
	_, err := restorer.New(repo, restorer.Options{}).Execute(context.TODO(), target)
	rtest.OK(t, err)

	fi, err := os.Stat(filepath.Join(target, "file"))
	rtest.OK(t, err)
	rtest.Equals(t, int64(1000000000), fi.ModTime().Unix())
}

func TestRestoreAfterDirectoryReplacedBySymlink(t *testing.T) {
	tempdir := rtest.TempDir(t)
	source := filepath.Join(tempdir, "source")
	outside := filepath.Join(tempdir, "outside")
	rtest.OK(t, os.Mkdir(outside, 0755))
	rtest.WriteFile(t, filepath.Join(source, "d", "x"), []byte("inside"), 0644)
	backup(t, source, filepath.Join(tempdir, "repo"))

	rtest.OK(t, os.RemoveAll(filepath.Join(source, "d")))
	rtest.OK(t, os.Symlink(outside, filepath.Join(source, "d")))
	repo := backup(t, source, filepath.Join(tempdir, "repo"))

	_, ok := repo.Lookup("d/x")
	rtest.Assert(t, !ok, "d/x is still in the index")

	target := filepath.Join(tempdir, "target")
	stats, err := restorer.New(repo, restorer.Options{}).Execute(context.TODO(), target)
	rtest.OK(t, err)
	rtest.Equals(t, 0, stats.Failed)

	_, err = os.Lstat(filepath.Join(outside, "x"))
	rtest.Assert(t, os.IsNotExist(err), "restore wrote below the symlink target")
	got, err := os.Readlink(filepath.Join(target, "d"))
	rtest.OK(t, err)
	rtest.Equals(t, outside, got)
}

func TestRestoreAfterDirectoryReplacedByFile(t *testing.T) {
	tempdir := rtest.TempDir(t)
	source := filepath.Join(tempdir, "source")
	rtest.WriteFile(t, filepath.Join(source, "d", "x"), []byte("inside"), 0644)
	backup(t, source, filepath.Join(tempdir, "repo"))

	rtest.OK(t, os.RemoveAll(filepath.Join(source, "d")))
	rtest.WriteFile(t, filepath.Join(source, "d"), []byte("file"), 0644)

	repo := repository.New(filepath.Join(tempdir, "repo"))
	stats, err := archiver.New(repo, archiver.Options{Policy: fs.FifoPolicy}).Execute(context.TODO(), source, nil)
	rtest.OK(t, err)
	rtest.Equals(t, 0, stats.Failed)

	target := filepath.Join(tempdir, "target")
	stats, err = restorer.New(repo, restorer.Options{Verify: true}).Execute(context.TODO(), target)
	rtest.OK(t, err)
	rtest.Equals(t, 0, stats.Failed)
	rtest.Equals(t, []byte("file"), rtest.ReadFile(t, filepath.Join(target, "d")))
}

type countingReporter struct {
	progress.NoopReporter
	errors int
}

func (r *countingReporter) Error(string, error) { r.errors++ }

func TestRestoreEntryErrorsDoNotAbort(t *testing.T) {
	tempdir := rtest.TempDir(t)
	repo := repository.New(filepath.Join(tempdir, "repo"))
	rtest.OK(t, repo.Initialize())

	// regular file without blob
	rtest.OK(t, repo.Store("", "dir", data.Metadata{Kind: data.KindDirectory, Mode: 040755}))
	rtest.OK(t, os.WriteFile(filepath.Join(tempdir, "repo", repository.IndexFile),
		[]byte("broken\t33188:0:0:0:0:0:0:0:\nlink\t41471:0:0:0:2:0:0:1:target\n"), 0644))
	rtest.OK(t, repo.Load())

	rec := &countingReporter{}
	stats, err := restorer.New(repo, restorer.Options{Reporter: rec}).Execute(context.TODO(), filepath.Join(tempdir, "target"))
	rtest.OK(t, err)
	rtest.Equals(t, 1, stats.Failed)
	rtest.Equals(t, 1, stats.Succeeded)
	rtest.Equals(t, 1, rec.errors)
}

func TestRestoreCanceled(t *testing.T) {
	tempdir := rtest.TempDir(t)
	source := filepath.Join(tempdir, "source")
	rtest.WriteFile(t, filepath.Join(source, "file"), []byte("x"), 0644)
	repo := backup(t, source, filepath.Join(tempdir, "repo"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := restorer.New(repo, restorer.Options{}).Execute(ctx, filepath.Join(tempdir, "target"))
	rtest.Assert(t, err == context.Canceled, "expected context.Canceled, got %v", err)
	rtest.Equals(t, 0, stats.Succeeded)
}
