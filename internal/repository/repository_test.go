package repository_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mirrorpack/mirrorpack/internal/data"
	"github.com/mirrorpack/mirrorpack/internal/errors"
	"github.com/mirrorpack/mirrorpack/internal/fs"
	"github.com/mirrorpack/mirrorpack/internal/repository"
	rtest "github.com/mirrorpack/mirrorpack/internal/test"
)

func storePath(t testing.TB, repo *repository.Repository, root, rel string) {
	t.Helper()
	source := filepath.Join(root, filepath.FromSlash(rel))
	m, err := fs.LoadMetadata(source)
	rtest.OK(t, err)
	rtest.OK(t, repo.Store(source, rel, m))
}

func TestBackupRestoreScenario(t *testing.T) {
	tempdir := rtest.TempDir(t)
	source := filepath.Join(tempdir, "source")

	rtest.WriteFile(t, filepath.Join(source, "a.txt"), []byte("hello world"), 0644)
	rtest.OK(t, os.Symlink("a.txt", filepath.Join(source, "link_to_a")))
	rtest.OK(t, fs.Mkfifo(filepath.Join(source, "myfifo"), 0640))
	rtest.OK(t, os.Chmod(filepath.Join(source, "myfifo"), 0640))

	repo := repository.New(filepath.Join(tempdir, "repo"))
	rtest.OK(t, repo.Initialize())
	for _, rel := range []string{"a.txt", "link_to_a", "myfifo"} {
		storePath(t, repo, source, rel)
	}
	rtest.OK(t, repo.Save())

	// only the regular file has a blob
	rtest.Equals(t, []byte("hello world"), rtest.ReadFile(t, repo.BlobPath("a.txt")))
	for _, rel := range []string{"link_to_a", "myfifo"} {
		_, err := os.Lstat(repo.BlobPath(rel))
		rtest.Assert(t, errors.Is(err, os.ErrNotExist), "unexpected blob for %v", rel)
	}

	repo, err := repository.Open(filepath.Join(tempdir, "repo"))
	rtest.OK(t, err)
	rtest.Equals(t, 3, repo.Len())

	kinds := make(map[string]data.Kind)
	for _, e := range repo.List() {
		kinds[e.Path] = e.Metadata.Kind
	}
	rtest.Equals(t, map[string]data.Kind{
		"a.txt":     data.KindRegular,
		"link_to_a": data.KindSymlink,
		"myfifo":    data.KindFifo,
	}, kinds)

	target := filepath.Join(tempdir, "target")
	for _, e := range repo.List() {
		_, err := repo.Restore(e.Path, filepath.Join(target, e.Path))
		rtest.OK(t, err)
	}

	rtest.Equals(t, []byte("hello world"), rtest.ReadFile(t, filepath.Join(target, "a.txt")))
	fi, err := os.Lstat(filepath.Join(target, "a.txt"))
	rtest.OK(t, err)
	rtest.Equals(t, os.FileMode(0644), fi.Mode().Perm())

	linkTarget, err := os.Readlink(filepath.Join(target, "link_to_a"))
	rtest.OK(t, err)
	rtest.Equals(t, "a.txt", linkTarget)

	fi, err = os.Lstat(filepath.Join(target, "myfifo"))
	rtest.OK(t, err)
	rtest.Assert(t, fi.Mode()&os.ModeNamedPipe != 0, "myfifo is not a named pipe: %v", fi.Mode())
	rtest.Equals(t, os.FileMode(0640), fi.Mode().Perm())
}

func TestRestoreOverwrites(t *testing.T) {
	tempdir := rtest.TempDir(t)
	source := filepath.Join(tempdir, "source")
	rtest.WriteFile(t, filepath.Join(source, "file"), []byte("new content"), 0600)
	rtest.OK(t, os.Symlink("file", filepath.Join(source, "link")))

	repo := repository.New(filepath.Join(tempdir, "repo"))
	rtest.OK(t, repo.Initialize())
	storePath(t, repo, source, "file")
	storePath(t, repo, source, "link")

	target := filepath.Join(tempdir, "target")
	rtest.WriteFile(t, filepath.Join(target, "file"), []byte("old and longer content"), 0644)
	rtest.WriteFile(t, filepath.Join(target, "link", "sub"), []byte("in the way"), 0644)

	for i := 0; i < 2; i++ {
		_, err := repo.Restore("file", filepath.Join(target, "file"))
		rtest.OK(t, err)
		_, err = repo.Restore("link", filepath.Join(target, "link"))
		rtest.OK(t, err)
	}

	rtest.Equals(t, []byte("new content"), rtest.ReadFile(t, filepath.Join(target, "file")))
	linkTarget, err := os.Readlink(filepath.Join(target, "link"))
	rtest.OK(t, err)
	rtest.Equals(t, "file", linkTarget)
}

func TestRestoreDirectoryKeepsContent(t *testing.T) {
	tempdir := rtest.TempDir(t)
	repo := repository.New(filepath.Join(tempdir, "repo"))
	rtest.OK(t, repo.Initialize())
	rtest.OK(t, repo.Store("", "dir", data.Metadata{Kind: data.KindDirectory, Mode: 040755}))

	target := filepath.Join(tempdir, "target", "dir")
	rtest.WriteFile(t, filepath.Join(target, "child"), []byte("keep me"), 0644)

	_, err := repo.Restore("dir", target)
	rtest.OK(t, err)
	rtest.Equals(t, []byte("keep me"), rtest.ReadFile(t, filepath.Join(target, "child")))

	other := filepath.Join(tempdir, "target", "other")
	rtest.OK(t, repo.Store("", "other", data.Metadata{Kind: data.KindDirectory, Mode: 040755}))
	_, err = repo.Restore("other", other)
	rtest.OK(t, err)
	fi, err := os.Stat(other)
	rtest.OK(t, err)
	rtest.Assert(t, fi.IsDir(), "%v is not a directory", other)
}

func TestRestoreDeviceIsSkipped(t *testing.T) {
	tempdir := rtest.TempDir(t)
	repo := repository.New(filepath.Join(tempdir, "repo"))
	rtest.OK(t, repo.Initialize())

	var warnings []string
	repo.Warnf = func(msg string, args ...interface{}) {
		warnings = append(warnings, msg)
	}

	for _, kind := range []data.Kind{data.KindBlockDevice, data.KindCharDevice, data.KindSocket} {
		rel := kind.String()
		rtest.OK(t, repo.Store("", rel, data.Metadata{Kind: kind, DevMajor: 8, DevMinor: 1}))

		m, err := repo.Restore(rel, filepath.Join(tempdir, "target", rel))
		rtest.OK(t, err)
		rtest.Equals(t, kind, m.Kind)

		_, err = os.Lstat(filepath.Join(tempdir, "target", rel))
		rtest.Assert(t, errors.Is(err, os.ErrNotExist), "%v was materialized", rel)
	}
	rtest.Equals(t, 3, len(warnings))
}

func TestRestoreErrors(t *testing.T) {
	tempdir := rtest.TempDir(t)
	repo := repository.New(filepath.Join(tempdir, "repo"))
	rtest.OK(t, repo.Initialize())

	_, err := repo.Restore("missing", filepath.Join(tempdir, "target", "missing"))
	rtest.Assert(t, errors.Is(err, repository.ErrNotInIndex), "expected ErrNotInIndex, got %v", err)

	rtest.OK(t, repo.Store("", "noblob", data.Metadata{Kind: data.KindDirectory}))
	// turn the entry into a regular file without a blob
	rtest.OK(t, os.WriteFile(filepath.Join(tempdir, "repo", repository.IndexFile),
		[]byte("noblob\t33188:0:0:0:0:0:0:0:\n"), 0644))
	rtest.OK(t, repo.Load())
	_, err = repo.Restore("noblob", filepath.Join(tempdir, "target", "noblob"))
	rtest.Assert(t, err != nil, "expected error for missing blob")

	rtest.OK(t, repo.Store("", "emptylink", data.Metadata{Kind: data.KindSymlink}))
	_, err = repo.Restore("emptylink", filepath.Join(tempdir, "target", "emptylink"))
	rtest.Assert(t, err != nil, "expected error for empty symlink target")
}

func TestStoreInvalidPath(t *testing.T) {
	repo := repository.New(rtest.TempDir(t))
	rtest.OK(t, repo.Initialize())

	for _, rel := range []string{"", ".", "/abs", "../up", "..", "a/../../b", "a//b", "a/", "tab\there", "new\nline"} {
		err := repo.Store("", rel, data.Metadata{Kind: data.KindDirectory})
		rtest.Assert(t, err != nil, "expected error for %q", rel)
	}
	rtest.Equals(t, 0, repo.Len())

	err := repo.Store("", "link", data.Metadata{Kind: data.KindSymlink, LinkTarget: "a\nb"})
	rtest.Assert(t, err != nil, "expected error for symlink target with newline")
}

func TestStoreRemovesStaleBlob(t *testing.T) {
	tempdir := rtest.TempDir(t)
	source := filepath.Join(tempdir, "source")
	rtest.WriteFile(t, filepath.Join(source, "entry"), []byte("content"), 0644)

	repo := repository.New(filepath.Join(tempdir, "repo"))
	rtest.OK(t, repo.Initialize())
	storePath(t, repo, source, "entry")
	_, err := os.Lstat(repo.BlobPath("entry"))
	rtest.OK(t, err)

	rtest.OK(t, os.Remove(filepath.Join(source, "entry")))
	rtest.OK(t, os.Symlink("elsewhere", filepath.Join(source, "entry")))
	storePath(t, repo, source, "entry")

	_, err = os.Lstat(repo.BlobPath("entry"))
	rtest.Assert(t, errors.Is(err, os.ErrNotExist), "stale blob was not removed")
	m, ok := repo.Lookup("entry")
	rtest.Assert(t, ok, "entry missing from index")
	rtest.Equals(t, data.KindSymlink, m.Kind)
}

func TestStoreDirectoryReplacedBySymlink(t *testing.T) {
	tempdir := rtest.TempDir(t)
	source := filepath.Join(tempdir, "source")
	rtest.WriteFile(t, filepath.Join(source, "d", "x"), []byte("inside"), 0644)

	repo := repository.New(filepath.Join(tempdir, "repo"))
	rtest.OK(t, repo.Initialize())
	storePath(t, repo, source, "d")
	storePath(t, repo, source, "d/x")

	rtest.OK(t, os.RemoveAll(filepath.Join(source, "d")))
	rtest.OK(t, os.Symlink(filepath.Join(tempdir, "outside"), filepath.Join(source, "d")))
	storePath(t, repo, source, "d")

	_, ok := repo.Lookup("d/x")
	rtest.Assert(t, !ok, "entry below the replaced directory is still in the index")
	rtest.Equals(t, 1, repo.Len())
	_, err := os.Lstat(repo.BlobPath("d"))
	rtest.Assert(t, errors.Is(err, os.ErrNotExist), "blob directory of d was not removed")
}

func TestStoreDirectoryReplacedByFile(t *testing.T) {
	tempdir := rtest.TempDir(t)
	source := filepath.Join(tempdir, "source")
	rtest.WriteFile(t, filepath.Join(source, "d", "x"), []byte("inside"), 0644)

	repo := repository.New(filepath.Join(tempdir, "repo"))
	rtest.OK(t, repo.Initialize())
	storePath(t, repo, source, "d")
	storePath(t, repo, source, "d/x")

	rtest.OK(t, os.RemoveAll(filepath.Join(source, "d")))
	rtest.WriteFile(t, filepath.Join(source, "d"), []byte("now a file"), 0644)
	storePath(t, repo, source, "d")

	_, ok := repo.Lookup("d/x")
	rtest.Assert(t, !ok, "entry below the replaced directory is still in the index")
	rtest.Equals(t, []byte("now a file"), rtest.ReadFile(t, repo.BlobPath("d")))

	target := filepath.Join(tempdir, "target")
	m, err := repo.Restore("d", filepath.Join(target, "d"))
	rtest.OK(t, err)
	rtest.Equals(t, data.KindRegular, m.Kind)
	rtest.Equals(t, []byte("now a file"), rtest.ReadFile(t, filepath.Join(target, "d")))
}

func TestRestoreRefusesSymlinkParent(t *testing.T) {
	tempdir := rtest.TempDir(t)
	outside := filepath.Join(tempdir, "outside")
	rtest.OK(t, os.Mkdir(outside, 0755))

	repo := repository.New(filepath.Join(tempdir, "repo"))
	rtest.OK(t, repo.Initialize())
	// an index written by an older version, d/x is still listed below the symlink d
	rtest.WriteFile(t, repo.BlobPath("d/x"), []byte("escaped"), 0644)
	link := data.Metadata{Kind: data.KindSymlink, Mode: 0120777, LinkTarget: outside}
	file := data.Metadata{Kind: data.KindRegular, Mode: 0100644}
	rtest.OK(t, os.WriteFile(filepath.Join(tempdir, "repo", repository.IndexFile),
		[]byte("d\t"+link.Serialize()+"\nd/x\t"+file.Serialize()+"\n"), 0644))
	rtest.OK(t, repo.Load())
	rtest.Equals(t, 2, repo.Len())

	target := filepath.Join(tempdir, "target")
	_, err := repo.Restore("d", filepath.Join(target, "d"))
	rtest.OK(t, err)
	_, err = repo.Restore("d/x", filepath.Join(target, "d", "x"))
	rtest.Assert(t, err != nil, "expected error for entry below a symlink")

	_, err = os.Lstat(filepath.Join(outside, "x"))
	rtest.Assert(t, errors.Is(err, os.ErrNotExist), "restore wrote outside of the target")

	// a regular file as parent is refused as well
	rtest.OK(t, os.Remove(filepath.Join(target, "d")))
	rtest.WriteFile(t, filepath.Join(target, "d"), []byte("file"), 0644)
	_, err = repo.Restore("d/x", filepath.Join(target, "d", "x"))
	rtest.Assert(t, err != nil, "expected error for entry below a regular file")
}

func TestStoreRecordsMetadataOnCopyFailure(t *testing.T) {
	tempdir := rtest.TempDir(t)
	repo := repository.New(filepath.Join(tempdir, "repo"))
	rtest.OK(t, repo.Initialize())

	m := data.Metadata{Kind: data.KindRegular, Mode: 0100644}
	err := repo.Store(filepath.Join(tempdir, "does-not-exist"), "file", m)
	rtest.Assert(t, err != nil, "expected error for missing source")

	got, ok := repo.Lookup("file")
	rtest.Assert(t, ok, "metadata was not recorded")
	rtest.Equals(t, m, got)
}

func TestOpenNoRepository(t *testing.T) {
	_, err := repository.Open(filepath.Join(rtest.TempDir(t), "missing"))
	rtest.Assert(t, errors.Is(err, repository.ErrNoRepository), "expected ErrNoRepository, got %v", err)
}

func testIndex() map[string]data.Metadata {
	return map[string]data.Metadata{
		"a.txt":          {Kind: data.KindRegular, Mode: 0100644, ModTime: 1600000000, UID: 1000, GID: 1000},
		"dir":            {Kind: data.KindDirectory, Mode: 040755, ModTime: -5},
		"dir/link":       {Kind: data.KindSymlink, Mode: 0120777, LinkTarget: "../a.txt:with:colons"},
		"dir/with space": {Kind: data.KindFifo, Mode: 010600},
		"dev/sda1":       {Kind: data.KindBlockDevice, Mode: 060660, DevMajor: 8, DevMinor: 1},
		"sock":           {Kind: data.KindSocket, Mode: 0140755},
	}
}

func listMap(repo *repository.Repository) map[string]data.Metadata {
	m := make(map[string]data.Metadata)
	for _, e := range repo.List() {
		m[e.Path] = e.Metadata
	}
	return m
}

func TestIndexIdempotence(t *testing.T) {
	tempdir := rtest.TempDir(t)
	root := filepath.Join(tempdir, "repo")
	repo := repository.New(root)
	rtest.OK(t, repo.Initialize())
	rtest.OK(t, repo.Initialize())
	rtest.Equals(t, 0, repo.Len())

	source := filepath.Join(tempdir, "source")
	rtest.WriteFile(t, source, []byte("content"), 0644)

	want := testIndex()
	for rel, m := range want {
		rtest.OK(t, repo.Store(source, rel, m))
	}
	rtest.OK(t, repo.Save())
	rtest.OK(t, repo.Load())
	if diff := cmp.Diff(want, listMap(repo)); diff != "" {
		t.Errorf("index differs after save/load (-want +got):\n%s", diff)
	}

	again := repository.New(root)
	rtest.OK(t, again.Initialize())
	rtest.OK(t, again.Initialize())
	if diff := cmp.Diff(want, listMap(again)); diff != "" {
		t.Errorf("index differs after initialize (-want +got):\n%s", diff)
	}

	// saving an unchanged index yields the same file
	before := rtest.ReadFile(t, filepath.Join(root, repository.IndexFile))
	rtest.OK(t, again.Save())
	rtest.Equals(t, before, rtest.ReadFile(t, filepath.Join(root, repository.IndexFile)))
}

func TestIndexFormat(t *testing.T) {
	root := rtest.TempDir(t)
	repo := repository.New(root)
	rtest.OK(t, repo.Initialize())
	rtest.OK(t, repo.Store("", "b", data.Metadata{Kind: data.KindSymlink, Mode: 0120777, ModTime: 7, LinkTarget: "x"}))
	rtest.OK(t, repo.Store("", "a", data.Metadata{Kind: data.KindDirectory, Mode: 040700, ModTime: 9, UID: 1, GID: 2}))
	rtest.OK(t, repo.Save())

	want := "a\t16832:9:1:2:1:0:0:0:\n" +
		"b\t41471:7:0:0:2:0:0:1:x\n"
	rtest.Equals(t, want, string(rtest.ReadFile(t, filepath.Join(root, repository.IndexFile))))
}

func TestLoadSkipsMalformedLines(t *testing.T) {
	root := rtest.TempDir(t)
	lines := []string{
		"good\t33188:1:0:0:0:0:0:0:",
		"no tab here",
		"legacy\t33188:1:0:0:0:",
		"badnum\t33188:x:0:0:0:0:0:0:",
		"badkind\t33188:1:0:0:9:0:0:0:",
		"mismatch\t33188:1:0:0:0:0:0:1:target",
		"../escape\t33188:1:0:0:0:0:0:0:",
		"",
		"link\t41471:1:0:0:2:0:0:1:tab\tin target",
	}
	rtest.OK(t, os.WriteFile(filepath.Join(root, repository.IndexFile), []byte(strings.Join(lines, "\n")), 0644))

	repo := repository.New(root)
	var warnings []string
	repo.Warnf = func(msg string, args ...interface{}) {
		warnings = append(warnings, msg)
	}
	rtest.OK(t, repo.Initialize())

	rtest.Equals(t, 2, repo.Len())
	m, ok := repo.Lookup("link")
	rtest.Assert(t, ok, "link missing")
	rtest.Equals(t, "tab\tin target", m.LinkTarget)
	_, ok = repo.Lookup("good")
	rtest.Assert(t, ok, "good missing")

	rtest.Equals(t, 1, len(warnings))
}
