// Package repository implements the on-disk repository: a data area holding
// the content of regular files and a text index with the metadata of every
// backed up entry.
//
// A Repository must only be used by one goroutine at a time, and only one
// Repository may modify a given root directory.
package repository

import (
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mirrorpack/mirrorpack/internal/data"
	"github.com/mirrorpack/mirrorpack/internal/debug"
	"github.com/mirrorpack/mirrorpack/internal/errors"
	"github.com/mirrorpack/mirrorpack/internal/fs"
)

const (
	// DataDir is the name of the data area below the repository root.
	DataDir = "data"
	// IndexFile is the name of the index file below the repository root.
	IndexFile = "index"
)

// ErrNoRepository is returned by Open if the directory does not contain a
// repository.
var ErrNoRepository = errors.New("repository does not exist")

// ErrNotInIndex is returned by Restore for paths which are not in the index.
var ErrNotInIndex = errors.New("path not found in index")

// Entry is a single index entry.
type Entry struct {
	Path     string
	Metadata data.Metadata
}

// Repository is a repository rooted at a local directory.
type Repository struct {
	root  string
	index map[string]data.Metadata

	// Warnf is called for problems which do not make an operation fail, for
	// example owners which cannot be restored. May be nil.
	Warnf func(msg string, args ...interface{})
}

// New returns a repository for the directory root. Nothing is read or
// created until Initialize or Load is called.
func New(root string) *Repository {
	return &Repository{
		root:  root,
		index: make(map[string]data.Metadata),
	}
}

// Open returns the existing repository at root with its index loaded.
func Open(root string) (*Repository, error) {
	fi, err := os.Stat(filepath.Join(root, DataDir))
	if err != nil || !fi.IsDir() {
		debug.Log("no data dir in %v: %v", root, err)
		return nil, errors.Wrap(ErrNoRepository, root)
	}

	r := New(root)
	if err := r.Load(); err != nil {
		return nil, err
	}
	return r, nil
}

// Root returns the root directory of the repository.
func (r *Repository) Root() string {
	return r.root
}

func (r *Repository) indexFile() string {
	return filepath.Join(r.root, IndexFile)
}

// BlobPath returns the location of the content of the entry rel.
func (r *Repository) BlobPath(rel string) string {
	return filepath.Join(r.root, DataDir, filepath.FromSlash(rel))
}

func (r *Repository) warnf(msg string, args ...interface{}) {
	debug.Log(strings.TrimSuffix(msg, "\n"), args...)
	if r.Warnf != nil {
		r.Warnf(msg, args...)
	}
}

// Initialize creates the repository root and data area if they do not exist
// yet and loads the index. Calling it on an existing repository is safe.
func (r *Repository) Initialize() error {
	if err := os.MkdirAll(filepath.Join(r.root, DataDir), 0755); err != nil {
		return errors.Wrap(err, "MkdirAll")
	}
	return r.Load()
}

// Len returns the number of entries in the index.
func (r *Repository) Len() int {
	return len(r.index)
}

// Lookup returns the metadata recorded for rel.
func (r *Repository) Lookup(rel string) (data.Metadata, bool) {
	m, ok := r.index[rel]
	return m, ok
}

// List returns all index entries sorted by path. A directory is always listed
// before its content.
func (r *Repository) List() []Entry {
	entries := make([]Entry, 0, len(r.index))
	for p, m := range r.index {
		entries = append(entries, Entry{Path: p, Metadata: m})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})
	return entries
}

// ValidPath checks that rel can be stored in the index and does not leave the
// directory it is relative to.
func ValidPath(rel string) error {
	switch {
	case rel == "" || rel == ".":
		return errors.New("empty path")
	case strings.ContainsAny(rel, "\t\n\r"):
		return errors.Errorf("path %q contains a tab or newline", rel)
	case path.IsAbs(rel) || filepath.IsAbs(rel):
		return errors.Errorf("path %q is absolute", rel)
	case path.Clean(rel) != rel:
		return errors.Errorf("path %q is not clean", rel)
	case rel == ".." || strings.HasPrefix(rel, "../"):
		return errors.Errorf("path %q leaves the root", rel)
	}
	return nil
}

// Store records m under rel in the index and, for regular files, copies the
// content of source into the data area. The index entry is kept even if the
// copy fails. The index is only written by Save.
func (r *Repository) Store(source, rel string, m data.Metadata) error {
	if err := ValidPath(rel); err != nil {
		return err
	}
	if strings.ContainsAny(m.LinkTarget, "\n\r") {
		return errors.Errorf("symlink target of %v contains a newline", rel)
	}

	r.index[rel] = m

	// an entry which is no longer a directory has no content below it
	if m.Kind != data.KindDirectory {
		if err := r.pruneBelow(rel); err != nil {
			return err
		}
	}

	blob := r.BlobPath(rel)
	switch m.Kind {
	case data.KindRegular:
		n, err := fs.CopyFile(blob, source)
		if err != nil {
			return errors.Wrapf(err, "store %v", rel)
		}
		debug.Log("stored %v (%d bytes)", rel, n)

	case data.KindSymlink, data.KindDirectory, data.KindFifo,
		data.KindBlockDevice, data.KindCharDevice, data.KindSocket:
		// a blob from a previous backup would break the data area invariant,
		// directories below data/ hold the content of other entries
		fi, err := os.Lstat(blob)
		if err == nil && !fi.IsDir() {
			debug.Log("removing stale blob for %v", rel)
			if err := os.Remove(blob); err != nil {
				return errors.Wrap(err, "Remove")
			}
		}

	default:
		return errors.Errorf("store %v: invalid kind %v", rel, m.Kind)
	}

	return nil
}

// pruneBelow removes all index entries below rel and the blob directory of
// rel, if there is one.
func (r *Repository) pruneBelow(rel string) error {
	prefix := rel + "/"
	for p := range r.index {
		if strings.HasPrefix(p, prefix) {
			debug.Log("dropping %v, %v is not a directory any more", p, rel)
			delete(r.index, p)
		}
	}

	blob := r.BlobPath(rel)
	fi, err := os.Lstat(blob)
	if err != nil || !fi.IsDir() {
		return nil
	}
	debug.Log("removing blob directory for %v", rel)
	if err := os.RemoveAll(blob); err != nil {
		return errors.Wrap(err, "RemoveAll")
	}
	return nil
}

// checkParents returns an error if one of the directories between the target
// root and target exists but is not a directory. target is the location of
// rel below the target root.
func checkParents(rel, target string) error {
	var parents []string
	dir := target
	for i := strings.Count(rel, "/"); i > 0; i-- {
		dir = filepath.Dir(dir)
		parents = append(parents, dir)
	}

	// from the target root down
	for i := len(parents) - 1; i >= 0; i-- {
		fi, err := os.Lstat(parents[i])
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if err != nil {
			return errors.WithStack(err)
		}
		if !fi.IsDir() {
			return errors.Errorf("restore %v: %v is not a directory", rel, parents[i])
		}
	}
	return nil
}

// Restore recreates the entry rel at target and returns its metadata. An
// existing entry at target is replaced, except that an existing directory is
// kept for directory entries. Devices and sockets are not recreated, Restore
// only warns about them. target must be the location of rel below the target
// root, entries below a parent which is not a real directory, for example a
// symlink, are refused.
func (r *Repository) Restore(rel, target string) (data.Metadata, error) {
	m, ok := r.index[rel]
	if !ok {
		return data.Metadata{}, errors.Wrap(ErrNotInIndex, rel)
	}

	if err := checkParents(rel, target); err != nil {
		return m, err
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return m, errors.Wrap(err, "MkdirAll")
	}

	if m.Kind == data.KindDirectory {
		if fi, err := os.Lstat(target); err == nil && fi.IsDir() {
			return m, nil
		}
	}

	if m.Kind.IsDevice() || m.Kind == data.KindSocket {
		r.warnf("%v: %v entries are not restored\n", rel, m.Kind)
		return m, nil
	}

	if err := fs.RemoveIfExists(target); err != nil {
		return m, err
	}

	switch m.Kind {
	case data.KindRegular:
		blob := r.BlobPath(rel)
		fi, err := os.Lstat(blob)
		if err != nil || !fi.Mode().IsRegular() {
			return m, errors.Errorf("restore %v: blob is missing from the data area", rel)
		}
		if _, err := fs.CopyFile(target, blob); err != nil {
			return m, errors.Wrapf(err, "restore %v", rel)
		}

	case data.KindSymlink:
		if m.LinkTarget == "" {
			return m, errors.Errorf("restore %v: empty symlink target", rel)
		}
		if err := os.Symlink(m.LinkTarget, target); err != nil {
			return m, errors.Wrap(err, "Symlink")
		}

	case data.KindFifo:
		if err := fs.Mkfifo(target, m.Perm()); err != nil {
			return m, err
		}

	case data.KindDirectory:
		if err := os.MkdirAll(target, 0755); err != nil {
			return m, errors.Wrap(err, "MkdirAll")
		}

	default:
		return m, errors.Errorf("restore %v: invalid kind %v", rel, m.Kind)
	}

	if m.Kind == data.KindRegular || m.Kind == data.KindFifo {
		if err := fs.ApplyMetadata(target, m, r.warnf); err != nil {
			r.warnf("%v: cannot restore metadata: %v\n", rel, err)
		}
	}

	return m, nil
}
