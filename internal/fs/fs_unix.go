//go:build unix

package fs

import (
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/mirrorpack/mirrorpack/internal/data"
	"github.com/mirrorpack/mirrorpack/internal/debug"
	"github.com/mirrorpack/mirrorpack/internal/errors"
)

func lstat(path string) (*unix.Stat_t, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return nil, &os.PathError{Op: "lstat", Path: path, Err: err}
	}
	return &st, nil
}

func kindFromMode(mode uint32) (data.Kind, error) {
	switch mode & unix.S_IFMT {
	case unix.S_IFREG:
		return data.KindRegular, nil
	case unix.S_IFDIR:
		return data.KindDirectory, nil
	case unix.S_IFLNK:
		return data.KindSymlink, nil
	case unix.S_IFBLK:
		return data.KindBlockDevice, nil
	case unix.S_IFCHR:
		return data.KindCharDevice, nil
	case unix.S_IFIFO:
		return data.KindFifo, nil
	case unix.S_IFSOCK:
		return data.KindSocket, nil
	}
	return 0, errors.Errorf("unknown file type %#o", mode&unix.S_IFMT)
}

// Classify returns the kind of the entry at path without following symlinks.
func Classify(path string) (data.Kind, error) {
	st, err := lstat(path)
	if err != nil {
		return 0, err
	}
	return kindFromMode(uint32(st.Mode))
}

// LoadMetadata reads the metadata of the entry at path. Symlinks are not
// followed; their target is read and stored instead.
func LoadMetadata(path string) (data.Metadata, error) {
	st, err := lstat(path)
	if err != nil {
		return data.Metadata{}, err
	}

	kind, err := kindFromMode(uint32(st.Mode))
	if err != nil {
		return data.Metadata{}, errors.Wrap(err, path)
	}

	m := data.Metadata{
		Kind:    kind,
		Mode:    uint32(st.Mode),
		ModTime: int64(st.Mtim.Sec),
		UID:     st.Uid,
		GID:     st.Gid,
	}

	switch kind {
	case data.KindSymlink:
		m.LinkTarget, err = os.Readlink(path)
		if err != nil {
			return data.Metadata{}, errors.WithStack(err)
		}
	case data.KindBlockDevice, data.KindCharDevice:
		rdev := uint64(st.Rdev)
		m.DevMajor = unix.Major(rdev)
		m.DevMinor = unix.Minor(rdev)
	}

	return m, nil
}

// ApplyMetadata sets owner, permission bits and modification time of the
// entry at path. Changing the owner usually requires privileges, so a failure
// there is passed to warnf and otherwise ignored.
func ApplyMetadata(path string, m data.Metadata, warnf func(msg string, args ...interface{})) error {
	if err := unix.Lchown(path, int(m.UID), int(m.GID)); err != nil {
		debug.Log("lchown %v to %d:%d failed: %v", path, m.UID, m.GID, err)
		if warnf != nil {
			warnf("cannot set owner %d:%d of %v: %v\n", m.UID, m.GID, path, err)
		}
	}

	// chown may clear the setuid and setgid bits, chmod has to come second
	if err := unix.Chmod(path, m.Perm()); err != nil {
		return &os.PathError{Op: "chmod", Path: path, Err: err}
	}

	// whole seconds, m.ModTime*1e9 overflows for times after 2262
	mtime, err := unix.TimeToTimespec(time.Unix(m.ModTime, 0))
	if err != nil {
		return &os.PathError{Op: "utimes", Path: path, Err: err}
	}
	ts := []unix.Timespec{mtime, mtime}
	if err := unix.UtimesNanoAt(unix.AT_FDCWD, path, ts, unix.AT_SYMLINK_NOFOLLOW); err != nil {
		return &os.PathError{Op: "utimes", Path: path, Err: err}
	}

	return nil
}

// Mkfifo creates a named pipe at path with the permission bits of perm. The
// process umask still applies, ApplyMetadata sets the exact bits.
func Mkfifo(path string, perm uint32) error {
	if err := unix.Mkfifo(path, perm&07777); err != nil {
		return &os.PathError{Op: "mkfifo", Path: path, Err: err}
	}
	return nil
}

// fsyncDir flushes changes to the directory dir.
func fsyncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}

	err = d.Sync()
	if errors.Is(err, unix.ENOTSUP) || errors.Is(err, unix.ENOENT) || errors.Is(err, unix.EINVAL) {
		err = nil
	}

	cerr := d.Close()
	if err == nil {
		err = cerr
	}

	return err
}
