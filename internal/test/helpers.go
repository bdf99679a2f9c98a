// Package test contains helpers shared by the tests of all packages. It is
// usually imported as rtest.
package test

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"

	mrand "math/rand"

	"github.com/mirrorpack/mirrorpack/internal/errors"
)

// Assert fails the test if the condition is false.
func Assert(tb testing.TB, condition bool, msg string, v ...interface{}) {
	tb.Helper()
	if !condition {
		_, file, line, _ := runtime.Caller(1)
		fmt.Printf("\033[31m%s:%d: "+msg+"\033[39m\n\n", append([]interface{}{filepath.Base(file), line}, v...)...)
		tb.FailNow()
	}
}

// OK fails the test if an err is not nil.
func OK(tb testing.TB, err error) {
	tb.Helper()
	if err != nil {
		_, file, line, _ := runtime.Caller(1)
		fmt.Printf("\033[31m%s:%d: unexpected error: %+v\033[39m\n\n", filepath.Base(file), line, err)
		tb.FailNow()
	}
}

// Equals fails the test if exp is not equal to act.
func Equals(tb testing.TB, exp, act interface{}) {
	tb.Helper()
	if !reflect.DeepEqual(exp, act) {
		_, file, line, _ := runtime.Caller(1)
		fmt.Printf("\033[31m%s:%d:\n\n\texp: %#v\n\n\tgot: %#v\033[39m\n\n", filepath.Base(file), line, exp, act)
		tb.FailNow()
	}
}

// Random returns count bytes of pseudo-random data derived from the seed.
func Random(seed, count int) []byte {
	p := make([]byte, count)
	rnd := mrand.New(mrand.NewSource(int64(seed)))
	_, _ = rnd.Read(p)
	return p
}

// WriteFile creates the parent directories of name and writes data to it.
func WriteFile(tb testing.TB, name string, data []byte, mode os.FileMode) {
	tb.Helper()
	OK(tb, os.MkdirAll(filepath.Dir(name), 0755))
	OK(tb, os.WriteFile(name, data, mode))
	// WriteFile is subject to the umask
	OK(tb, os.Chmod(name, mode))
}

// ReadFile returns the content of name and fails the test on error.
func ReadFile(tb testing.TB, name string) []byte {
	tb.Helper()
	buf, err := os.ReadFile(name)
	OK(tb, err)
	return buf
}

// ResetReadOnly makes dir and everything below it writable again so that it
// can be removed.
func ResetReadOnly(tb testing.TB, dir string) {
	err := filepath.Walk(dir, func(path string, fi os.FileInfo, err error) error {
		if fi == nil {
			return err
		}

		switch {
		case fi.IsDir():
			return os.Chmod(path, 0777)
		case fi.Mode().IsRegular():
			return os.Chmod(path, 0666)
		}
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		err = nil
	}
	OK(tb, err)
}

// RemoveAll resets the read-only flag of all files and dirs below path and
// removes it afterwards.
func RemoveAll(tb testing.TB, path string) {
	ResetReadOnly(tb, path)
	err := os.RemoveAll(path)
	if errors.Is(err, os.ErrNotExist) {
		err = nil
	}
	OK(tb, err)
}

// TempDir returns a temporary directory that is removed by t.Cleanup,
// except if TestCleanupTempDirs is set to false.
func TempDir(tb testing.TB) string {
	tempdir, err := os.MkdirTemp(TestTempDir, "mirrorpack-test-")
	if err != nil {
		tb.Fatal(err)
	}

	tb.Cleanup(func() {
		if !TestCleanupTempDirs {
			tb.Logf("leaving temporary directory %v used for test", tempdir)
			return
		}

		RemoveAll(tb, tempdir)
	})
	return tempdir
}
