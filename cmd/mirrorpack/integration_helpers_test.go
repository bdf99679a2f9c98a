package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	rtest "github.com/mirrorpack/mirrorpack/internal/test"
)

type testEnvironment struct {
	base, source, repo, target string
	gopts                      GlobalOptions
	stdout, stderr             *bytes.Buffer
}

// withTestEnvironment creates a test environment with a small source tree.
func withTestEnvironment(t testing.TB) *testEnvironment {
	tempdir := rtest.TempDir(t)
	env := &testEnvironment{
		base:   tempdir,
		source: filepath.Join(tempdir, "source"),
		repo:   filepath.Join(tempdir, "repo"),
		target: filepath.Join(tempdir, "target"),
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
	}
	env.gopts = GlobalOptions{
		stdout:    env.stdout,
		stderr:    env.stderr,
		verbosity: 1,
	}

	rtest.WriteFile(t, filepath.Join(env.source, "a.txt"), []byte("hello world\n"), 0644)
	rtest.WriteFile(t, filepath.Join(env.source, "sub", "data.bin"), rtest.Random(5, 20000), 0600)
	rtest.WriteFile(t, filepath.Join(env.source, "sub", "cache", "tmp"), []byte("temporary"), 0644)
	return env
}

func testRunBackup(t testing.TB, env *testEnvironment, opts BackupOptions) {
	t.Helper()
	rtest.OK(t, runBackup(context.Background(), opts, env.gopts, []string{env.source, env.repo}))
}

func testRunRestore(t testing.TB, env *testEnvironment, opts RestoreOptions, repo string) {
	t.Helper()
	rtest.OK(t, runRestore(context.Background(), opts, env.gopts, []string{repo, env.target}))
}

func testRunLs(t testing.TB, env *testEnvironment, opts LsOptions, repo string) string {
	t.Helper()
	env.stdout.Reset()
	rtest.OK(t, runLs(context.Background(), opts, env.gopts, []string{repo}))
	return env.stdout.String()
}
