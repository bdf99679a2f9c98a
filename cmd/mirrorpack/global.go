package main

import (
	"context"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/mirrorpack/mirrorpack/internal/errors"
	"github.com/mirrorpack/mirrorpack/internal/terminal"
	"github.com/mirrorpack/mirrorpack/internal/textfile"
	"github.com/mirrorpack/mirrorpack/internal/ui/progress"
)

var version = "0.3.0-dev (compiled manually)"

// TimeFormat is the format used for all timestamps printed by mirrorpack.
const TimeFormat = "2006-01-02 15:04:05"

// GlobalOptions hold all global options for mirrorpack.
type GlobalOptions struct {
	PasswordFile string
	Quiet        bool
	Verbose      int

	password string
	stdin    *os.File
	stdout   io.Writer
	stderr   io.Writer

	// verbosity is set as follows:
	//  0 means: don't print any messages except errors, this is used when --quiet is specified
	//  1 is the default: print essential messages
	//  2 means: print more messages, report minor things, this is used when --verbose is specified
	//  3 means: print very detailed debug messages, this is used when --verbose=2 is specified
	verbosity uint
}

var globalOptions = GlobalOptions{
	stdin:  os.Stdin,
	stdout: os.Stdout,
	stderr: os.Stderr,
}

func (opts *GlobalOptions) AddFlags(f *pflag.FlagSet) {
	f.StringVarP(&opts.PasswordFile, "password-file", "p", "", "`file` to read the package password from (default: $MIRRORPACK_PASSWORD_FILE)")
	f.BoolVarP(&opts.Quiet, "quiet", "q", false, "do not output comprehensive progress report")
	// use empty parameter name as `-v, --verbose n` instead of the correct `--verbose=n` is confusing
	f.CountVarP(&opts.Verbose, "verbose", "v", "be verbose (specify multiple times or a level using --verbose=n``, max level/times is 2)")

	opts.PasswordFile = os.Getenv("MIRRORPACK_PASSWORD_FILE")
	opts.password = os.Getenv("MIRRORPACK_PASSWORD")
}

func (opts *GlobalOptions) PreRun() error {
	// set verbosity, default is one
	opts.verbosity = 1
	if opts.Quiet && opts.Verbose > 0 {
		return errors.Fatal("--quiet and --verbose cannot be specified at the same time")
	}

	switch {
	case opts.Verbose >= 2:
		opts.verbosity = 3
	case opts.Verbose > 0:
		opts.verbosity = 2
	case opts.Quiet:
		opts.verbosity = 0
	}
	return nil
}

func (opts *GlobalOptions) printer() progress.Printer {
	return progress.NewTextPrinter(opts.stdout, opts.stderr, opts.verbosity)
}

// warnf returns a warning hook for the repository which prints to stderr.
func warnf(printer progress.Printer) func(msg string, args ...interface{}) {
	return func(msg string, args ...interface{}) {
		printer.E("warning: "+msg, args...)
	}
}

// loadPasswordFromFile loads a password from the first line of a file while
// stripping a BOM and converting the password to UTF-8.
func loadPasswordFromFile(pwdFile string) (string, error) {
	s, err := textfile.ReadFirstLine(pwdFile)
	if errors.Is(err, os.ErrNotExist) {
		return "", errors.Fatalf("%s does not exist", pwdFile)
	}
	return s, errors.Wrap(err, "ReadFirstLine")
}

// ReadPassword returns the password passed on the command line, the
// environment variable MIRRORPACK_PASSWORD, the content of the password
// file or prompts the user, in that order. If no source is available and
// stdin is not a terminal, the empty password is returned. If the context
// is canceled, the function leaks the password reading goroutine.
func ReadPassword(ctx context.Context, opts GlobalOptions, flagPassword, prompt string) (string, error) {
	switch {
	case flagPassword != "":
		return flagPassword, nil
	case opts.password != "":
		return opts.password, nil
	case opts.PasswordFile != "":
		return loadPasswordFromFile(opts.PasswordFile)
	}

	if opts.stdin == nil || !terminal.IsTerminal(opts.stdin.Fd()) {
		return "", nil
	}

	password, err := terminal.ReadPassword(ctx, opts.stdin, os.Stderr, prompt)
	if err != nil {
		return "", errors.Wrap(err, "unable to read password")
	}
	return password, nil
}
