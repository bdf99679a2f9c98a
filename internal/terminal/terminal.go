// Package terminal reads passwords from an interactive terminal.
package terminal

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/mirrorpack/mirrorpack/internal/errors"
)

// IsTerminal reports whether fd refers to a terminal.
func IsTerminal(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}

// ReadPassword reads the password from the given reader which must be a
// tty. Prompt is printed on the writer out before attempting to read the
// password. If the context is canceled, the function leaks the password reading
// goroutine.
func ReadPassword(ctx context.Context, in *os.File, out *os.File, prompt string) (password string, err error) {
	fd := int(in.Fd())
	state, err := term.GetState(fd)
	if err != nil {
		return "", errors.Wrap(err, "unable to get terminal state")
	}

	done := make(chan struct{})
	var buf []byte

	go func() {
		defer close(done)
		_, err = fmt.Fprint(out, prompt)
		if err != nil {
			return
		}
		buf, err = term.ReadPassword(fd)
		if err != nil {
			return
		}
		_, err = fmt.Fprintln(out)
	}()

	select {
	case <-ctx.Done():
		if rerr := term.Restore(fd, state); rerr != nil {
			_, _ = fmt.Fprintf(os.Stderr, "unable to restore terminal state: %v\n", rerr)
		}
		return "", ctx.Err()
	case <-done:
	}

	if err != nil {
		return "", errors.Wrap(err, "ReadPassword")
	}

	return string(buf), nil
}
