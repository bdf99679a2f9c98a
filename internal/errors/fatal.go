package errors

import (
	"fmt"
)

// fatalError is printed verbatim to the user before the program exits with
// a non-zero status.
type fatalError struct {
	msg string
	err error
}

func (e *fatalError) Error() string { return e.msg }

func (e *fatalError) Unwrap() error { return e.err }

// IsFatal returns true if err, or any error it wraps, was created by Fatal or
// Fatalf.
func IsFatal(err error) bool {
	var fe *fatalError
	return As(err, &fe)
}

// Fatal returns a fatal error with message s.
func Fatal(s string) error {
	return Wrap(&fatalError{msg: s}, "Fatal")
}

// Fatalf returns a fatal error with a formatted message. If one of the
// arguments is an error, the last such error is kept as the cause so that
// callers can still match it with Is and As.
func Fatalf(format string, args ...interface{}) error {
	var cause error
	for i := len(args) - 1; i >= 0; i-- {
		if err, ok := args[i].(error); ok {
			cause = err
			break
		}
	}

	return Wrap(&fatalError{msg: fmt.Sprintf(format, args...), err: cause}, "Fatal")
}
