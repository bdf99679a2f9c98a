// Package progress reports the progress of long running operations to the
// user.
package progress

import (
	"fmt"
	"io"
	"sync"
)

// A Printer prints messages at different log levels. It must be safe to call
// its methods from concurrent goroutines.
type Printer interface {
	E(msg string, args ...interface{})
	P(msg string, args ...interface{})
	V(msg string, args ...interface{})
	VV(msg string, args ...interface{})
}

// NoopPrinter discards all messages
type NoopPrinter struct{}

var _ Printer = (*NoopPrinter)(nil)

func (*NoopPrinter) E(msg string, args ...interface{}) {}

func (*NoopPrinter) P(msg string, args ...interface{}) {}

func (*NoopPrinter) V(msg string, args ...interface{}) {}

func (*NoopPrinter) VV(msg string, args ...interface{}) {}

// TextPrinter writes messages to stdout and stderr. Messages of P are shown
// at verbosity 1 and above, V at 2 and VV at 3. Errors are always shown.
type TextPrinter struct {
	m         sync.Mutex
	stdout    io.Writer
	stderr    io.Writer
	verbosity uint
}

var _ Printer = (*TextPrinter)(nil)

// NewTextPrinter returns a printer for the given verbosity.
func NewTextPrinter(stdout, stderr io.Writer, verbosity uint) *TextPrinter {
	return &TextPrinter{
		stdout:    stdout,
		stderr:    stderr,
		verbosity: verbosity,
	}
}

func (p *TextPrinter) print(wr io.Writer, msg string, args ...interface{}) {
	p.m.Lock()
	defer p.m.Unlock()
	_, _ = fmt.Fprintf(wr, msg, args...)
}

// E prints an error message.
func (p *TextPrinter) E(msg string, args ...interface{}) {
	p.print(p.stderr, msg, args...)
}

// P prints a message unless quiet output was requested.
func (p *TextPrinter) P(msg string, args ...interface{}) {
	if p.verbosity >= 1 {
		p.print(p.stdout, msg, args...)
	}
}

// V prints a message in verbose mode.
func (p *TextPrinter) V(msg string, args ...interface{}) {
	if p.verbosity >= 2 {
		p.print(p.stdout, msg, args...)
	}
}

// VV prints a message in debug verbose mode.
func (p *TextPrinter) VV(msg string, args ...interface{}) {
	if p.verbosity >= 3 {
		p.print(p.stdout, msg, args...)
	}
}
