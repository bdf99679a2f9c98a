package progress

import (
	"time"

	"github.com/mirrorpack/mirrorpack/internal/ui"
)

// Stats counts the outcome of the entries of one operation.
type Stats struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	Bytes     uint64
	Duration  time.Duration
}

// Processed returns the number of entries with any outcome.
func (s Stats) Processed() int {
	return s.Succeeded + s.Failed + s.Skipped
}

// Reporter receives the progress of a backup or restore. Methods are called
// from the goroutine running the operation, in order: Start once, then for
// each entry Progress followed by one of Success, Error or Skipped, and
// finally Complete.
type Reporter interface {
	Start(op string, total int)
	Progress(item string, current, total int)
	Success(item string)
	Error(item string, err error)
	Skipped(item string, reason string)
	Complete(stats Stats, ok bool)
}

// NoopReporter ignores all progress.
type NoopReporter struct{}

var _ Reporter = NoopReporter{}

func (NoopReporter) Start(string, int) {}
func (NoopReporter) Progress(string, int, int) {}
func (NoopReporter) Success(string) {}
func (NoopReporter) Error(string, error) {}
func (NoopReporter) Skipped(string, string) {}
func (NoopReporter) Complete(Stats, bool) {}

// TextReporter prints progress through a Printer. Errors are always printed,
// the entries themselves only in verbose mode.
type TextReporter struct {
	printer Printer
	op      string
}

var _ Reporter = (*TextReporter)(nil)

// NewTextReporter returns a reporter printing to p.
func NewTextReporter(p Printer) *TextReporter {
	return &TextReporter{printer: p}
}

func (r *TextReporter) Start(op string, total int) {
	r.op = op
	r.printer.V("%s: %d entries\n", op, total)
}

func (r *TextReporter) Progress(item string, current, total int) {
	r.printer.VV("[%d/%d] %s %s\n", current, total, ui.FormatPercent(uint64(current), uint64(total)), ui.Quote(item))
}

func (r *TextReporter) Success(item string) {
	r.printer.V("%s\n", ui.Quote(item))
}

func (r *TextReporter) Error(item string, err error) {
	r.printer.E("error: %s: %v\n", ui.Quote(item), err)
}

func (r *TextReporter) Skipped(item string, reason string) {
	r.printer.V("skipped %s: %s\n", ui.Quote(item), reason)
}

func (r *TextReporter) Complete(stats Stats, ok bool) {
	status := "completed"
	if !ok {
		status = "incomplete"
	}
	r.printer.P("%s %s: %d succeeded, %d failed, %d skipped of %d entries, %s in %s\n",
		r.op, status, stats.Succeeded, stats.Failed, stats.Skipped, stats.Total,
		ui.FormatBytes(stats.Bytes), ui.FormatDuration(stats.Duration))
}
