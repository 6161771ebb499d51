// Package fatal records fatal configuration problems and exits the process
// once the current synchronous step has finished.
package fatal

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
)

// Latch collects fatal conditions. Fatalf never exits; Check does.
type Latch struct {
	mu        sync.Mutex
	requested bool
	out       io.Writer
	color     bool
	exit      func(int)
}

// New returns a latch writing to stderr and exiting with os.Exit.
func New() *Latch {
	return &Latch{
		out:   os.Stderr,
		color: isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()),
		exit:  os.Exit,
	}
}

// NewWith returns a latch with explicit output and exit function. Used by tests.
func NewWith(out io.Writer, exit func(int)) *Latch {
	return &Latch{out: out, exit: exit}
}

// Fatalf prints the message highlighted and marks the process for exit.
func (l *Latch) Fatalf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.requested = true
	if l.color {
		fmt.Fprintf(l.out, "\x1b[1;31m%s\x1b[m\n", msg)
	} else {
		fmt.Fprintf(l.out, "[FATAL] %s\n", msg)
	}
}

// Requested reports whether Fatalf has been called.
func (l *Latch) Requested() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.requested
}

// Check exits with status 1 if a fatal condition was recorded.
func (l *Latch) Check() {
	if l.Requested() {
		l.exit(1)
	}
}
