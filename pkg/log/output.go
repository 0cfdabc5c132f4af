package log

import (
	"io"
	"os"
	"sync"
)

// ConsoleOutput writes formatted entries to stderr, guarded by a mutex so
// concurrent loggers sharing one output don't interleave partial writes.
type ConsoleOutput struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsoleOutput returns a ConsoleOutput writing to os.Stderr.
func NewConsoleOutput() *ConsoleOutput { return &ConsoleOutput{w: os.Stderr} }

func (o *ConsoleOutput) Write(_ *Entry, formatted []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	w := o.w
	if w == nil {
		w = os.Stderr
	}
	_, err := w.Write(formatted)
	return err
}

func (o *ConsoleOutput) Close() error { return nil }

// NullOutput discards every entry. Used by tests that want a Logger but no
// console noise.
type NullOutput struct{}

// NewNullOutput returns an Output that discards everything written to it.
func NewNullOutput() *NullOutput { return &NullOutput{} }

func (NullOutput) Write(*Entry, []byte) error { return nil }
func (NullOutput) Close() error               { return nil }
