package sink

import (
	"io"
	"os"
)

type syncer interface {
	Sync() error
}

type flusher interface {
	Flush() error
}

// ConsoleBackend writes records to a stream. Write failures are dropped.
type ConsoleBackend struct {
	w io.Writer
}

func (c *ConsoleBackend) SinkIt(text string) error {
	_, _ = io.WriteString(c.w, text)
	return nil
}

func (c *ConsoleBackend) FlushIt() error {
	switch w := c.w.(type) {
	case flusher:
		_ = w.Flush()
	case syncer:
		_ = w.Sync()
	}
	return nil
}

// Close leaves the stream open; the console is not owned by the sink.
func (c *ConsoleBackend) Close() error {
	return c.FlushIt()
}

// Console is a synchronized console sink.
type Console struct {
	*Base
}

// NewConsole returns a sink writing to w, or to stdout when w is nil.
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = os.Stdout
	}
	return &Console{Base: NewBase(&ConsoleBackend{w: w})}
}
