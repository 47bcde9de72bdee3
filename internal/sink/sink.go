// internal/sink/sink.go

package sink

import (
	"sync"
	"sync/atomic"

	"github.com/orgoj/rotalog/internal/level"
)

// Sink is a destination for formatted records.
type Sink interface {
	// ShouldLog reports whether a record of level l passes the sink threshold.
	ShouldLog(l level.Level) bool
	SetLevel(l level.Level)
	Level() level.Level
	// Log writes one already formatted record.
	Log(text string) error
	Flush() error
	Close() error
}

// Backend does the actual I/O for a sink. Implementations need not be safe
// for concurrent use; Base serializes every call.
type Backend interface {
	SinkIt(text string) error
	FlushIt() error
	Close() error
}

// Base adapts a Backend to the Sink interface. One mutex guards all backend
// calls so records from different goroutines never interleave within a sink.
type Base struct {
	mu      sync.Mutex
	level   atomic.Int32
	backend Backend
}

// NewBase wraps backend with a trace threshold.
func NewBase(backend Backend) *Base {
	b := &Base{backend: backend}
	b.level.Store(int32(level.Trace))
	return b
}

func (b *Base) ShouldLog(l level.Level) bool {
	return l.Enabled(b.Level())
}

func (b *Base) SetLevel(l level.Level) {
	b.level.Store(int32(l))
}

func (b *Base) Level() level.Level {
	return level.Level(b.level.Load())
}

func (b *Base) Log(text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.backend.SinkIt(text)
}

func (b *Base) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.backend.FlushIt()
}

func (b *Base) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.backend.Close()
}

// withLock runs fn while holding the sink mutex.
func (b *Base) withLock(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn()
}
