package logger

import (
	"fmt"
	"time"

	"github.com/orgoj/rotalog/internal/config"
	"github.com/orgoj/rotalog/internal/format"
	"github.com/orgoj/rotalog/internal/level"
	"github.com/orgoj/rotalog/internal/sink"
)

const DefaultProfilerPath = "log/profiler/profiler.log"

// Profiler writes scope durations to its own sink, flushing after each one.
//
//	defer prof.Start()()
type Profiler struct {
	sink      sink.Sink
	formatter format.Formatter
	now       func() time.Time
}

func NewProfiler(s sink.Sink) *Profiler {
	return &Profiler{sink: s, formatter: format.Text{}, now: time.Now}
}

// NewProfilerFromConfig opens the rotating file described by cfg. It returns
// nil when profiling is disabled.
func NewProfilerFromConfig(cfg config.ProfilerConfig) (*Profiler, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	maxSize, err := config.ParseSize(cfg.MaxSize)
	if err != nil {
		return nil, fmt.Errorf("profiler.max_size: %w", err)
	}
	s, err := sink.NewRotatingFile(cfg.Path, maxSize, cfg.MaxFiles)
	if err != nil {
		return nil, err
	}
	s.SetLevel(level.Trace)
	return NewProfiler(s), nil
}

// Start records the caller and the current time. The returned function logs
// the elapsed time; it is safe to call on a nil Profiler.
func (p *Profiler) Start() func() error {
	if p == nil {
		return func() error { return nil }
	}
	site := format.Caller(1)
	start := p.now()
	gid := format.GoroutineID()
	return func() error {
		end := p.now()
		text := p.formatter.Format(format.Record{
			Time:      end,
			Goroutine: gid,
			Site:      site,
			Level:     level.Trace,
			Message:   fmt.Sprintf("%s took %s", site.Function, end.Sub(start)),
		})
		if err := p.sink.Log(text); err != nil {
			return err
		}
		return p.sink.Flush()
	}
}

func (p *Profiler) Close() error {
	if p == nil {
		return nil
	}
	return p.sink.Close()
}
