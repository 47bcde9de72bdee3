// internal/logger/dispatcher.go

package logger

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/orgoj/rotalog/internal/config"
	"github.com/orgoj/rotalog/internal/filehelper"
	"github.com/orgoj/rotalog/internal/format"
	"github.com/orgoj/rotalog/internal/level"
	"github.com/orgoj/rotalog/internal/sink"
)

const (
	TargetConsole = "console"
	TargetFile    = "file"
	TargetFlush   = "flush"
)

var (
	// ErrUnknownTarget is returned by SetLevel for names other than console, file and flush.
	ErrUnknownTarget = errors.New("unknown level target")
	// ErrSinkNotConfigured is returned by SetLevel for a sink that is not installed.
	ErrSinkNotConfigured = errors.New("sink not configured")
)

// Dispatcher formats each record once and hands it to the console and file
// sinks whose thresholds admit it. The file sink is flushed for records at or
// above the flush level.
type Dispatcher struct {
	console    sink.Sink
	file       sink.Sink
	flushLevel atomic.Int32
	formatter  format.Formatter
	filters    *Filters
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

func WithFormatter(f format.Formatter) Option {
	return func(d *Dispatcher) {
		d.formatter = f
	}
}

func WithFilters(f *Filters) Option {
	return func(d *Dispatcher) {
		d.filters = f
	}
}

func WithFlushLevel(l level.Level) Option {
	return func(d *Dispatcher) {
		d.flushLevel.Store(int32(l))
	}
}

// NewWithSinks builds a dispatcher over explicit sinks. Either may be nil.
func NewWithSinks(console, file sink.Sink, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		console:   console,
		file:      file,
		formatter: format.Text{},
	}
	d.flushLevel.Store(int32(level.Info))
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// New builds the sinks described by cfg.
func New(cfg config.Config) (*Dispatcher, error) {
	if err := config.ValidateConfig(&cfg); err != nil {
		return nil, err
	}

	filters, err := NewFilters(cfg.Filters)
	if err != nil {
		return nil, err
	}

	var console sink.Sink
	if cfg.Console.Enabled {
		out := os.Stdout
		if cfg.Console.Target == "stderr" {
			out = os.Stderr
		}
		c := sink.NewConsole(out)
		c.SetLevel(cfg.Console.Level)
		console = c
	}

	var file sink.Sink
	if cfg.File.Enabled {
		file, err = newFileSink(cfg.File)
		if err != nil {
			return nil, err
		}
	}

	return NewWithSinks(console, file,
		WithFlushLevel(cfg.File.FlushLevel),
		WithFilters(filters),
		WithFormatter(format.Text{
			TimeLayout:       cfg.Format.TimeLayout,
			MaxMessageLength: cfg.Format.MaxMessageLength,
		}),
	), nil
}

func newFileSink(fc config.FileConfig) (sink.Sink, error) {
	maxSize, err := fc.MaxSizeBytes()
	if err != nil {
		return nil, err
	}

	var s sink.Sink
	switch fc.Backend {
	case config.BackendLumberjack:
		lj, err := sink.NewLumberjack(fc.Path, maxSize, fc.MaxFiles, fc.RotateOnOpen)
		if err != nil {
			return nil, err
		}
		s = lj
	default:
		interval, err := fc.OpenRetryIntervalDuration()
		if err != nil {
			return nil, err
		}
		delay, err := fc.RenameRetryDelayDuration()
		if err != nil {
			return nil, err
		}
		mode, err := fc.FileModePerm()
		if err != nil {
			return nil, err
		}
		bufSize, err := fc.BufferSizeBytes()
		if err != nil {
			return nil, err
		}
		rf, err := sink.NewRotatingFile(fc.Path, maxSize, fc.MaxFiles,
			sink.WithRotateOnOpen(fc.RotateOnOpen),
			sink.WithRenameRetryDelay(delay),
			sink.WithHandleOptions(
				filehelper.WithOpenRetry(fc.OpenRetries, interval),
				filehelper.WithFileMode(mode),
				filehelper.WithBufferSize(bufSize),
			),
		)
		if err != nil {
			return nil, err
		}
		s = rf
	}
	s.SetLevel(fc.Level)
	return s, nil
}

// WriteLog routes one record. Sink errors are joined and returned.
func (d *Dispatcher) WriteLog(site format.CallSite, l level.Level, msg string) error {
	if !l.Valid() || l == level.Off {
		return nil
	}
	if d.filters.Suppress(site.File, l) {
		return nil
	}

	toConsole := d.console != nil && d.console.ShouldLog(l)
	toFile := d.file != nil && d.file.ShouldLog(l)
	flush := d.file != nil && l >= d.FlushLevel()
	if !toConsole && !toFile && !flush {
		return nil
	}

	text := d.formatter.Format(format.NewRecord(site, l, msg))

	var errs []error
	if toConsole {
		errs = append(errs, d.console.Log(text))
	}
	if toFile {
		errs = append(errs, d.file.Log(text))
	}
	if flush {
		errs = append(errs, d.file.Flush())
	}
	return errors.Join(errs...)
}

// logAt must be called directly from the exported level methods so the
// call-site depth is fixed.
func (d *Dispatcher) logAt(l level.Level, msg string) error {
	return d.WriteLog(format.Caller(2), l, msg)
}

func (d *Dispatcher) Trace(args ...any) error {
	return d.logAt(level.Trace, fmt.Sprint(args...))
}

func (d *Dispatcher) Tracef(f string, args ...any) error {
	return d.logAt(level.Trace, fmt.Sprintf(f, args...))
}

func (d *Dispatcher) Debug(args ...any) error {
	return d.logAt(level.Debug, fmt.Sprint(args...))
}

func (d *Dispatcher) Debugf(f string, args ...any) error {
	return d.logAt(level.Debug, fmt.Sprintf(f, args...))
}

func (d *Dispatcher) Info(args ...any) error {
	return d.logAt(level.Info, fmt.Sprint(args...))
}

func (d *Dispatcher) Infof(f string, args ...any) error {
	return d.logAt(level.Info, fmt.Sprintf(f, args...))
}

func (d *Dispatcher) Warn(args ...any) error {
	return d.logAt(level.Warn, fmt.Sprint(args...))
}

func (d *Dispatcher) Warnf(f string, args ...any) error {
	return d.logAt(level.Warn, fmt.Sprintf(f, args...))
}

func (d *Dispatcher) Error(args ...any) error {
	return d.logAt(level.Error, fmt.Sprint(args...))
}

func (d *Dispatcher) Errorf(f string, args ...any) error {
	return d.logAt(level.Error, fmt.Sprintf(f, args...))
}

func (d *Dispatcher) Critical(args ...any) error {
	return d.logAt(level.Critical, fmt.Sprint(args...))
}

func (d *Dispatcher) Criticalf(f string, args ...any) error {
	return d.logAt(level.Critical, fmt.Sprintf(f, args...))
}

func (d *Dispatcher) SetConsoleLevel(l level.Level) {
	if d.console != nil {
		d.console.SetLevel(l)
	}
}

func (d *Dispatcher) SetFileLevel(l level.Level) {
	if d.file != nil {
		d.file.SetLevel(l)
	}
}

func (d *Dispatcher) SetFlushLevel(l level.Level) {
	d.flushLevel.Store(int32(l))
}

func (d *Dispatcher) FlushLevel() level.Level {
	return level.Level(d.flushLevel.Load())
}

// SetLevel changes the threshold named by target.
func (d *Dispatcher) SetLevel(target string, l level.Level) error {
	if !l.Valid() {
		return fmt.Errorf("invalid level %d", int8(l))
	}
	switch target {
	case TargetConsole:
		if d.console == nil {
			return fmt.Errorf("%w: %s", ErrSinkNotConfigured, target)
		}
		d.console.SetLevel(l)
	case TargetFile:
		if d.file == nil {
			return fmt.Errorf("%w: %s", ErrSinkNotConfigured, target)
		}
		d.file.SetLevel(l)
	case TargetFlush:
		d.SetFlushLevel(l)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTarget, target)
	}
	return nil
}

// Levels returns the current thresholds of the installed sinks and the flush level.
func (d *Dispatcher) Levels() map[string]level.Level {
	out := map[string]level.Level{TargetFlush: d.FlushLevel()}
	if d.console != nil {
		out[TargetConsole] = d.console.Level()
	}
	if d.file != nil {
		out[TargetFile] = d.file.Level()
	}
	return out
}

// Flush flushes every installed sink.
func (d *Dispatcher) Flush() error {
	var errs []error
	if d.console != nil {
		errs = append(errs, d.console.Flush())
	}
	if d.file != nil {
		errs = append(errs, d.file.Flush())
	}
	return errors.Join(errs...)
}

// Close releases every installed sink.
func (d *Dispatcher) Close() error {
	var errs []error
	if d.console != nil {
		errs = append(errs, d.console.Close())
	}
	if d.file != nil {
		errs = append(errs, d.file.Close())
	}
	return errors.Join(errs...)
}
