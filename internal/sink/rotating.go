// internal/sink/rotating.go

package sink

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	retry "github.com/avast/retry-go/v5"

	"github.com/orgoj/rotalog/internal/filehelper"
	"github.com/orgoj/rotalog/internal/fsutil"
)

// ErrRotationFailure is returned when a backup could not be shifted.
var ErrRotationFailure = errors.New("rotating file sink: failed renaming")

const DefaultRenameRetryDelay = 100 * time.Millisecond

type rotatingConfig struct {
	rotateOnOpen     bool
	renameRetryDelay time.Duration
	handleOpts       []filehelper.Option
}

// RotatingOption configures a rotating file sink.
type RotatingOption func(*rotatingConfig)

// WithRotateOnOpen rotates a non-empty base file when the sink is created.
func WithRotateOnOpen(on bool) RotatingOption {
	return func(c *rotatingConfig) {
		c.rotateOnOpen = on
	}
}

// WithRenameRetryDelay sets the pause before the single rename retry.
func WithRenameRetryDelay(d time.Duration) RotatingOption {
	return func(c *rotatingConfig) {
		c.renameRetryDelay = d
	}
}

// WithHandleOptions passes options to the underlying file handle.
func WithHandleOptions(opts ...filehelper.Option) RotatingOption {
	return func(c *rotatingConfig) {
		c.handleOpts = append(c.handleOpts, opts...)
	}
}

// FilenameForIndex returns the name of backup i of base. Index 0 is base
// itself; app.log with index 3 becomes app3.log.
func FilenameForIndex(base string, index int) string {
	if index == 0 {
		return base
	}
	stem, ext := filehelper.SplitByExtension(base)
	return stem + strconv.Itoa(index) + ext
}

// RotatingFileBackend writes to base and shifts it to numbered backups once
// the bytes written since the last open exceed maxSize.
type RotatingFileBackend struct {
	basePath         string
	maxSize          int64
	maxFiles         int
	currentSize      int64
	renameRetryDelay time.Duration
	handle           *filehelper.Handle
}

// NewRotatingFileBackend opens base for appending and records its current size.
func NewRotatingFileBackend(base string, maxSize int64, maxFiles int, opts ...RotatingOption) (*RotatingFileBackend, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("rotating file sink: max size must be positive, got %d", maxSize)
	}
	if maxFiles < 0 {
		return nil, fmt.Errorf("rotating file sink: max files must not be negative, got %d", maxFiles)
	}

	cfg := rotatingConfig{renameRetryDelay: DefaultRenameRetryDelay}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &RotatingFileBackend{
		basePath:         base,
		maxSize:          maxSize,
		maxFiles:         maxFiles,
		renameRetryDelay: cfg.renameRetryDelay,
		handle:           filehelper.New(cfg.handleOpts...),
	}

	if err := r.handle.Open(FilenameForIndex(base, 0), false); err != nil {
		return nil, err
	}
	size, err := r.handle.Size()
	if err != nil {
		_ = r.handle.Close()
		return nil, err
	}
	r.currentSize = size

	if cfg.rotateOnOpen && size > 0 {
		if err := r.rotate(); err != nil {
			_ = r.handle.Close()
			return nil, err
		}
		r.currentSize = 0
	}
	return r, nil
}

func (r *RotatingFileBackend) SinkIt(text string) error {
	if !r.handle.IsOpen() {
		if err := r.reopenBase(); err != nil {
			return err
		}
	}
	n := int64(len(text))
	r.currentSize += n
	if r.currentSize > r.maxSize {
		if err := r.rotate(); err != nil {
			return err
		}
		r.currentSize = n
	}
	return r.handle.WriteString(text)
}

func (r *RotatingFileBackend) FlushIt() error {
	r.handle.Flush()
	return nil
}

func (r *RotatingFileBackend) Close() error {
	return r.handle.Close()
}

// Filename returns the path of the file currently written.
func (r *RotatingFileBackend) Filename() string {
	return r.handle.Filename()
}

// CurrentSize returns the bytes counted since the file was opened or truncated.
func (r *RotatingFileBackend) CurrentSize() int64 {
	return r.currentSize
}

// rotate shifts log.ext -> log1.ext -> log2.ext ... dropping the oldest, then
// reopens an empty base file.
func (r *RotatingFileBackend) rotate() error {
	_ = r.handle.Close()

	for i := r.maxFiles; i > 0; i-- {
		src := FilenameForIndex(r.basePath, i-1)
		if !fsutil.PathExists(src) {
			continue
		}
		dst := FilenameForIndex(r.basePath, i)
		if err := r.renameFile(src, dst); err != nil {
			reopenErr := r.handle.Reopen(true)
			r.currentSize = 0
			return errors.Join(
				fmt.Errorf("%w %q to %q: %w", ErrRotationFailure, src, dst, err),
				reopenErr,
			)
		}
	}
	if err := r.handle.Reopen(true); err != nil {
		r.currentSize = 0
		return err
	}
	return nil
}

// reopenBase appends to the base file after a rotation left the handle
// closed, counting the bytes already there.
func (r *RotatingFileBackend) reopenBase() error {
	if err := r.handle.Reopen(false); err != nil {
		return err
	}
	size, err := r.handle.Size()
	if err != nil {
		return err
	}
	r.currentSize = size
	return nil
}

// renameFile replaces dst with src, retrying once after a pause.
func (r *RotatingFileBackend) renameFile(src, dst string) error {
	return retry.New(
		retry.Attempts(2),
		retry.Delay(r.renameRetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	).Do(func() error {
		_ = fsutil.RemoveIfExists(dst)
		return fsutil.Rename(src, dst)
	})
}

// RotatingFile is a synchronized rotating file sink.
type RotatingFile struct {
	*Base
	backend *RotatingFileBackend
}

// NewRotatingFile creates a rotating file sink. See NewRotatingFileBackend.
func NewRotatingFile(base string, maxSize int64, maxFiles int, opts ...RotatingOption) (*RotatingFile, error) {
	backend, err := NewRotatingFileBackend(base, maxSize, maxFiles, opts...)
	if err != nil {
		return nil, err
	}
	return &RotatingFile{Base: NewBase(backend), backend: backend}, nil
}

func (s *RotatingFile) Filename() string {
	var name string
	s.withLock(func() { name = s.backend.Filename() })
	return name
}

func (s *RotatingFile) CurrentSize() int64 {
	var size int64
	s.withLock(func() { size = s.backend.CurrentSize() })
	return size
}
