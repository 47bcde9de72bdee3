package sink

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/orgoj/rotalog/internal/fsutil"
)

const megabyte = 1024 * 1024

// LumberjackBackend rotates to timestamped backups instead of numbered ones.
// Writes are unbuffered, so FlushIt has nothing to do.
type LumberjackBackend struct {
	logger *lumberjack.Logger
}

func (b *LumberjackBackend) SinkIt(text string) error {
	n, err := b.logger.Write([]byte(text))
	if err != nil {
		return fmt.Errorf("lumberjack sink %q: %w", b.logger.Filename, err)
	}
	if n != len(text) {
		return fmt.Errorf("lumberjack sink %q: wrote %d of %d bytes", b.logger.Filename, n, len(text))
	}
	return nil
}

func (b *LumberjackBackend) FlushIt() error {
	return nil
}

func (b *LumberjackBackend) Close() error {
	return b.logger.Close()
}

// Lumberjack is a synchronized sink backed by lumberjack.Logger.
type Lumberjack struct {
	*Base
	backend *LumberjackBackend
}

// NewLumberjack creates a sink keeping at most maxFiles backups of path.
// maxSize is in bytes and rounded up to whole megabytes.
func NewLumberjack(path string, maxSize int64, maxFiles int, rotateOnOpen bool) (*Lumberjack, error) {
	if path == "" {
		return nil, errors.New("lumberjack sink: empty path")
	}
	if maxSize <= 0 {
		return nil, fmt.Errorf("lumberjack sink: max size must be positive, got %d", maxSize)
	}
	// lumberjack reads MaxBackups == 0 as unlimited.
	if maxFiles < 1 {
		return nil, fmt.Errorf("lumberjack sink: max files must be positive, got %d", maxFiles)
	}
	if err := fsutil.EnsureParentDir(path); err != nil {
		return nil, err
	}

	l := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    int((maxSize + megabyte - 1) / megabyte),
		MaxBackups: maxFiles,
		LocalTime:  true,
	}
	if rotateOnOpen && fileSize(path) > 0 {
		if err := l.Rotate(); err != nil {
			return nil, fmt.Errorf("lumberjack sink %q: rotate on open: %w", path, err)
		}
	}

	backend := &LumberjackBackend{logger: l}
	return &Lumberjack{Base: NewBase(backend), backend: backend}, nil
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

func (s *Lumberjack) Filename() string {
	return s.backend.logger.Filename
}

// Rotate forces a rotation regardless of size.
func (s *Lumberjack) Rotate() error {
	var err error
	s.withLock(func() { err = s.backend.logger.Rotate() })
	return err
}
