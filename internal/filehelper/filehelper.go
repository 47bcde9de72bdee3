// internal/filehelper/filehelper.go

// Package filehelper manages the single OS file behind a file sink.
package filehelper

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	retry "github.com/avast/retry-go/v5"

	"github.com/orgoj/rotalog/internal/fsutil"
)

var (
	// ErrOpenFailure is returned when every open attempt failed.
	ErrOpenFailure = errors.New("failed opening file")
	// ErrNotOpenedBefore is returned by Reopen on a handle that was never opened.
	ErrNotOpenedBefore = errors.New("failed re opening file - was not opened before")
	// ErrNotOpen is returned when writing or sizing a closed handle.
	ErrNotOpen = errors.New("file is not open")
	// ErrWriteFailure is returned when fewer bytes than requested were written.
	ErrWriteFailure = errors.New("failed writing to file")
)

const (
	DefaultOpenTries    = 5
	DefaultOpenInterval = 10 * time.Millisecond
	DefaultFileMode     = os.FileMode(0o644)
	DefaultBufferSize   = 4096
)

// Handle owns at most one open file. It is not safe for concurrent use; the
// owning sink serializes access.
type Handle struct {
	path string
	file *os.File
	w    *bufio.Writer

	openTries    uint
	openInterval time.Duration
	mode         os.FileMode
	bufSize      int
}

// Option configures a Handle.
type Option func(*Handle)

// WithOpenRetry sets the open attempt budget and the fixed pause between attempts.
func WithOpenRetry(tries uint, interval time.Duration) Option {
	return func(h *Handle) {
		if tries < 1 {
			tries = 1
		}
		h.openTries = tries
		h.openInterval = interval
	}
}

// WithFileMode sets the permission bits used when a file is created.
func WithFileMode(mode os.FileMode) Option {
	return func(h *Handle) {
		h.mode = mode
	}
}

// WithBufferSize sets the write buffer size.
func WithBufferSize(n int) Option {
	return func(h *Handle) {
		if n > 0 {
			h.bufSize = n
		}
	}
}

// New returns a closed Handle.
func New(opts ...Option) *Handle {
	h := &Handle{
		openTries:    DefaultOpenTries,
		openInterval: DefaultOpenInterval,
		mode:         DefaultFileMode,
		bufSize:      DefaultBufferSize,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Open closes any open file and opens path, creating missing parent
// directories. The file is appended to unless truncate is set.
func (h *Handle) Open(path string, truncate bool) error {
	_ = h.Close()

	flags := os.O_CREATE | os.O_WRONLY
	if truncate {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_APPEND
	}

	var f *os.File
	err := retry.New(
		retry.Attempts(h.openTries),
		retry.Delay(h.openInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	).Do(func() error {
		if err := fsutil.EnsureParentDir(path); err != nil {
			return err
		}
		opened, err := os.OpenFile(path, flags, h.mode)
		if err != nil {
			return err
		}
		f = opened
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w %q for writing after %d attempts: %w", ErrOpenFailure, path, h.openTries, err)
	}

	h.path = path
	h.file = f
	h.w = bufio.NewWriterSize(f, h.bufSize)
	return nil
}

// Reopen opens the last successfully opened path again.
func (h *Handle) Reopen(truncate bool) error {
	if h.path == "" {
		return ErrNotOpenedBefore
	}
	return h.Open(h.path, truncate)
}

// Write buffers p for the open file. Nothing is flushed.
func (h *Handle) Write(p []byte) error {
	if h.file == nil {
		return fmt.Errorf("%w: %q", ErrNotOpen, h.path)
	}
	n, err := h.w.Write(p)
	if err != nil || n != len(p) {
		return fmt.Errorf("%w %q: wrote %d of %d bytes: %v", ErrWriteFailure, h.path, n, len(p), err)
	}
	return nil
}

// WriteString is Write for a string.
func (h *Handle) WriteString(s string) error {
	return h.Write([]byte(s))
}

// Flush pushes buffered bytes to the OS. Failures are ignored.
func (h *Handle) Flush() {
	if h.w != nil {
		_ = h.w.Flush()
	}
}

// Close flushes and releases the file. Closing a closed handle is a no-op.
func (h *Handle) Close() error {
	if h.file == nil {
		return nil
	}
	flushErr := h.w.Flush()
	closeErr := h.file.Close()
	h.file = nil
	h.w = nil
	return errors.Join(flushErr, closeErr)
}

// Size returns the length of the open file as seen by the OS.
func (h *Handle) Size() (int64, error) {
	if h.file == nil {
		return 0, fmt.Errorf("%w: cannot use size() on closed file %q", ErrNotOpen, h.path)
	}
	h.Flush()
	info, err := h.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat %q: %w", h.path, err)
	}
	return info.Size(), nil
}

// IsOpen reports whether a file is currently held.
func (h *Handle) IsOpen() bool {
	return h.file != nil
}

// Filename returns the path last opened successfully.
func (h *Handle) Filename() string {
	return h.path
}

// SplitByExtension splits path into stem and extension. The extension starts
// at the last dot, except that a dot leading a file name (hidden files), a
// trailing dot or a dot inside a directory name yields no extension.
//
//	"mylog.txt"            -> ("mylog", ".txt")
//	".mylog"               -> (".mylog", "")
//	"/aaa/bb.d/mylog"      -> ("/aaa/bb.d/mylog", "")
//	"aaa/bbb/ccc/.mylog.txt" -> ("aaa/bbb/ccc/.mylog", ".txt")
func SplitByExtension(path string) (stem, ext string) {
	extIdx := strings.LastIndexByte(path, '.')
	if extIdx <= 0 || extIdx == len(path)-1 {
		return path, ""
	}

	folderIdx := -1
	for i := len(path) - 1; i >= 0; i-- {
		if os.IsPathSeparator(path[i]) {
			folderIdx = i
			break
		}
	}
	if folderIdx != -1 && folderIdx >= extIdx-1 {
		return path, ""
	}

	return path[:extIdx], path[extIdx:]
}
