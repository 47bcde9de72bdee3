package sink

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orgoj/rotalog/internal/filehelper"
)

func record(tag string, n int) string {
	return fmt.Sprintf("%-*s\n", n-1, tag)
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func newRotating(t *testing.T, base string, maxSize int64, maxFiles int, opts ...RotatingOption) *RotatingFile {
	t.Helper()
	opts = append([]RotatingOption{WithRenameRetryDelay(time.Millisecond)}, opts...)
	s, err := NewRotatingFile(base, maxSize, maxFiles, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestFilenameForIndex(t *testing.T) {
	tests := []struct {
		base  string
		index int
		want  string
	}{
		{"app.log", 0, "app.log"},
		{"app.log", 1, "app1.log"},
		{"app.log", 12, "app12.log"},
		{"logs/detail.txt", 3, "logs/detail3.txt"},
		{"logs/.hidden", 2, "logs/.hidden2"},
		{"noext", 1, "noext1"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s#%d", tt.base, tt.index), func(t *testing.T) {
			assert.Equal(t, tt.want, FilenameForIndex(tt.base, tt.index))
		})
	}
}

func TestRotatingFileRejectsBadLimits(t *testing.T) {
	base := filepath.Join(t.TempDir(), "app.log")
	_, err := NewRotatingFile(base, 0, 2)
	assert.Error(t, err)
	_, err = NewRotatingFile(base, 100, -1)
	assert.Error(t, err)
}

func TestRotatingFileOpenFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, err := NewRotatingFile(filepath.Join(blocker, "app.log"), 100, 2,
		WithHandleOptions(filehelper.WithOpenRetry(2, time.Millisecond)))
	assert.ErrorIs(t, err, filehelper.ErrOpenFailure)
}

func TestRotatingFileCountsExistingBytes(t *testing.T) {
	base := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(base, []byte(record("old", 40)), 0o644))

	s := newRotating(t, base, 100, 2)
	assert.Equal(t, int64(40), s.CurrentSize())
	assert.Equal(t, base, s.Filename())

	require.NoError(t, s.Log(record("new", 40)))
	require.NoError(t, s.Flush())
	assert.Equal(t, record("old", 40)+record("new", 40), readFile(t, base))
	assert.NoFileExists(t, FilenameForIndex(base, 1))
}

func TestRotationTrigger(t *testing.T) {
	base := filepath.Join(t.TempDir(), "app.log")
	s := newRotating(t, base, 100, 2)

	first := record("first", 60)
	second := record("second", 60)

	require.NoError(t, s.Log(first))
	assert.Equal(t, int64(60), s.CurrentSize())
	assert.NoFileExists(t, FilenameForIndex(base, 1))

	require.NoError(t, s.Log(second))
	assert.Equal(t, int64(60), s.CurrentSize(), "counter restarts at the triggering record")
	require.NoError(t, s.Flush())

	assert.Equal(t, second, readFile(t, base))
	assert.Equal(t, first, readFile(t, FilenameForIndex(base, 1)))
	assert.NoFileExists(t, FilenameForIndex(base, 2))
}

func TestRecordFillingExactlyToLimitDoesNotRotate(t *testing.T) {
	base := filepath.Join(t.TempDir(), "app.log")
	s := newRotating(t, base, 100, 2)

	require.NoError(t, s.Log(record("a", 50)))
	require.NoError(t, s.Log(record("b", 50)))
	assert.Equal(t, int64(100), s.CurrentSize())
	assert.NoFileExists(t, FilenameForIndex(base, 1))
}

func TestRetentionBound(t *testing.T) {
	base := filepath.Join(t.TempDir(), "app.log")
	s := newRotating(t, base, 100, 2)

	records := []string{record("r1", 60), record("r2", 60), record("r3", 60), record("r4", 60)}
	for _, r := range records {
		require.NoError(t, s.Log(r))
	}
	require.NoError(t, s.Flush())

	assert.Equal(t, records[3], readFile(t, base))
	assert.Equal(t, records[2], readFile(t, FilenameForIndex(base, 1)))
	assert.Equal(t, records[1], readFile(t, FilenameForIndex(base, 2)))
	assert.NoFileExists(t, FilenameForIndex(base, 3), "oldest record evicted")
}

func TestZeroBackupsOnlyTruncates(t *testing.T) {
	base := filepath.Join(t.TempDir(), "app.log")
	s := newRotating(t, base, 100, 0)

	require.NoError(t, s.Log(record("a", 60)))
	require.NoError(t, s.Log(record("b", 60)))
	require.NoError(t, s.Flush())

	assert.Equal(t, record("b", 60), readFile(t, base))
	assert.NoFileExists(t, FilenameForIndex(base, 1))
}

func TestOversizedRecordIsStillWritten(t *testing.T) {
	base := filepath.Join(t.TempDir(), "app.log")
	s := newRotating(t, base, 100, 2)

	big := record("big", 150)
	require.NoError(t, s.Log(big))
	require.NoError(t, s.Flush())

	assert.Equal(t, int64(150), s.CurrentSize())
	assert.Equal(t, big, readFile(t, base))
	assert.Empty(t, readFile(t, FilenameForIndex(base, 1)), "empty base was shifted")
}

func TestRotateOnOpen(t *testing.T) {
	base := filepath.Join(t.TempDir(), "app.log")
	old := record("previous run", 30)
	require.NoError(t, os.WriteFile(base, []byte(old), 0o644))

	s := newRotating(t, base, 100, 3, WithRotateOnOpen(true))
	assert.Zero(t, s.CurrentSize())
	assert.Equal(t, old, readFile(t, FilenameForIndex(base, 1)))
	assert.Empty(t, readFile(t, base))
}

func TestRotateOnOpenSkipsEmptyFile(t *testing.T) {
	base := filepath.Join(t.TempDir(), "app.log")
	newRotating(t, base, 100, 3, WithRotateOnOpen(true))
	assert.FileExists(t, base)
	assert.NoFileExists(t, FilenameForIndex(base, 1))
}

func TestRotationFailureTruncatesBase(t *testing.T) {
	base := filepath.Join(t.TempDir(), "app.log")
	// A non-empty directory where the first backup should go cannot be
	// removed or renamed over.
	occupied := FilenameForIndex(base, 1)
	require.NoError(t, os.MkdirAll(filepath.Join(occupied, "keep"), 0o755))

	s := newRotating(t, base, 100, 1)
	require.NoError(t, s.Log(record("first", 60)))

	err := s.Log(record("second", 60))
	require.ErrorIs(t, err, ErrRotationFailure)
	assert.Contains(t, err.Error(), base)
	assert.Contains(t, err.Error(), occupied)

	assert.Zero(t, s.CurrentSize())
	assert.Empty(t, readFile(t, base), "base reopened truncated")

	// The sink keeps working after the failure.
	require.NoError(t, s.Log(record("third", 30)))
	require.NoError(t, s.Flush())
	assert.Equal(t, record("third", 30), readFile(t, base))
}

func TestFailedReopenDoesNotKeepRotating(t *testing.T) {
	base := filepath.Join(t.TempDir(), "app.log")
	s := newRotating(t, base, 100, 0,
		WithHandleOptions(filehelper.WithOpenRetry(1, time.Millisecond)))
	require.NoError(t, s.Log(record("first", 60)))

	// A directory at the base path makes the truncating reopen fail.
	require.NoError(t, s.Flush())
	require.NoError(t, os.Remove(base))
	require.NoError(t, os.Mkdir(base, 0o755))

	err := s.Log(record("second", 60))
	require.ErrorIs(t, err, filehelper.ErrOpenFailure)
	assert.Zero(t, s.CurrentSize())

	// Later records try to reopen the base instead of rotating again.
	err = s.Log(record("third", 60))
	require.ErrorIs(t, err, filehelper.ErrOpenFailure)
	assert.Zero(t, s.CurrentSize())

	require.NoError(t, os.Remove(base))
	require.NoError(t, s.Log(record("fourth", 30)))
	require.NoError(t, s.Flush())
	assert.Equal(t, record("fourth", 30), readFile(t, base))
	assert.Equal(t, int64(30), s.CurrentSize())
}

func TestReopenTruncatedThroughHandle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	h := filehelper.New()
	require.NoError(t, h.Open(path, false))
	require.NoError(t, h.WriteString(record("x", 10)))
	require.NoError(t, h.Reopen(true))
	size, err := h.Size()
	require.NoError(t, err)
	assert.Zero(t, size)
	require.NoError(t, h.Close())
}

func TestConcurrentWritersDoNotInterleave(t *testing.T) {
	tests := []struct {
		name    string
		maxSize int64
	}{
		{"single file", 1 << 20},
		{"with rotation", 10000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := filepath.Join(t.TempDir(), "app.log")
			s, err := NewRotatingFile(base, tt.maxSize, 20)
			require.NoError(t, err)

			lines := map[string]string{
				"a": record("worker-a", 50),
				"b": record("worker-b", 50),
			}

			var wg sync.WaitGroup
			for _, line := range lines {
				wg.Add(1)
				go func(line string) {
					defer wg.Done()
					for i := 0; i < 1000; i++ {
						assert.NoError(t, s.Log(line))
					}
				}(line)
			}
			wg.Wait()
			require.NoError(t, s.Close())

			counts := map[string]int{}
			for i := 0; i <= 20; i++ {
				f, err := os.Open(FilenameForIndex(base, i))
				if os.IsNotExist(err) {
					continue
				}
				require.NoError(t, err)
				scanner := bufio.NewScanner(f)
				for scanner.Scan() {
					text := scanner.Text() + "\n"
					require.Len(t, text, 50)
					counts[strings.TrimSpace(text)]++
				}
				require.NoError(t, scanner.Err())
				require.NoError(t, f.Close())
			}
			assert.Equal(t, 1000, counts["worker-a"])
			assert.Equal(t, 1000, counts["worker-b"])
			assert.Len(t, counts, 2)
		})
	}
}
