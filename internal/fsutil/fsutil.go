// Package fsutil holds the small filesystem primitives the file sinks build on.
package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// PathExists reports whether something exists at path.
func PathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// DirName returns the directory part of path, or "" when path has none.
func DirName(path string) string {
	dir := filepath.Dir(path)
	if dir == "." && !hasDirPrefix(path) {
		return ""
	}
	return dir
}

func hasDirPrefix(path string) bool {
	return len(path) > 1 && path[0] == '.' && os.IsPathSeparator(path[1])
}

// CreateDir creates path and any missing parents. It returns true if the
// directory exists afterwards. An empty path is treated as the working
// directory and reports true.
func CreateDir(path string) bool {
	if path == "" {
		return true
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// EnsureParentDir creates the directory that will contain path.
func EnsureParentDir(path string) error {
	dir := DirName(path)
	if !CreateDir(dir) {
		return fmt.Errorf("create directory %q for %q failed", dir, path)
	}
	return nil
}

// RemoveIfExists deletes path and treats a missing file as success.
func RemoveIfExists(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Rename moves src to dst.
func Rename(src, dst string) error {
	return os.Rename(src, dst)
}
