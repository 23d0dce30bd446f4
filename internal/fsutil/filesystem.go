// Package fsutil provides small filesystem helpers shared by the raster
// and table writers, most importantly atomic file replacement.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// Exists checks if a file or directory exists.
func Exists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

// EnsureDir creates dir and any missing parents.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// TempSibling returns a temporary path in the same directory as path.
// Writers that need atomic replacement write to the sibling first and
// then Promote it; same-directory placement keeps the final rename on
// one filesystem.
func TempSibling(path string) string {
	dir, base := filepath.Split(path)
	return filepath.Join(dir, "."+base+".partial")
}

// Promote atomically moves a completed temporary file into place.
func Promote(tmp, final string) error {
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to promote %s: %w", final, err)
	}
	return nil
}

// Discard removes a temporary file, ignoring errors; callers defer it
// so that a failed write never leaves a partial file behind.
func Discard(tmp string) {
	os.Remove(tmp)
}

// WriteFileAtomic writes data to path through a temporary sibling so
// that readers never observe a partially written file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp := TempSibling(path)
	if err := os.WriteFile(tmp, data, perm); err != nil {
		os.Remove(tmp)
		return err
	}
	return Promote(tmp, path)
}
