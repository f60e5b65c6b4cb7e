package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// RotatingFile is an io.WriteCloser that rotates by size. When a write
// would take the file past its limit, the file becomes <path>.1, the
// previous .1 becomes .2, and so on; backups past the retention count are
// deleted. Safe for concurrent use.
type RotatingFile struct {
	mu       sync.Mutex
	path     string
	maxBytes int64
	maxFiles int
	size     int64
	file     *os.File
}

var _ io.WriteCloser = (*RotatingFile)(nil)

// OpenRotating opens path for appending, creating it and its directory as
// needed. maxSizeMB is raised to at least 1; maxFiles below 0 means 0, where
// rotation simply starts a fresh file.
func OpenRotating(path string, maxSizeMB, maxFiles int) (*RotatingFile, error) {
	return openRotating(path, int64(max(maxSizeMB, 1))<<20, max(maxFiles, 0))
}

func openRotating(path string, maxBytes int64, maxFiles int) (*RotatingFile, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("log file: mkdir %s: %w", dir, err)
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("log file: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("log file: stat %s: %w", path, err)
	}

	return &RotatingFile{
		path:     path,
		maxBytes: maxBytes,
		maxFiles: maxFiles,
		size:     info.Size(),
		file:     f,
	}, nil
}

// Write never splits p across files. A p larger than the limit still goes
// to a fresh file whole.
func (w *RotatingFile) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, os.ErrClosed
	}
	if w.size > 0 && w.size+int64(len(p)) > w.maxBytes {
		if err := w.rotate(); err != nil {
			return 0, fmt.Errorf("log file: rotate: %w", err)
		}
	}

	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

// Close closes the current file.
func (w *RotatingFile) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// rotate must be called with mu held.
func (w *RotatingFile) rotate() error {
	if err := w.file.Close(); err != nil {
		return err
	}

	// highest first, so nothing is overwritten
	backups := w.backups()
	slices.Reverse(backups)
	for _, n := range backups {
		if n+1 > w.maxFiles {
			_ = os.Remove(w.backupPath(n))
		} else {
			_ = os.Rename(w.backupPath(n), w.backupPath(n+1))
		}
	}

	if w.maxFiles > 0 {
		_ = os.Rename(w.path, w.backupPath(1))
	} else {
		_ = os.Remove(w.path)
	}

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		w.file = nil
		return err
	}
	w.file = f
	w.size = 0
	return nil
}

func (w *RotatingFile) backupPath(n int) string {
	return w.path + "." + strconv.Itoa(n)
}

// backups returns the existing backup numbers, ascending.
func (w *RotatingFile) backups() []int {
	entries, err := os.ReadDir(filepath.Dir(w.path))
	if err != nil {
		return nil
	}
	prefix := filepath.Base(w.path) + "."
	var nums []int
	for _, e := range entries {
		suffix, ok := strings.CutPrefix(e.Name(), prefix)
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(suffix); err == nil && n >= 1 {
			nums = append(nums, n)
		}
	}
	slices.Sort(nums)
	return nums
}
