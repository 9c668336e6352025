package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	apperrors "redditsaver/pkg/errors"
)

// FallbackDirName replaces a subreddit name that sanitizes to nothing
const FallbackDirName = "_unnamed"

// Manager owns the output tree: one directory per subreddit, files written
// atomically so a failed transfer never leaves a partial file behind.
type Manager struct {
	outputDir string
	dirMode   os.FileMode
	fileMode  os.FileMode

	mu           sync.Mutex
	filesWritten int
	bytesWritten int64
}

// NewManager creates a storage manager rooted at outputDir, creating it if
// needed.
func NewManager(outputDir string, dirMode, fileMode os.FileMode) (*Manager, error) {
	if dirMode == 0 {
		dirMode = 0755
	}
	if fileMode == 0 {
		fileMode = 0644
	}
	if err := os.MkdirAll(outputDir, dirMode); err != nil {
		return nil, apperrors.NewStorageError(outputDir, err)
	}

	return &Manager{
		outputDir: outputDir,
		dirMode:   dirMode,
		fileMode:  fileMode,
	}, nil
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}

// SubredditDir creates and returns baseDir/<sanitized subreddit>. An empty
// baseDir means the manager's output directory.
func (m *Manager) SubredditDir(baseDir, subreddit string) (string, error) {
	if baseDir == "" {
		baseDir = m.outputDir
	}
	dir := filepath.Join(baseDir, Sanitize(subreddit))
	if err := m.EnsureDir(dir); err != nil {
		return "", err
	}
	return dir, nil
}

// EnsureDir creates dir and any missing parents
func (m *Manager) EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, m.dirMode); err != nil {
		return apperrors.NewStorageError(dir, err)
	}
	return nil
}

// WriteFile streams r into path through a temporary file in the same
// directory and renames it into place, replacing any existing file.
func (m *Manager) WriteFile(path string, r io.Reader) (int64, error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, apperrors.NewStorageError(path, fmt.Errorf("failed to create temporary file: %w", err))
	}
	tmpName := tmp.Name()

	n, err := io.Copy(tmp, r)
	closeErr := tmp.Close()

	if err != nil {
		os.Remove(tmpName)
		return n, apperrors.NewStorageError(path, fmt.Errorf("failed to write data: %w", err))
	}
	if closeErr != nil {
		os.Remove(tmpName)
		return n, apperrors.NewStorageError(path, fmt.Errorf("failed to close file: %w", closeErr))
	}
	if err := os.Chmod(tmpName, m.fileMode); err != nil {
		os.Remove(tmpName)
		return n, apperrors.NewStorageError(path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return n, apperrors.NewStorageError(path, fmt.Errorf("failed to rename temporary file: %w", err))
	}

	m.mu.Lock()
	m.filesWritten++
	m.bytesWritten += n
	m.mu.Unlock()

	return n, nil
}

// Stats returns the number of files and bytes written so far
func (m *Manager) Stats() (files int, bytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filesWritten, m.bytesWritten
}

// windowsReserved are device names that cannot be used as a path component
var windowsReserved = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// Sanitize makes name safe as a single path component on common
// filesystems. Separators, reserved punctuation and control characters are
// removed, trailing dots and spaces are trimmed, and names that end up
// empty, relative or reserved become FallbackDirName.
func Sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r < 0x20 || r == 0x7f:
		case strings.ContainsRune(`/\?<>:*|"`, r):
		default:
			b.WriteRune(r)
		}
	}

	out := strings.TrimRight(strings.TrimSpace(b.String()), ". ")
	if len(out) > 255 {
		out = out[:255]
	}

	base := strings.ToUpper(out)
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	if out == "" || out == "." || out == ".." || windowsReserved[base] {
		return FallbackDirName
	}
	return out
}
