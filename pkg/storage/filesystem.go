package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrTooLarge is returned when a file exceeds the read limit.
var ErrTooLarge = errors.New("file exceeds size limit")

// LocalStorage reads submissions from and writes downloads to the local filesystem.
// Relative paths resolve under the base directory; absolute paths are used as given.
type LocalStorage struct {
	baseDir string
	maxRead int64
}

// NewLocalStorage ensures the base directory exists and returns a handle.
// maxRead bounds ReadBytes; zero or less disables the bound.
func NewLocalStorage(baseDir string, maxRead int64) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./downloads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir, maxRead: maxRead}, nil
}

// ReadBytes loads the whole file at path.
func (s *LocalStorage) ReadBytes(path string) ([]byte, error) {
	file, err := os.Open(s.resolve(path))
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close() //nolint:errcheck

	var r io.Reader = file
	if s.maxRead > 0 {
		r = io.LimitReader(file, s.maxRead+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if s.maxRead > 0 && int64(len(data)) > s.maxRead {
		return nil, ErrTooLarge
	}
	return data, nil
}

// WriteBytes stores data at path, creating parent directories, and returns the resolved location.
func (s *LocalStorage) WriteBytes(path string, data []byte) (string, error) {
	target := s.resolve(path)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("prepare directory: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return target, nil
}

// Delete removes a stored file if present.
func (s *LocalStorage) Delete(path string) error {
	if err := os.Remove(s.resolve(path)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// Path exposes the resolved location of path.
func (s *LocalStorage) Path(path string) string {
	return s.resolve(path)
}

func (s *LocalStorage) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.baseDir, path)
}
