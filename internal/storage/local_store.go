package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrFileNotFound is returned when a stored file does not exist
var ErrFileNotFound = errors.New("file not found")

// FileStore persists uploaded document files
type FileStore interface {
	// Save writes the content and returns the storage path
	Save(ctx context.Context, r io.Reader) (string, error)
	// Open returns a reader for the stored file
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	// Delete removes the stored file
	Delete(ctx context.Context, path string) error
}

// LocalFileStore implements FileStore on the local filesystem.
// Files are stored under the base directory with random UUID names so
// client-supplied filenames never reach the disk.
type LocalFileStore struct {
	baseDir string
}

// NewLocalFileStore creates the base directory if needed
func NewLocalFileStore(baseDir string) (*LocalFileStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalFileStore{baseDir: baseDir}, nil
}

// Save writes the content to a new UUID-named file
func (s *LocalFileStore) Save(ctx context.Context, r io.Reader) (string, error) {
	name := uuid.New().String() + ".pdf"
	path := filepath.Join(s.baseDir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close file: %w", err)
	}

	return name, nil
}

// Open returns a reader for the stored file
func (s *LocalFileStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}

// Delete removes the stored file; deleting a missing file is not an error
func (s *LocalFileStore) Delete(ctx context.Context, path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// resolve rejects paths that escape the base directory
func (s *LocalFileStore) resolve(path string) (string, error) {
	clean := filepath.Clean(path)
	if clean != filepath.Base(clean) || strings.HasPrefix(clean, ".") {
		return "", fmt.Errorf("invalid file path: %s", path)
	}
	return filepath.Join(s.baseDir, clean), nil
}

// Ensure LocalFileStore implements FileStore
var _ FileStore = (*LocalFileStore)(nil)
