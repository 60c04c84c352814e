package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileBackend stores each dataset as <name>.json in a directory.
// Writes go to a temp file that is renamed over the target, so readers see
// either the old or the new document.
type FileBackend struct {
	dir string
	mu  sync.Mutex
}

// NewFileBackend creates the data directory if needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return &FileBackend{dir: dir}, nil
}

func (f *FileBackend) path(name Dataset) string {
	return filepath.Join(f.dir, string(name)+".json")
}

func (f *FileBackend) Read(_ context.Context, name Dataset) ([]byte, error) {
	body, err := os.ReadFile(f.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotExist
	}

	return body, err
}

// Write replaces documents one by one in order and stops at the first failure.
func (f *FileBackend) Write(ctx context.Context, docs ...Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := f.replace(doc); err != nil {
			return fmt.Errorf("failed to write %s: %w", doc.Name, err)
		}
	}

	return nil
}

func (f *FileBackend) replace(doc Document) error {
	temp, err := os.CreateTemp(f.dir, "."+string(doc.Name)+"-*.tmp")
	if err != nil {
		return err
	}

	tempPath := temp.Name()

	if _, err := temp.Write(doc.Body); err != nil {
		temp.Close()
		os.Remove(tempPath)

		return err
	}

	if err := temp.Sync(); err != nil {
		temp.Close()
		os.Remove(tempPath)

		return err
	}

	if err := temp.Close(); err != nil {
		os.Remove(tempPath)
		return err
	}

	if err := os.Rename(tempPath, f.path(doc.Name)); err != nil {
		os.Remove(tempPath)
		return err
	}

	return nil
}

func (f *FileBackend) Exists(_ context.Context, name Dataset) (bool, error) {
	_, err := os.Stat(f.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}

	return err == nil, err
}

func (f *FileBackend) Close() error { return nil }
