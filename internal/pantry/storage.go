package pantry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Storage defines the interface for capture-snapshot storage. The frame
// that produced a committed record is kept so clients can show what was
// actually scanned.
type Storage interface {
	// Save stores a snapshot and returns the name it was stored under
	Save(filename string, data []byte) (string, error)

	// Get retrieves a snapshot by name
	Get(path string) ([]byte, error)

	// Delete removes a snapshot. Missing files are not an error.
	Delete(path string) error
}

// LocalStorage implements the Storage interface using the local filesystem
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new LocalStorage instance
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating snapshot directory: %w", err)
	}

	return &LocalStorage{
		basePath: basePath,
	}, nil
}

// Save stores a snapshot to local storage
func (l *LocalStorage) Save(filename string, data []byte) (string, error) {
	path := filepath.Join(l.basePath, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing snapshot: %w", err)
	}
	return filename, nil
}

// Get retrieves a snapshot from local storage
func (l *LocalStorage) Get(path string) ([]byte, error) {
	fullPath := filepath.Join(l.basePath, path)
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	return data, nil
}

// Delete removes a snapshot from local storage
func (l *LocalStorage) Delete(path string) error {
	fullPath := filepath.Join(l.basePath, path)
	if err := os.Remove(fullPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("deleting snapshot: %w", err)
	}
	return nil
}
