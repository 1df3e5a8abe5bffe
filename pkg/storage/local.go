package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// LocalBackend implements Backend using a single file on the local filesystem.
type LocalBackend struct {
	path string
	mu   sync.RWMutex
}

// NewLocalBackend creates a LocalBackend for the document at path, creating
// the parent directory if necessary.
func NewLocalBackend(path string) (*LocalBackend, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve document path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create document directory: %w", err)
	}
	return &LocalBackend{path: abs}, nil
}

// Path returns the absolute path of the backing file.
func (b *LocalBackend) Path() string {
	return b.path
}

func (b *LocalBackend) Read(_ context.Context) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", b.path, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read %s: %w", b.path, err)
	}
	return data, nil
}

func (b *LocalBackend) Write(_ context.Context, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Write to a temp file then rename so readers never observe a
	// partially written document.
	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmp, b.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func (b *LocalBackend) Exists(_ context.Context) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	_, err := os.Stat(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s: %w", b.path, err)
	}
	return true, nil
}
