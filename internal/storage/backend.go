package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Backend persists whole collections as opaque encoded payloads keyed by
// collection name. Read must return an error wrapping fs.ErrNotExist when the
// collection has never been written.
type Backend interface {
	Read(ctx context.Context, name string) ([]byte, error)
	Write(ctx context.Context, name string, data []byte) error
	// Quarantine moves an unreadable payload aside so the next Write does not
	// destroy it.
	Quarantine(ctx context.Context, name string) error
	Close() error
}

// FileBackend stores each collection as <dir>/<name>.json.
type FileBackend struct {
	dir string
}

// NewFileBackend creates dir if needed and returns a backend rooted there.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("storage error creating directories: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

// Path returns the collection file for name.
func (b *FileBackend) Path(name string) string {
	return filepath.Join(b.dir, name+".json")
}

func (b *FileBackend) Read(_ context.Context, name string) ([]byte, error) {
	return os.ReadFile(b.Path(name))
}

// Write atomically replaces the collection file.
func (b *FileBackend) Write(_ context.Context, name string, data []byte) error {
	path := b.Path(name)

	// Atomic write: write to temp file then rename.
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("storage error writing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("storage error renaming temp file: %w", err)
	}
	return nil
}

// Quarantine renames the collection file to <name>.json.corrupt.
func (b *FileBackend) Quarantine(_ context.Context, name string) error {
	path := b.Path(name)
	return os.Rename(path, path+".corrupt")
}

func (b *FileBackend) Close() error { return nil }

// ErrReadOnly is returned by writes through a read-only backend.
var ErrReadOnly = errors.New("storage opened read-only")

type readOnlyBackend struct {
	Backend
}

// ReadOnly wraps b so that Write and Quarantine fail with ErrReadOnly. A
// corrupt collection read through it is reported but left in place.
func ReadOnly(b Backend) Backend {
	return readOnlyBackend{Backend: b}
}

func (readOnlyBackend) Write(context.Context, string, []byte) error { return ErrReadOnly }

func (readOnlyBackend) Quarantine(context.Context, string) error { return ErrReadOnly }
