package store

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/gofrs/flock"
)

var safeKeyPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// File is a Store keeping one file per key in a directory. Writes go through
// a temp file and rename, so a crash mid-write never corrupts the previous
// value. A cross-process advisory lock guards the directory against a second
// client instance using the same state dir.
type File struct {
	mu   sync.Mutex
	dir  string
	lock *flock.Flock
}

// NewFile creates (if needed) the directory and acquires its lock file.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create dir: %w", err)
	}

	lock := flock.New(filepath.Join(dir, ".lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("store: lock dir: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("store: state dir %s is locked by another process", dir)
	}

	return &File{dir: dir, lock: lock}, nil
}

// Close releases the directory lock.
func (f *File) Close() error {
	return f.lock.Unlock()
}

// Get returns the value for key, or ErrNotFound
func (f *File) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path(key))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %q: %w", key, err)
	}
	return data, nil
}

// Set writes the value for key atomically via temp file + rename
func (f *File) Set(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := f.path(key)
	tmp, err := os.CreateTemp(f.dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("store: create temp for %q: %w", key, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("store: write %q: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("store: sync %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: close temp for %q: %w", key, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: rename %q: %w", key, err)
	}
	return nil
}

// Delete removes the key
func (f *File) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("store: delete %q: %w", key, err)
	}
	return nil
}

// path maps a key to a file name. Keys that are not already safe file names
// get hex-encoded.
func (f *File) path(key string) string {
	name := key
	if !safeKeyPattern.MatchString(key) {
		name = hex.EncodeToString([]byte(key))
	}
	return filepath.Join(f.dir, name+".json")
}
