// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-sessionkey.
//
// go-sessionkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package file provides a file-based implementation of storage.Backend.
// Each key maps to one file below a root directory; writes go through a
// temporary file and a rename so a crash never leaves a torn value behind.
package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/jeremyhahn/go-sessionkey/pkg/storage"
)

const (
	// Default directory permissions (owner rwx only)
	defaultDirPerms = 0700

	// Default file permissions (owner rw only)
	defaultFilePerms = 0600

	tempSuffix = ".tmp"
)

// FileStorage is a file-based implementation of storage.Backend.
type FileStorage struct {
	mu      sync.RWMutex
	rootDir string
}

var _ storage.Backend = (*FileStorage)(nil)

// New creates a FileStorage rooted at rootDir, creating the directory with
// 0700 permissions if needed.
func New(rootDir string) (*FileStorage, error) {
	if rootDir == "" {
		return nil, fmt.Errorf("file storage: root directory cannot be empty")
	}

	abs, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("file storage: failed to resolve root directory: %w", err)
	}
	if err := os.MkdirAll(abs, defaultDirPerms); err != nil {
		return nil, fmt.Errorf("file storage: failed to create root directory: %w", err)
	}

	return &FileStorage{rootDir: abs}, nil
}

// Root returns the absolute root directory.
func (f *FileStorage) Root() string {
	return f.rootDir
}

// Get retrieves the value for the given key.
func (f *FileStorage) Get(key string) ([]byte, error) {
	path, err := f.keyToPath(key)
	if err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	// #nosec G304 - path is validated to stay below rootDir
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("file storage: failed to read key %q: %w", key, err)
	}
	return data, nil
}

// Put atomically writes value for key. Permissions come from opts or
// default to 0600.
func (f *FileStorage) Put(key string, value []byte, opts *storage.Options) error {
	path, err := f.keyToPath(key)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), defaultDirPerms); err != nil {
		return fmt.Errorf("file storage: failed to create directory for key %q: %w", key, err)
	}

	perms := fs.FileMode(defaultFilePerms)
	if opts != nil && opts.Permissions != 0 {
		perms = opts.Permissions
	}

	tmp := path + tempSuffix
	if err := os.WriteFile(tmp, value, perms); err != nil {
		return fmt.Errorf("file storage: failed to write key %q: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("file storage: failed to commit key %q: %w", key, err)
	}
	return nil
}

// Delete removes the key. Returns storage.ErrNotFound if it does not exist.
func (f *FileStorage) Delete(key string) error {
	path, err := f.keyToPath(key)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("file storage: failed to delete key %q: %w", key, err)
	}
	return nil
}

// List returns the sorted keys that start with prefix. In-flight temporary
// files are skipped.
func (f *FileStorage) List(prefix string) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	keys := make([]string, 0)
	err := filepath.WalkDir(f.rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(path, tempSuffix) {
			return nil
		}
		rel, err := filepath.Rel(f.rootDir, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("file storage: failed to list keys: %w", err)
	}

	sort.Strings(keys)
	return keys, nil
}

// Exists reports whether key is present.
func (f *FileStorage) Exists(key string) (bool, error) {
	path, err := f.keyToPath(key)
	if err != nil {
		return false, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("file storage: failed to check key %q: %w", key, err)
	}
	return true, nil
}

// Close is a no-op for file storage.
func (f *FileStorage) Close() error {
	return nil
}

// keyToPath maps a slash-separated key to a path below rootDir, rejecting
// keys that would escape it.
func (f *FileStorage) keyToPath(key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", fmt.Errorf("%w: %v", storage.ErrInvalidKey, err)
	}
	path := filepath.Join(f.rootDir, filepath.FromSlash(key))
	rel, err := filepath.Rel(f.rootDir, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%w: key %q escapes storage root", storage.ErrInvalidKey, key)
	}
	return path, nil
}

func validateKey(key string) error {
	switch {
	case key == "":
		return fmt.Errorf("key cannot be empty")
	case strings.Contains(key, "\x00"):
		return fmt.Errorf("key contains null byte")
	case filepath.IsAbs(key) || strings.HasPrefix(key, "/"):
		return fmt.Errorf("key cannot be an absolute path")
	case strings.HasSuffix(key, tempSuffix):
		return fmt.Errorf("key cannot end in %s", tempSuffix)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return fmt.Errorf("key contains path traversal")
		}
	}
	return nil
}
