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

// Package memory provides an in-memory implementation of storage.Backend,
// used as the preference store in tests and for ephemeral sessions.
package memory

import (
	"sort"
	"strings"
	"sync"

	"github.com/jeremyhahn/go-sessionkey/pkg/storage"
)

// Storage is a map-backed storage.Backend guarded by a read-write mutex.
// Values are copied on the way in and on the way out.
type Storage struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

var _ storage.Backend = (*Storage)(nil)

// New creates a new, empty in-memory store.
func New() *Storage {
	return &Storage{
		data: make(map[string][]byte),
	}
}

// Get retrieves the value for the given key.
func (s *Storage) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, storage.ErrInvalidKey
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrClosed
	}

	value, ok := s.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return clone(value), nil
}

// Put stores the value for the given key. Options are ignored.
func (s *Storage) Put(key string, value []byte, _ *storage.Options) error {
	if key == "" {
		return storage.ErrInvalidKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrClosed
	}

	s.data[key] = clone(value)
	return nil
}

// Delete removes the key. Returns storage.ErrNotFound if it does not exist.
func (s *Storage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrClosed
	}
	if _, ok := s.data[key]; !ok {
		return storage.ErrNotFound
	}
	delete(s.data, key)
	return nil
}

// List returns the sorted keys that start with prefix.
func (s *Storage) List(prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrClosed
	}

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Exists reports whether key is present.
func (s *Storage) Exists(key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, storage.ErrClosed
	}
	_, ok := s.data[key]
	return ok, nil
}

// Len returns the number of stored entries.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Close drops all data. Every later call returns storage.ErrClosed.
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.data = nil
	return nil
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
