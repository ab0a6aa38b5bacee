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

package storage

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// KeysPrefix holds symmetric key material of the software provider.
	KeysPrefix = "keys/"

	// PreferencesPrefix is the default namespace for preference entries.
	PreferencesPrefix = "prefs/"
)

// KeyPath returns the storage path for key material with the given alias.
// The path follows the convention: keys/{alias}.key
func KeyPath(alias string) string {
	return KeysPrefix + alias + ".key"
}

// KeyMetaPath returns the storage path for the metadata of a key.
// The path follows the convention: keys/{alias}.meta
func KeyMetaPath(alias string) string {
	return KeysPrefix + alias + ".meta"
}

// Clear deletes every key under prefix. An empty prefix clears the whole
// backend. Keys that disappear concurrently are ignored.
func Clear(backend Backend, prefix string) error {
	keys, err := backend.List(prefix)
	if err != nil {
		return fmt.Errorf("failed to list keys: %w", err)
	}
	for _, k := range keys {
		if err := backend.Delete(k); err != nil && !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("failed to delete %q: %w", k, err)
		}
	}
	return nil
}

// Namespace is a Backend view that transparently prefixes every key. Keys
// returned by List have the prefix stripped. Closing a Namespace does not
// close the parent backend.
type Namespace struct {
	parent Backend
	prefix string
}

var _ Backend = (*Namespace)(nil)

// NewNamespace returns a view of parent rooted at prefix. A trailing "/" is
// appended to prefix if missing.
func NewNamespace(parent Backend, prefix string) (*Namespace, error) {
	if parent == nil {
		return nil, fmt.Errorf("%w: parent backend is nil", ErrInvalidKey)
	}
	if prefix == "" {
		return nil, fmt.Errorf("%w: namespace prefix cannot be empty", ErrInvalidKey)
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Namespace{parent: parent, prefix: prefix}, nil
}

// Prefix returns the namespace prefix including the trailing "/".
func (n *Namespace) Prefix() string {
	return n.prefix
}

func (n *Namespace) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}
	return n.parent.Get(n.prefix + key)
}

func (n *Namespace) Put(key string, value []byte, opts *Options) error {
	if key == "" {
		return ErrInvalidKey
	}
	return n.parent.Put(n.prefix+key, value, opts)
}

func (n *Namespace) Delete(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	return n.parent.Delete(n.prefix + key)
}

func (n *Namespace) List(prefix string) ([]string, error) {
	keys, err := n.parent.List(n.prefix + prefix)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.TrimPrefix(k, n.prefix))
	}
	return out, nil
}

func (n *Namespace) Exists(key string) (bool, error) {
	if key == "" {
		return false, ErrInvalidKey
	}
	return n.parent.Exists(n.prefix + key)
}

// Close is a no-op; the parent backend owns its resources.
func (n *Namespace) Close() error {
	return nil
}
