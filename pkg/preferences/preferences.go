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

// Package preferences persists session values under string keys, encrypting
// them with a symmetric.Codec on the way in.
//
// Two persistence modes exist. ModeEncrypted stores the base64 wire form of
// the encrypted blob, so the backend never sees the plaintext.
// ModeLegacyPlaintext reproduces the layout written by earlier SDK
// releases: the plaintext is stored as-is, and every Save and Load still
// round-trips the value through the key provider, so both fail when the
// provider is unavailable. A legacy Load also fails while the provider holds
// no key for the alias.
package preferences

import (
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-sessionkey/pkg/storage"
	"github.com/jeremyhahn/go-sessionkey/pkg/symmetric"
)

// Well-known preference keys.
const (
	KeySessionID      = "sessionId"
	KeyIV             = "ivKey"
	KeyEphemPublicKey = "ephemPublicKey"
	KeyMAC            = "mac"
)

// Mode selects how Save persists values.
type Mode int

const (
	// ModeEncrypted persists the encrypted blob.
	ModeEncrypted Mode = iota

	// ModeLegacyPlaintext persists the plaintext.
	ModeLegacyPlaintext
)

// ErrInvalidMode indicates an unknown mode name.
var ErrInvalidMode = errors.New("preferences: invalid mode")

func (m Mode) String() string {
	switch m {
	case ModeEncrypted:
		return "encrypted"
	case ModeLegacyPlaintext:
		return "legacy_plaintext"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses a mode name as produced by Mode.String.
func ParseMode(name string) (Mode, error) {
	switch name {
	case "", "encrypted":
		return ModeEncrypted, nil
	case "legacy_plaintext":
		return ModeLegacyPlaintext, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidMode, name)
	}
}

// Store is the preference façade.
type Store struct {
	backend storage.Backend
	codec   *symmetric.Codec
	mode    Mode
	prefix  string
}

// Option configures a Store.
type Option func(*Store)

// WithMode sets the persistence mode. The default is ModeEncrypted.
func WithMode(mode Mode) Option {
	return func(s *Store) {
		s.mode = mode
	}
}

// WithNamespace sets the key prefix used inside the backend. The default is
// storage.PreferencesPrefix.
func WithNamespace(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New returns a Store writing to backend.
func New(backend storage.Backend, codec *symmetric.Codec, opts ...Option) (*Store, error) {
	if backend == nil {
		return nil, fmt.Errorf("preferences: backend cannot be nil")
	}
	if codec == nil {
		return nil, fmt.Errorf("preferences: codec cannot be nil")
	}

	s := &Store{codec: codec, mode: ModeEncrypted, prefix: storage.PreferencesPrefix}
	for _, opt := range opts {
		opt(s)
	}
	if s.mode != ModeEncrypted && s.mode != ModeLegacyPlaintext {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMode, s.mode)
	}

	ns, err := storage.NewNamespace(backend, s.prefix)
	if err != nil {
		return nil, err
	}
	s.backend = ns
	return s, nil
}

// Mode returns the persistence mode.
func (s *Store) Mode() Mode {
	return s.mode
}

// Save encrypts value and persists it under key.
func (s *Store) Save(key, value string) error {
	switch s.mode {
	case ModeLegacyPlaintext:
		if err := s.Put(key, value); err != nil {
			return err
		}
		if _, err := s.codec.Encrypt(value); err != nil {
			return err
		}
		return nil
	default:
		encoded, err := s.codec.EncryptString(value)
		if err != nil {
			return err
		}
		return s.Put(key, encoded)
	}
}

// Load returns the decrypted value saved under key, or "" if key is absent.
func (s *Store) Load(key string) (string, error) {
	value, _, err := s.Lookup(key)
	return value, err
}

// Lookup is Load that also reports whether key was present.
func (s *Store) Lookup(key string) (string, bool, error) {
	stored, ok, err := s.get(key)
	if err != nil {
		return "", false, err
	}

	switch s.mode {
	case ModeLegacyPlaintext:
		// A read never creates the provider key.
		if _, err := s.codec.Provider().Key(s.codec.Alias()); err != nil {
			return "", ok, fmt.Errorf("%w: %w", symmetric.ErrDecryption, err)
		}
		blob, err := s.codec.Encrypt(stored)
		if err != nil {
			return "", ok, err
		}
		value, err := s.codec.Decrypt(blob)
		return value, ok, err
	default:
		if !ok {
			return "", false, nil
		}
		value, err := s.codec.DecryptString(stored)
		return value, true, err
	}
}

// Put stores value under key without encryption.
func (s *Store) Put(key, value string) error {
	if key == "" {
		return fmt.Errorf("preferences: %w", storage.ErrInvalidKey)
	}
	if err := s.backend.Put(key, []byte(value), storage.DefaultOptions()); err != nil {
		return fmt.Errorf("preferences: failed to store %q: %w", key, err)
	}
	return nil
}

// Get returns the raw value stored under key, or "" if absent.
func (s *Store) Get(key string) (string, error) {
	value, _, err := s.get(key)
	return value, err
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(key string) error {
	if err := s.backend.Delete(key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("preferences: failed to delete %q: %w", key, err)
	}
	return nil
}

// Keys returns every stored preference key.
func (s *Store) Keys() ([]string, error) {
	return s.backend.List("")
}

// Clear removes every preference. Provider keys are untouched.
func (s *Store) Clear() error {
	if err := storage.Clear(s.backend, ""); err != nil {
		return fmt.Errorf("preferences: %w", err)
	}
	return nil
}

func (s *Store) get(key string) (string, bool, error) {
	if key == "" {
		return "", false, fmt.Errorf("preferences: %w", storage.ErrInvalidKey)
	}
	data, err := s.backend.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("preferences: failed to read %q: %w", key, err)
	}
	return string(data), true, nil
}
