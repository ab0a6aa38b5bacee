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

// Package keystore defines the secure key provider contract used by the
// symmetric codec. A provider owns non-exportable AES-256 keys addressed by
// alias and performs AES-CBC with PKCS#7 padding on the caller's behalf;
// callers only ever hold a KeyHandle.
//
// Implementations:
//   - software: key material in a storage.Backend, optionally sealed with an
//     Argon2id-derived password key
//   - keyring: key material in the operating system keychain
package keystore

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// KeySize is the size of every provider-held AES key in bytes (AES-256).
const KeySize = 32

// ProviderType identifies a Provider implementation.
type ProviderType string

const (
	ProviderSoftware ProviderType = "software"
	ProviderKeyring  ProviderType = "keyring"
)

// Provider is a secure key provider. Implementations must be safe for
// concurrent use.
type Provider interface {
	// EnsureKey returns the handle for alias, generating a new AES-256 key
	// first if none exists. Check-and-create is atomic within the provider.
	EnsureKey(alias string) (*KeyHandle, error)

	// Key returns the handle for an existing alias without creating one.
	// Returns ErrKeyUnavailable (and ErrKeyNotFound) if absent.
	Key(alias string) (*KeyHandle, error)

	// Encrypt encrypts plaintext with AES-CBC/PKCS#7 under the handle's key
	// using a freshly generated 16-byte IV.
	Encrypt(handle *KeyHandle, plaintext []byte) (iv, ciphertext []byte, err error)

	// Decrypt reverses Encrypt with the supplied IV.
	Decrypt(handle *KeyHandle, iv, ciphertext []byte) ([]byte, error)

	// Type returns the provider type.
	Type() ProviderType

	// Close releases provider resources.
	Close() error
}

// KeyHandle is an opaque reference to a provider-held key.
type KeyHandle struct {
	Alias     string       `json:"alias"`
	ID        uuid.UUID    `json:"id"`
	Provider  ProviderType `json:"provider"`
	CreatedAt time.Time    `json:"created_at"`
}

// NewKeyHandle returns a handle with a fresh random ID.
func NewKeyHandle(alias string, provider ProviderType) *KeyHandle {
	return &KeyHandle{
		Alias:     alias,
		ID:        uuid.New(),
		Provider:  provider,
		CreatedAt: time.Now().UTC(),
	}
}

func (h *KeyHandle) String() string {
	return fmt.Sprintf("%s:%s:%s", h.Provider, h.Alias, h.ID)
}

// ValidateAlias rejects empty aliases and aliases that cannot be used as a
// single storage path segment.
func ValidateAlias(alias string) error {
	if alias == "" {
		return fmt.Errorf("%w: alias cannot be empty", ErrInvalidAlias)
	}
	if strings.ContainsAny(alias, "/\\\x00") || alias == "." || alias == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidAlias, alias)
	}
	return nil
}

// NotFound builds the error returned by Key for a missing alias.
func NotFound(alias string) error {
	return fmt.Errorf("%w: %w: %s", ErrKeyUnavailable, ErrKeyNotFound, alias)
}
