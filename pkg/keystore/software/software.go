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

// Package software implements keystore.Provider on top of a storage.Backend.
//
// Key storage format:
//   - Unprotected: raw AES-256 key bytes at keys/{alias}.key
//   - Password-protected: [salt(32)][nonce(12)][ciphertext+tag] at the same path
//
// Handle metadata (ID, creation time) is stored as JSON at keys/{alias}.meta.
//
// Key material never leaves the provider; Encrypt and Decrypt load it for
// the duration of the call only.
package software

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/jeremyhahn/go-sessionkey/pkg/crypto/rand"
	"github.com/jeremyhahn/go-sessionkey/pkg/keystore"
	"github.com/jeremyhahn/go-sessionkey/pkg/storage"
)

// Config contains configuration for the software Provider.
type Config struct {
	// KeyStorage is the underlying storage for key material. This can be
	// file-based, memory-based, or sealed.
	KeyStorage storage.Backend

	// Password, if set, protects stored key material with Argon2id +
	// AES-256-GCM. The same password must be supplied on every open.
	Password []byte

	// RNG is the random source for key material and IVs. Defaults to
	// the software resolver.
	RNG rand.Resolver
}

// Validate checks if the Config is valid.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}
	if c.KeyStorage == nil {
		return fmt.Errorf("KeyStorage is required")
	}
	return nil
}

// Provider is a software keystore.Provider.
//
// Thread-safe: Yes, uses a read-write mutex for concurrent access.
type Provider struct {
	storage  storage.Backend
	password []byte
	rng      rand.Resolver
	closed   bool
	mu       sync.RWMutex
}

var _ keystore.Provider = (*Provider)(nil)

// New creates a software provider.
//
// Example usage:
//
//	provider, err := software.New(&software.Config{
//	    KeyStorage: memory.New(),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	handle, err := provider.EnsureKey("Web3Auth")
func New(config *Config) (*Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	rng := config.RNG
	if rng == nil {
		var err error
		rng, err = rand.NewResolver(rand.ModeSoftware)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize RNG: %w", err)
		}
	}

	var password []byte
	if len(config.Password) > 0 {
		password = append([]byte(nil), config.Password...)
	}

	return &Provider{
		storage:  config.KeyStorage,
		password: password,
		rng:      rng,
	}, nil
}

// Type returns keystore.ProviderSoftware.
func (p *Provider) Type() keystore.ProviderType {
	return keystore.ProviderSoftware
}

// EnsureKey returns the handle for alias, generating and storing a new
// AES-256 key if none exists. The write lock is held across the existence
// check and creation.
func (p *Provider) EnsureKey(alias string) (*keystore.KeyHandle, error) {
	if err := keystore.ValidateAlias(alias); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, keystore.ErrProviderClosed
	}

	handle, err := p.loadHandle(alias)
	if err == nil {
		return handle, nil
	}
	if !errors.Is(err, keystore.ErrKeyNotFound) {
		return nil, err
	}

	keyData, err := p.rng.Rand(keystore.KeySize)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to generate key: %v", keystore.ErrKeyUnavailable, err)
	}

	stored := keyData
	if p.password != nil {
		stored, err = sealWithPassword(p.rng, keyData, p.password)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to seal key: %v", keystore.ErrKeyUnavailable, err)
		}
	}

	handle = keystore.NewKeyHandle(alias, keystore.ProviderSoftware)
	meta, err := json.Marshal(handle)
	if err != nil {
		return nil, fmt.Errorf("failed to encode key metadata: %w", err)
	}

	if err := p.storage.Put(storage.KeyPath(alias), stored, storage.DefaultOptions()); err != nil {
		return nil, fmt.Errorf("%w: failed to save key: %v", keystore.ErrKeyUnavailable, err)
	}
	if err := p.storage.Put(storage.KeyMetaPath(alias), meta, storage.DefaultOptions()); err != nil {
		_ = p.storage.Delete(storage.KeyPath(alias))
		return nil, fmt.Errorf("%w: failed to save key metadata: %v", keystore.ErrKeyUnavailable, err)
	}

	return handle, nil
}

// Key returns the handle for an existing alias.
func (p *Provider) Key(alias string) (*keystore.KeyHandle, error) {
	if err := keystore.ValidateAlias(alias); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, keystore.ErrProviderClosed
	}
	return p.loadHandle(alias)
}

// Encrypt encrypts plaintext under the handle's key with a fresh IV.
func (p *Provider) Encrypt(handle *keystore.KeyHandle, plaintext []byte) ([]byte, []byte, error) {
	key, err := p.keyMaterial(handle)
	if err != nil {
		return nil, nil, err
	}
	return keystore.EncryptCBC(p.rng, key, plaintext)
}

// Decrypt decrypts ciphertext under the handle's key.
func (p *Provider) Decrypt(handle *keystore.KeyHandle, iv, ciphertext []byte) ([]byte, error) {
	key, err := p.keyMaterial(handle)
	if err != nil {
		return nil, err
	}
	return keystore.DecryptCBC(key, iv, ciphertext)
}

// Close releases the RNG and the underlying storage.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	if err := p.rng.Close(); err != nil {
		return fmt.Errorf("failed to close RNG: %w", err)
	}
	return p.storage.Close()
}

// loadHandle reads the handle for alias. Caller must hold p.mu.
func (p *Provider) loadHandle(alias string) (*keystore.KeyHandle, error) {
	exists, err := p.storage.Exists(storage.KeyPath(alias))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", keystore.ErrKeyUnavailable, err)
	}
	if !exists {
		return nil, keystore.NotFound(alias)
	}

	meta, err := p.storage.Get(storage.KeyMetaPath(alias))
	if errors.Is(err, storage.ErrNotFound) {
		// Key material imported without metadata.
		return &keystore.KeyHandle{Alias: alias, Provider: keystore.ProviderSoftware}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read key metadata: %v", keystore.ErrKeyUnavailable, err)
	}

	var handle keystore.KeyHandle
	if err := json.Unmarshal(meta, &handle); err != nil {
		return nil, fmt.Errorf("%w: corrupt key metadata: %v", keystore.ErrKeyUnavailable, err)
	}
	return &handle, nil
}

// keyMaterial loads and, if needed, unseals the raw key for handle.
func (p *Provider) keyMaterial(handle *keystore.KeyHandle) ([]byte, error) {
	if handle == nil {
		return nil, fmt.Errorf("%w: nil handle", keystore.ErrKeyUnavailable)
	}
	if handle.Provider != keystore.ProviderSoftware {
		return nil, fmt.Errorf("%w: handle belongs to provider %q", keystore.ErrKeyUnavailable, handle.Provider)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, keystore.ErrProviderClosed
	}

	stored, err := p.storage.Get(storage.KeyPath(handle.Alias))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, keystore.NotFound(handle.Alias)
		}
		return nil, fmt.Errorf("%w: failed to read key: %v", keystore.ErrKeyUnavailable, err)
	}

	key := stored
	if p.password != nil {
		key, err = openWithPassword(stored, p.password)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", keystore.ErrKeyUnavailable, err)
		}
	}
	if len(key) != keystore.KeySize {
		return nil, fmt.Errorf("%w: stored key has %d bytes", keystore.ErrKeyUnavailable, len(key))
	}
	return key, nil
}
