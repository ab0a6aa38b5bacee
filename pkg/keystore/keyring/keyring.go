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

// Package keyring implements keystore.Provider on top of the operating
// system keychain (macOS Keychain, Secret Service, KWallet, Windows
// Credential Manager, pass, or an encrypted file) via 99designs/keyring.
//
// Each alias is one keyring item whose data is a JSON record holding the
// handle metadata and the raw AES-256 key.
package keyring

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/99designs/keyring"
	"github.com/jeremyhahn/go-sessionkey/pkg/crypto/rand"
	"github.com/jeremyhahn/go-sessionkey/pkg/keystore"
)

// DefaultServiceName is the keyring service used when none is configured.
const DefaultServiceName = "go-sessionkey"

// Config contains configuration for the keyring Provider.
type Config struct {
	// ServiceName scopes items in the OS keychain.
	ServiceName string

	// Backends restricts which keyring backends may be used, in order of
	// preference (for example "keychain", "secret-service", "file").
	// Empty allows every backend available on the platform.
	Backends []string

	// FileDir is the directory for the encrypted file backend.
	FileDir string

	// FilePassword unlocks the encrypted file backend.
	FilePassword string

	// RNG is the random source for key material and IVs.
	RNG rand.Resolver
}

// record is the JSON document stored as keyring item data.
type record struct {
	Handle *keystore.KeyHandle `json:"handle"`
	Key    []byte              `json:"key"`
}

// Provider is a keystore.Provider backed by a keyring.Keyring.
type Provider struct {
	ring   keyring.Keyring
	rng    rand.Resolver
	closed bool
	mu     sync.RWMutex
}

var _ keystore.Provider = (*Provider)(nil)

// New opens the OS keyring described by config.
func New(config *Config) (*Provider, error) {
	if config == nil {
		config = &Config{}
	}

	service := config.ServiceName
	if service == "" {
		service = DefaultServiceName
	}

	krConfig := keyring.Config{
		ServiceName:              service,
		KeychainName:             service,
		KeychainTrustApplication: true,
		LibSecretCollectionName:  service,
		KWalletAppID:             service,
		KWalletFolder:            service,
		FileDir:                  config.FileDir,
	}
	for _, b := range config.Backends {
		krConfig.AllowedBackends = append(krConfig.AllowedBackends, keyring.BackendType(b))
	}
	if config.FilePassword != "" {
		krConfig.FilePasswordFunc = keyring.FixedStringPrompt(config.FilePassword)
	}

	ring, err := keyring.Open(krConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open keyring: %w", err)
	}

	return NewWithKeyring(ring, config.RNG)
}

// NewWithKeyring wraps an already opened keyring.
func NewWithKeyring(ring keyring.Keyring, rng rand.Resolver) (*Provider, error) {
	if ring == nil {
		return nil, fmt.Errorf("keyring cannot be nil")
	}
	if rng == nil {
		var err error
		rng, err = rand.NewResolver(rand.ModeSoftware)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize RNG: %w", err)
		}
	}
	return &Provider{ring: ring, rng: rng}, nil
}

// Type returns keystore.ProviderKeyring.
func (p *Provider) Type() keystore.ProviderType {
	return keystore.ProviderKeyring
}

// EnsureKey returns the handle for alias, creating the keyring item if it
// does not exist.
func (p *Provider) EnsureKey(alias string) (*keystore.KeyHandle, error) {
	if err := keystore.ValidateAlias(alias); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, keystore.ErrProviderClosed
	}

	rec, err := p.load(alias)
	if err == nil {
		return rec.Handle, nil
	}
	if !errors.Is(err, keystore.ErrKeyNotFound) {
		return nil, err
	}

	key, err := p.rng.Rand(keystore.KeySize)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to generate key: %v", keystore.ErrKeyUnavailable, err)
	}

	rec = &record{
		Handle: keystore.NewKeyHandle(alias, keystore.ProviderKeyring),
		Key:    key,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode keyring item: %w", err)
	}

	err = p.ring.Set(keyring.Item{
		Key:         alias,
		Data:        data,
		Label:       alias,
		Description: "AES-256 session protection key",
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to store key in keyring: %v", keystore.ErrKeyUnavailable, err)
	}
	return rec.Handle, nil
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

	rec, err := p.load(alias)
	if err != nil {
		return nil, err
	}
	return rec.Handle, nil
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

// Close marks the provider closed. The OS keyring needs no explicit release.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.rng.Close()
}

func (p *Provider) keyMaterial(handle *keystore.KeyHandle) ([]byte, error) {
	if handle == nil {
		return nil, fmt.Errorf("%w: nil handle", keystore.ErrKeyUnavailable)
	}
	if handle.Provider != keystore.ProviderKeyring {
		return nil, fmt.Errorf("%w: handle belongs to provider %q", keystore.ErrKeyUnavailable, handle.Provider)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, keystore.ErrProviderClosed
	}

	rec, err := p.load(handle.Alias)
	if err != nil {
		return nil, err
	}
	return rec.Key, nil
}

// load reads and decodes the item for alias. Caller must hold p.mu.
func (p *Provider) load(alias string) (*record, error) {
	item, err := p.ring.Get(alias)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return nil, keystore.NotFound(alias)
		}
		return nil, fmt.Errorf("%w: failed to get key from keyring: %v", keystore.ErrKeyUnavailable, err)
	}

	var rec record
	if err := json.Unmarshal(item.Data, &rec); err != nil {
		return nil, fmt.Errorf("%w: corrupt keyring item %q: %v", keystore.ErrKeyUnavailable, alias, err)
	}
	if rec.Handle == nil || len(rec.Key) != keystore.KeySize {
		return nil, fmt.Errorf("%w: malformed keyring item %q", keystore.ErrKeyUnavailable, alias)
	}
	return &rec, nil
}
