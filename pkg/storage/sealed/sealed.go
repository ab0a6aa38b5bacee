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

// Package sealed provides a storage.Backend decorator that encrypts every
// value with XChaCha20-Poly1305 before handing it to the wrapped backend.
//
// The value key is derived from a caller-supplied master secret with HKDF
// (SHA-256). The storage key is bound to each value as additional
// authenticated data, so a sealed value copied under another key fails to
// open.
//
// Stored format: [nonce(24)][ciphertext+tag]
package sealed

import (
	"crypto/cipher"
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-sessionkey/pkg/adapters/kdf"
	"github.com/jeremyhahn/go-sessionkey/pkg/crypto/rand"
	"github.com/jeremyhahn/go-sessionkey/pkg/storage"
	"golang.org/x/crypto/chacha20poly1305"
)

// MinSecretSize is the minimum accepted master secret length in bytes.
const MinSecretSize = 16

var hkdfInfo = []byte("go-sessionkey sealed storage v1")

var (
	// ErrSecretTooShort is returned when the master secret is shorter than
	// MinSecretSize.
	ErrSecretTooShort = errors.New("sealed: master secret too short")

	// ErrUnseal is returned when a stored value fails authentication.
	ErrUnseal = errors.New("sealed: failed to unseal value")
)

// Storage encrypts values written to the wrapped backend. Keys are stored
// in the clear so List and Exists behave exactly like the inner backend.
type Storage struct {
	inner storage.Backend
	aead  cipher.AEAD
	rng   rand.Resolver
}

var _ storage.Backend = (*Storage)(nil)

// Config configures a sealed Storage.
type Config struct {
	// Backend is the storage that receives sealed values.
	Backend storage.Backend

	// Secret is the master secret. Must be at least MinSecretSize bytes.
	Secret []byte

	// Salt is an optional HKDF salt.
	Salt []byte

	// RNG supplies nonces. Defaults to the software resolver. The Storage
	// takes ownership and closes it on Close.
	RNG rand.Resolver
}

// Validate checks if the Config is valid.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}
	if c.Backend == nil {
		return fmt.Errorf("backend is required")
	}
	if len(c.Secret) < MinSecretSize {
		return fmt.Errorf("%w: %d bytes (minimum %d)", ErrSecretTooShort, len(c.Secret), MinSecretSize)
	}
	return nil
}

// New wraps config.Backend.
func New(config *Config) (*Storage, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	params := kdf.DefaultParams(kdf.AlgorithmHKDF)
	params.Salt = config.Salt
	params.Info = hkdfInfo
	params.KeyLength = chacha20poly1305.KeySize
	key, err := kdf.NewHKDFAdapter().DeriveKey(config.Secret, params)
	if err != nil {
		return nil, fmt.Errorf("sealed: failed to derive key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("sealed: failed to create XChaCha20-Poly1305 cipher: %w", err)
	}

	rng := config.RNG
	if rng == nil {
		rng, err = rand.NewResolver(rand.ModeSoftware)
		if err != nil {
			return nil, err
		}
	}

	return &Storage{inner: config.Backend, aead: aead, rng: rng}, nil
}

func (s *Storage) Get(key string) ([]byte, error) {
	sealedValue, err := s.inner.Get(key)
	if err != nil {
		return nil, err
	}
	return s.open(key, sealedValue)
}

func (s *Storage) Put(key string, value []byte, opts *storage.Options) error {
	if key == "" {
		return storage.ErrInvalidKey
	}
	sealedValue, err := s.seal(key, value)
	if err != nil {
		return err
	}
	return s.inner.Put(key, sealedValue, opts)
}

func (s *Storage) Delete(key string) error {
	return s.inner.Delete(key)
}

func (s *Storage) List(prefix string) ([]string, error) {
	return s.inner.List(prefix)
}

func (s *Storage) Exists(key string) (bool, error) {
	return s.inner.Exists(key)
}

// Close closes the nonce source and the wrapped backend.
func (s *Storage) Close() error {
	return errors.Join(s.rng.Close(), s.inner.Close())
}

func (s *Storage) seal(key string, value []byte) ([]byte, error) {
	nonce, err := s.rng.Rand(s.aead.NonceSize())
	if err != nil {
		return nil, fmt.Errorf("sealed: failed to generate nonce: %w", err)
	}

	out := make([]byte, 0, len(nonce)+len(value)+s.aead.Overhead())
	out = append(out, nonce...)
	return s.aead.Seal(out, nonce, value, []byte(key)), nil
}

func (s *Storage) open(key string, data []byte) ([]byte, error) {
	nonceSize := s.aead.NonceSize()
	if len(data) < nonceSize+s.aead.Overhead() {
		return nil, fmt.Errorf("%w: value too short (%d bytes)", ErrUnseal, len(data))
	}

	plaintext, err := s.aead.Open(nil, data[:nonceSize], data[nonceSize:], []byte(key))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnseal, key)
	}
	return plaintext, nil
}
