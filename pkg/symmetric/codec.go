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

// Package symmetric protects session secrets at rest. A Codec encrypts
// strings with AES-CBC/PKCS#7 under a provider-held key looked up by alias
// and returns the IV together with the ciphertext; nothing is persisted.
//
//	codec, _ := symmetric.NewCodec(provider)
//	blob, _ := codec.Encrypt("session secret")
//	plaintext, _ := codec.Decrypt(blob)
package symmetric

import (
	"fmt"
	"unicode/utf8"

	"github.com/jeremyhahn/go-sessionkey/pkg/keystore"
)

// DefaultAlias is the key alias used when none is configured.
const DefaultAlias = "Web3Auth"

// Codec encrypts and decrypts strings under a single provider alias.
// A Codec is safe for concurrent use if its provider is.
type Codec struct {
	provider keystore.Provider
	alias    string
}

// Option configures a Codec.
type Option func(*Codec)

// WithAlias overrides DefaultAlias.
func WithAlias(alias string) Option {
	return func(c *Codec) {
		c.alias = alias
	}
}

// NewCodec returns a Codec backed by provider.
func NewCodec(provider keystore.Provider, opts ...Option) (*Codec, error) {
	if provider == nil {
		return nil, fmt.Errorf("symmetric: provider cannot be nil")
	}

	c := &Codec{provider: provider, alias: DefaultAlias}
	for _, opt := range opts {
		opt(c)
	}
	if err := keystore.ValidateAlias(c.alias); err != nil {
		return nil, err
	}
	return c, nil
}

// Alias returns the key alias.
func (c *Codec) Alias() string {
	return c.alias
}

// Provider returns the underlying key provider.
func (c *Codec) Provider() keystore.Provider {
	return c.provider
}

// Encrypt encrypts the UTF-8 bytes of value, creating the alias key in the
// provider on first use.
func (c *Codec) Encrypt(value string) (*EncryptedBlob, error) {
	handle, err := c.provider.EnsureKey(c.alias)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncryption, err)
	}

	iv, ciphertext, err := c.provider.Encrypt(handle, []byte(value))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncryption, err)
	}

	return &EncryptedBlob{
		Algorithm:  AlgorithmAESCBCPKCS7,
		IV:         iv,
		Ciphertext: ciphertext,
	}, nil
}

// Decrypt recovers the string encrypted into blob. The alias key must
// already exist; Decrypt never creates one.
func (c *Codec) Decrypt(blob *EncryptedBlob) (string, error) {
	if blob == nil {
		return "", fmt.Errorf("%w: %w: blob is nil", ErrDecryption, keystore.ErrCipher)
	}
	if blob.Algorithm != "" && blob.Algorithm != AlgorithmAESCBCPKCS7 {
		return "", fmt.Errorf("%w: %w: unsupported algorithm %q", ErrDecryption, keystore.ErrCipher, blob.Algorithm)
	}

	handle, err := c.provider.Key(c.alias)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecryption, err)
	}

	plaintext, err := c.provider.Decrypt(handle, blob.IV, blob.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecryption, err)
	}

	if !utf8.Valid(plaintext) {
		return "", fmt.Errorf("%w: %w: recovered bytes are not valid UTF-8", ErrDecryption, keystore.ErrCipher)
	}
	return string(plaintext), nil
}

// EncryptString encrypts value and returns the base64 wire form.
func (c *Codec) EncryptString(value string) (string, error) {
	blob, err := c.Encrypt(value)
	if err != nil {
		return "", err
	}
	return EncodeBlob(blob)
}

// DecryptString decodes the base64 wire form and decrypts it.
func (c *Codec) DecryptString(encoded string) (string, error) {
	blob, err := DecodeBlob(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %w: %w", ErrDecryption, keystore.ErrCipher, err)
	}
	return c.Decrypt(blob)
}
