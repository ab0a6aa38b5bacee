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

package keystore

import (
	"fmt"

	"github.com/jeremyhahn/go-sessionkey/pkg/crypto/cbc"
	"github.com/jeremyhahn/go-sessionkey/pkg/crypto/rand"
)

// EncryptCBC encrypts plaintext under key with a fresh IV drawn from rng.
// Providers holding raw key material share this path; failures are
// reported as ErrCipher.
func EncryptCBC(rng rand.Resolver, key, plaintext []byte) (iv, ciphertext []byte, err error) {
	iv, err = rng.Rand(cbc.IVSize)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to generate IV: %v", ErrCipher, err)
	}
	ciphertext, err = cbc.Encrypt(key, iv, plaintext)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrCipher, err)
	}
	return iv, ciphertext, nil
}

// DecryptCBC decrypts ciphertext under key with the given IV.
func DecryptCBC(key, iv, ciphertext []byte) ([]byte, error) {
	plaintext, err := cbc.Decrypt(key, iv, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCipher, err)
	}
	return plaintext, nil
}
