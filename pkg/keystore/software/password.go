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

package software

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/jeremyhahn/go-sessionkey/pkg/adapters/kdf"
	"github.com/jeremyhahn/go-sessionkey/pkg/crypto/rand"
	"github.com/jeremyhahn/go-sessionkey/pkg/keystore"
)

const (
	saltSize  = 32
	nonceSize = 12
	tagSize   = 16
)

// sealWithPassword encrypts key material with AES-256-GCM under an
// Argon2id-derived key. The salt is authenticated as additional data.
//
// Format: [salt(32)][nonce(12)][ciphertext+tag]
func sealWithPassword(rng rand.Resolver, keyData, password []byte) ([]byte, error) {
	salt, err := rng.Rand(saltSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	gcm, err := passwordAEAD(password, salt)
	if err != nil {
		return nil, err
	}

	nonce, err := rng.Rand(nonceSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	result := make([]byte, 0, saltSize+nonceSize+len(keyData)+tagSize)
	result = append(result, salt...)
	result = append(result, nonce...)
	return gcm.Seal(result, nonce, keyData, salt), nil
}

// openWithPassword reverses sealWithPassword.
func openWithPassword(sealed, password []byte) ([]byte, error) {
	if len(sealed) < saltSize+nonceSize+tagSize {
		return nil, fmt.Errorf("%w: sealed key too short (%d bytes)", keystore.ErrInvalidPassword, len(sealed))
	}

	salt := sealed[:saltSize]
	nonce := sealed[saltSize : saltSize+nonceSize]

	gcm, err := passwordAEAD(password, salt)
	if err != nil {
		return nil, err
	}

	keyData, err := gcm.Open(nil, nonce, sealed[saltSize+nonceSize:], salt)
	if err != nil {
		return nil, keystore.ErrInvalidPassword
	}
	return keyData, nil
}

func passwordAEAD(password, salt []byte) (cipher.AEAD, error) {
	// Argon2id: time=1, memory=64MB, threads=4, keyLen=32
	params := kdf.DefaultParams(kdf.AlgorithmArgon2id)
	params.Salt = salt
	derivedKey, err := kdf.NewArgon2idAdapter().DeriveKey(password, params)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	block, err := aes.NewCipher(derivedKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}
