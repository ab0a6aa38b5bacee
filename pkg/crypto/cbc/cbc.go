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

// Package cbc implements AES in CBC mode with PKCS#7 padding.
//
// CBC is not authenticated. Callers that need integrity must layer it on
// top; the session codec relies on padding validation and on the key never
// leaving its provider.
package cbc

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
)

// IVSize is the CBC initialization vector length in bytes.
const IVSize = aes.BlockSize

var (
	// ErrInvalidKeySize is returned when the key is not 16, 24, or 32 bytes.
	ErrInvalidKeySize = errors.New("cbc: invalid key size")

	// ErrInvalidIV is returned when the IV is not exactly one block long.
	ErrInvalidIV = errors.New("cbc: invalid initialization vector")

	// ErrInvalidCiphertext is returned when the ciphertext is empty or not a
	// multiple of the block size.
	ErrInvalidCiphertext = errors.New("cbc: invalid ciphertext length")

	// ErrInvalidPadding is returned when PKCS#7 padding validation fails.
	ErrInvalidPadding = errors.New("cbc: invalid padding")
)

// Encrypt pads plaintext with PKCS#7 and encrypts it under key and iv.
func Encrypt(key, iv, plaintext []byte) ([]byte, error) {
	block, err := newBlock(key)
	if err != nil {
		return nil, err
	}
	if len(iv) != IVSize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidIV, len(iv), IVSize)
	}

	padded := Pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
	return ciphertext, nil
}

// Decrypt decrypts ciphertext under key and iv and strips PKCS#7 padding.
func Decrypt(key, iv, ciphertext []byte) ([]byte, error) {
	block, err := newBlock(key)
	if err != nil {
		return nil, err
	}
	if len(iv) != IVSize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidIV, len(iv), IVSize)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidCiphertext, len(ciphertext))
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)
	return Unpad(plaintext, aes.BlockSize)
}

// Pad appends PKCS#7 padding. A full block of padding is added when the
// input is already block aligned.
func Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	out := make([]byte, len(data), len(data)+n)
	copy(out, data)
	return append(out, bytes.Repeat([]byte{byte(n)}, n)...)
}

// Unpad removes and validates PKCS#7 padding.
func Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrInvalidPadding
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, ErrInvalidPadding
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrInvalidPadding
		}
	}
	return data[:len(data)-n], nil
}

func newBlock(key []byte) (cipher.Block, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidKeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return block, nil
}
