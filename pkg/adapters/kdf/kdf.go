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

// Package kdf provides the key derivation adapters used to turn passwords
// and master secrets into symmetric keys.
package kdf

import (
	"crypto"
	"errors"
)

// Algorithm represents the key derivation function algorithm type
type Algorithm string

const (
	// AlgorithmHKDF represents HMAC-based Extract-and-Expand Key Derivation Function (RFC 5869)
	AlgorithmHKDF Algorithm = "HKDF"

	// AlgorithmArgon2id represents Argon2id (hybrid of Argon2i and Argon2d)
	AlgorithmArgon2id Algorithm = "Argon2id"
)

// String returns the string representation of the KDF algorithm
func (a Algorithm) String() string {
	return string(a)
}

// Params contains parameters for key derivation
type Params struct {
	// Algorithm specifies which KDF algorithm to use
	Algorithm Algorithm

	// Salt is the cryptographic salt. Required for Argon2id, optional for HKDF.
	Salt []byte

	// Info is application-specific context (HKDF only)
	Info []byte

	// Memory is the memory cost in KiB (Argon2id only)
	Memory uint32

	// Threads is the number of parallel threads (Argon2id only)
	Threads uint8

	// Time is the time cost (Argon2id only)
	Time uint32

	// KeyLength is the desired output key length in bytes
	KeyLength int

	// Hash is the hash function to use (HKDF only)
	Hash crypto.Hash
}

// Adapter derives keys with one algorithm.
type Adapter interface {
	// DeriveKey derives a key from the input key material using params.
	DeriveKey(ikm []byte, params *Params) ([]byte, error)

	// Algorithm returns the KDF algorithm this adapter implements
	Algorithm() Algorithm

	// ValidateParams returns an error if params are invalid for this algorithm
	ValidateParams(params *Params) error
}

// Common errors
var (
	// ErrInvalidSalt indicates the salt is missing or too short
	ErrInvalidSalt = errors.New("kdf: invalid salt")

	// ErrInvalidKeyLength indicates the requested key length is invalid
	ErrInvalidKeyLength = errors.New("kdf: invalid key length")

	// ErrInvalidMemory indicates the memory cost is invalid
	ErrInvalidMemory = errors.New("kdf: invalid memory cost")

	// ErrInvalidThreads indicates the thread count is invalid
	ErrInvalidThreads = errors.New("kdf: invalid threads")

	// ErrInvalidTime indicates the time cost is invalid
	ErrInvalidTime = errors.New("kdf: invalid time cost")

	// ErrInvalidHash indicates the hash function is invalid or not linked
	ErrInvalidHash = errors.New("kdf: invalid or unsupported hash function")

	// ErrInvalidIKM indicates the input key material is empty
	ErrInvalidIKM = errors.New("kdf: invalid input key material")

	// ErrUnsupportedAlgorithm indicates the algorithm is not supported by this adapter
	ErrUnsupportedAlgorithm = errors.New("kdf: unsupported algorithm")
)

// DefaultParams returns recommended parameters for algorithm, or nil for
// an unknown algorithm. Salt and Info are left for the caller.
func DefaultParams(algorithm Algorithm) *Params {
	switch algorithm {
	case AlgorithmHKDF:
		return &Params{
			Algorithm: AlgorithmHKDF,
			KeyLength: 32,
			Hash:      crypto.SHA256,
		}
	case AlgorithmArgon2id:
		return &Params{
			Algorithm: AlgorithmArgon2id,
			Memory:    64 * 1024, // 64 MiB
			Time:      1,
			Threads:   4,
			KeyLength: 32,
		}
	default:
		return nil
	}
}
