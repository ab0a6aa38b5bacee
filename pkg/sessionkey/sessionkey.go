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

// Package sessionkey derives secp256k1 key pairs from session identifiers.
//
// A session identifier is a hexadecimal string read as an unsigned big
// integer and used directly as the private scalar. Derivation is a pure
// function; key pairs are never cached.
package sessionkey

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/jeremyhahn/go-sessionkey/pkg/encoding"
)

var (
	// ErrInvalidSessionID is returned for session identifiers that are
	// empty, contain non-hex characters (including a sign or 0x prefix),
	// or encode a scalar outside [1, n-1].
	ErrInvalidSessionID = errors.New("sessionkey: invalid session id")

	// ErrInvalidScalar is returned when a private scalar is nil, zero,
	// negative, or not less than the group order.
	ErrInvalidScalar = errors.New("sessionkey: private scalar out of range")
)

// curveOrder is n, the order of the secp256k1 base point.
var curveOrder = new(big.Int).Set(secp256k1.S256().Params().N)

// CurveOrder returns a copy of the secp256k1 group order.
func CurveOrder() *big.Int {
	return new(big.Int).Set(curveOrder)
}

// KeyPair is a secp256k1 key pair derived from a session identifier.
type KeyPair struct {
	d    *big.Int
	priv *secp256k1.PrivateKey
}

// ParseSessionID parses a hex session identifier of either case into its
// private scalar.
func ParseSessionID(sessionID string) (*big.Int, error) {
	if !encoding.IsHex(sessionID) {
		return nil, fmt.Errorf("%w: not a hex string", ErrInvalidSessionID)
	}

	d, ok := new(big.Int).SetString(sessionID, 16)
	if !ok {
		return nil, fmt.Errorf("%w: not a hex string", ErrInvalidSessionID)
	}
	if err := validateScalar(d); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSessionID, err)
	}
	return d, nil
}

// Derive returns the key pair whose private scalar is the session
// identifier's value.
func Derive(sessionID string) (*KeyPair, error) {
	d, err := ParseSessionID(sessionID)
	if err != nil {
		return nil, err
	}
	return DeriveFromScalar(d)
}

// DeriveFromScalar returns the key pair for an already parsed scalar.
func DeriveFromScalar(d *big.Int) (*KeyPair, error) {
	if err := validateScalar(d); err != nil {
		return nil, err
	}

	var buf [32]byte
	d.FillBytes(buf[:])
	return &KeyPair{
		d:    new(big.Int).Set(d),
		priv: secp256k1.PrivKeyFromBytes(buf[:]),
	}, nil
}

// PublicKeyHex derives the key pair for sessionID and returns its public
// key rendering.
func PublicKeyHex(sessionID string) (string, error) {
	kp, err := Derive(sessionID)
	if err != nil {
		return "", err
	}
	return kp.PublicKeyHex(), nil
}

// PrivateKeyHex derives the key pair for sessionID and returns its private
// scalar rendering.
func PrivateKeyHex(sessionID string) (string, error) {
	kp, err := Derive(sessionID)
	if err != nil {
		return "", err
	}
	return kp.PrivateKeyHex(), nil
}

// PrivateKey returns a copy of the private scalar.
func (k *KeyPair) PrivateKey() *big.Int {
	return new(big.Int).Set(k.d)
}

// PrivateKeyHex renders the private scalar in lowercase base 16 with no
// prefix and no zero padding. Scalar 1 renders as "1".
func (k *KeyPair) PrivateKeyHex() string {
	return k.d.Text(16)
}

// PrivateKeyBytes returns the scalar as 32 big-endian bytes.
func (k *KeyPair) PrivateKeyBytes() []byte {
	return k.priv.Serialize()
}

// PublicKeyBytes returns the 64-byte X || Y concatenation of the public
// point, each coordinate 32 bytes big-endian.
func (k *KeyPair) PublicKeyBytes() []byte {
	return k.priv.PubKey().SerializeUncompressed()[1:]
}

// PublicKeyHex renders X || Y as one unsigned integer in lowercase base 16
// with leading zeros stripped. The generator renders as the 128 digits of
// Gx || Gy.
func (k *KeyPair) PublicKeyHex() string {
	return new(big.Int).SetBytes(k.PublicKeyBytes()).Text(16)
}

// SerializeUncompressed returns the 65-byte SEC1 encoding (0x04 || X || Y).
func (k *KeyPair) SerializeUncompressed() []byte {
	return k.priv.PubKey().SerializeUncompressed()
}

// ECPrivateKey exposes the underlying secp256k1 private key.
func (k *KeyPair) ECPrivateKey() *secp256k1.PrivateKey {
	return k.priv
}

// ECPublicKey exposes the underlying secp256k1 public key.
func (k *KeyPair) ECPublicKey() *secp256k1.PublicKey {
	return k.priv.PubKey()
}

func validateScalar(d *big.Int) error {
	if d == nil {
		return fmt.Errorf("%w: nil", ErrInvalidScalar)
	}
	if d.Sign() <= 0 {
		return fmt.Errorf("%w: must be positive", ErrInvalidScalar)
	}
	if d.Cmp(curveOrder) >= 0 {
		return fmt.Errorf("%w: must be less than the group order", ErrInvalidScalar)
	}
	return nil
}
