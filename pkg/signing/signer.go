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

// Package signing produces ECDSA secp256k1 signatures over text payloads.
//
// A payload is first encoded as an HTML-safe JSON string literal, hashed
// with legacy Keccak-256, and signed with an RFC 6979 deterministic nonce in
// canonical low-S form. The result is returned as lowercase hex of a DER
// SEQUENCE of two INTEGERs whose order is set by the signer's Layout.
package signing

import (
	"fmt"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/jeremyhahn/go-sessionkey/pkg/encoding"
	"github.com/jeremyhahn/go-sessionkey/pkg/sessionkey"
	"golang.org/x/crypto/sha3"
)

// Signer signs payloads with secp256k1 keys. A Signer holds no key
// material and is safe for concurrent use.
type Signer struct {
	layout Layout
}

// NewSigner returns a Signer using LayoutDuplicateR unless overridden.
func NewSigner(opts ...Option) *Signer {
	s := &Signer{layout: LayoutDuplicateR}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Layout returns the configured DER layout.
func (s *Signer) Layout() Layout {
	return s.layout
}

// Keccak256 returns the legacy (pre-FIPS 202) Keccak-256 hash of data.
func Keccak256(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}

// Digest returns the 32-byte hash that Sign signs for payload.
func Digest(payload string) []byte {
	return Keccak256([]byte(encoding.QuoteJSONString(payload)))
}

// SignatureComponents returns the raw (r, s) pair for payload.
func (s *Signer) SignatureComponents(privateScalar *big.Int, payload string) (*big.Int, *big.Int, error) {
	kp, err := sessionkey.DeriveFromScalar(privateScalar)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrSigningFailure, err)
	}

	signature := ecdsa.Sign(kp.ECPrivateKey(), Digest(payload))
	rScalar, sScalar := signature.R(), signature.S()
	rBytes, sBytes := rScalar.Bytes(), sScalar.Bytes()
	return new(big.Int).SetBytes(rBytes[:]), new(big.Int).SetBytes(sBytes[:]), nil
}

// Sign signs payload with privateScalar and returns the lowercase hex DER
// encoding in the configured layout.
func (s *Signer) Sign(privateScalar *big.Int, payload string) (string, error) {
	r, sigS, err := s.SignatureComponents(privateScalar, payload)
	if err != nil {
		return "", err
	}

	var der []byte
	switch s.layout {
	case LayoutDuplicateR:
		der, err = EncodeDER(r, r)
	case LayoutStandard:
		der, err = EncodeDER(r, sigS)
	default:
		return "", fmt.Errorf("%w: %w: %s", ErrSigningFailure, ErrInvalidLayout, s.layout)
	}
	if err != nil {
		return "", err
	}
	return encoding.ToHex(der), nil
}

// SignWithSession derives the key pair for sessionID and signs payload.
func (s *Signer) SignWithSession(sessionID, payload string) (string, error) {
	d, err := sessionkey.ParseSessionID(sessionID)
	if err != nil {
		return "", err
	}
	return s.Sign(d, payload)
}

// Verify reports whether sigHex is a valid LayoutStandard signature of
// payload by kp. Malformed input returns an error; a well-formed signature
// that does not verify returns false.
func Verify(kp *sessionkey.KeyPair, payload, sigHex string) (bool, error) {
	if kp == nil {
		return false, fmt.Errorf("%w: key pair is nil", ErrMalformedSignature)
	}

	r, sigS, err := ParseDER(sigHex)
	if err != nil {
		return false, err
	}

	var rScalar, sScalar secp256k1.ModNScalar
	if !setScalar(&rScalar, r) || !setScalar(&sScalar, sigS) {
		return false, nil
	}

	signature := ecdsa.NewSignature(&rScalar, &sScalar)
	return signature.Verify(Digest(payload), kp.ECPublicKey()), nil
}

// setScalar loads v into scalar, rejecting zero, negative and out of
// range values.
func setScalar(scalar *secp256k1.ModNScalar, v *big.Int) bool {
	if v.Sign() <= 0 || v.BitLen() > 256 {
		return false
	}
	var buf [32]byte
	v.FillBytes(buf[:])
	overflow := scalar.SetBytes(&buf)
	return overflow == 0 && !scalar.IsZero()
}
