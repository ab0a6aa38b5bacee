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

// Package encoding provides the text encodings shared by the signer and the
// symmetric codec: lowercase hex for keys and signatures, and the JSON string
// literal form a payload takes before it is hashed.
package encoding

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// ToHex renders each byte as two hex digits, most significant nibble first,
// in input order. The result is always lowercase with no prefix or separators.
func ToHex(b []byte) string {
	// Uppercase-then-lowercase rendering is identical to lowercase encoding.
	return hex.EncodeToString(b)
}

// FromHex decodes a hex string of either case.
// Returns ErrMalformedHex on odd length or non-hex characters.
func FromHex(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("%w: odd length %d", ErrMalformedHex, len(s))
	}
	for i := 0; i < len(s); i++ {
		if !isHexDigit(s[i]) {
			return nil, fmt.Errorf("%w: invalid character %q at offset %d", ErrMalformedHex, s[i], i)
		}
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHex, err)
	}
	return b, nil
}

// IsHex reports whether s is a non-empty string of hex digits. Length parity
// is not checked; big-integer renderings may have an odd number of digits.
func IsHex(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isHexDigit(s[i]) {
			return false
		}
	}
	return true
}

// NormalizeHex lowercases a hex string.
func NormalizeHex(s string) string {
	return strings.ToLower(s)
}

func isHexDigit(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
