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

package symmetric

import "errors"

var (
	// ErrEncryption is returned when a value cannot be encrypted, typically
	// because the key provider is unavailable.
	ErrEncryption = errors.New("symmetric: encryption failed")

	// ErrDecryption is returned for every decrypt failure: unknown alias,
	// wrong IV length, malformed ciphertext, padding failure, or recovered
	// bytes that are not valid UTF-8. The underlying keystore error is
	// joined so errors.Is also matches keystore.ErrCipher or
	// keystore.ErrKeyUnavailable.
	ErrDecryption = errors.New("symmetric: decryption failed")

	// ErrMalformedBlob is returned when a serialized blob cannot be decoded.
	ErrMalformedBlob = errors.New("symmetric: malformed encrypted blob")
)
