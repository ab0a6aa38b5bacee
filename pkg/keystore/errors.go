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

import "errors"

var (
	// ErrKeyUnavailable is returned when the provider cannot supply the
	// requested key, either because it does not exist or because the
	// provider itself is unreachable.
	ErrKeyUnavailable = errors.New("keystore: key unavailable")

	// ErrKeyNotFound is returned alongside ErrKeyUnavailable when no key
	// exists under the requested alias.
	ErrKeyNotFound = errors.New("keystore: key not found")

	// ErrCipher is returned when an encrypt or decrypt primitive fails:
	// wrong IV length, malformed ciphertext, or a padding check failure.
	ErrCipher = errors.New("keystore: cipher failure")

	// ErrInvalidAlias is returned for empty aliases or aliases containing
	// path separators.
	ErrInvalidAlias = errors.New("keystore: invalid alias")

	// ErrInvalidPassword is returned when password-protected key material
	// cannot be opened.
	ErrInvalidPassword = errors.New("keystore: invalid password")

	// ErrProviderClosed is returned by any operation after Close.
	ErrProviderClosed = errors.New("keystore: provider closed")
)
