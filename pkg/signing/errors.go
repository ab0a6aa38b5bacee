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

package signing

import "errors"

var (
	// ErrSigningFailure indicates the signing operation failed, most often
	// because the private scalar is outside [1, n-1].
	ErrSigningFailure = errors.New("signing: operation failed")

	// ErrMalformedSignature indicates a signature that is not lowercase or
	// uppercase hex of a DER SEQUENCE of exactly two INTEGERs.
	ErrMalformedSignature = errors.New("signing: malformed signature")

	// ErrInvalidLayout indicates an unknown signature layout name.
	ErrInvalidLayout = errors.New("signing: invalid signature layout")
)
