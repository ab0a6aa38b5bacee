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

package keychain

import "errors"

var (
	// ErrNotInitialized is returned by package-level functions before
	// Initialize has been called.
	ErrNotInitialized = errors.New("keychain: not initialized")

	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("keychain: closed")
)
