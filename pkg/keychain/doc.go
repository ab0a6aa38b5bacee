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

// Package keychain exposes the public session key operations: encrypting
// and persisting session values, deriving secp256k1 key material from a
// session identifier, and signing payloads.
//
// # Overview
//
// A Keychain wires together four components:
//
//   - a keystore.Provider holding the non-exportable AES key
//   - a symmetric.Codec encrypting values under the provider alias
//   - a preferences.Store persisting values in a storage.Backend
//   - a signing.Signer producing DER-encoded ECDSA signatures
//
// Every operation is logged through the configured logger.Logger and
// recorded in Prometheus under the "sessionkey" namespace.
//
// # Basic Usage
//
//	store := memory.New()
//	provider, _ := software.New(&software.Config{KeyStorage: store})
//	kc, err := keychain.New(&keychain.Config{
//	    Provider: provider,
//	    Storage:  store,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer kc.Close()
//
//	_ = kc.EncryptAndStore(preferences.KeySessionID, sessionID)
//	pub, _ := kc.DerivePublicKey(sessionID)
//	sig, _ := kc.SignWithSession(sessionID, payload)
//
// # Process-wide Instance
//
// Applications that want a single shared instance call Initialize once at
// startup and use the package-level functions, which delegate to it.
package keychain
