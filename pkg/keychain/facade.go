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

import (
	"math/big"
	"sync"
)

// Process-wide instance
var (
	instance *Keychain
	initOnce sync.Once
	initMu   sync.RWMutex
)

// Initialize builds the process-wide Keychain used by the package-level
// functions. It should be called once at application startup; later calls
// are no-ops until Reset.
func Initialize(config *Config) error {
	var initErr error

	initMu.Lock()
	defer initMu.Unlock()

	initOnce.Do(func() {
		kc, err := New(config)
		if err != nil {
			initErr = err
			return
		}
		instance = kc
	})
	if initErr != nil {
		// Allow a retry with a corrected config.
		initOnce = sync.Once{}
	}
	return initErr
}

// IsInitialized reports whether Initialize has succeeded.
func IsInitialized() bool {
	initMu.RLock()
	defer initMu.RUnlock()
	return instance != nil
}

// Reset closes and discards the process-wide Keychain (useful for testing).
func Reset() error {
	initMu.Lock()
	defer initMu.Unlock()

	var err error
	if instance != nil {
		err = instance.Close()
	}
	instance = nil
	initOnce = sync.Once{}
	return err
}

// Default returns the process-wide Keychain.
func Default() (*Keychain, error) {
	initMu.RLock()
	defer initMu.RUnlock()

	if instance == nil {
		return nil, ErrNotInitialized
	}
	return instance, nil
}

// EncryptAndStore calls EncryptAndStore on the process-wide Keychain.
func EncryptAndStore(key, value string) error {
	kc, err := Default()
	if err != nil {
		return err
	}
	return kc.EncryptAndStore(key, value)
}

// LoadAndDecrypt calls LoadAndDecrypt on the process-wide Keychain.
func LoadAndDecrypt(key string) (string, error) {
	kc, err := Default()
	if err != nil {
		return "", err
	}
	return kc.LoadAndDecrypt(key)
}

// DerivePublicKey calls DerivePublicKey on the process-wide Keychain.
func DerivePublicKey(sessionID string) (string, error) {
	kc, err := Default()
	if err != nil {
		return "", err
	}
	return kc.DerivePublicKey(sessionID)
}

// DerivePrivateKey calls DerivePrivateKey on the process-wide Keychain.
func DerivePrivateKey(sessionID string) (string, error) {
	kc, err := Default()
	if err != nil {
		return "", err
	}
	return kc.DerivePrivateKey(sessionID)
}

// Sign calls Sign on the process-wide Keychain.
func Sign(privateScalar *big.Int, payload string) (string, error) {
	kc, err := Default()
	if err != nil {
		return "", err
	}
	return kc.Sign(privateScalar, payload)
}

// SignWithSession calls SignWithSession on the process-wide Keychain.
func SignWithSession(sessionID, payload string) (string, error) {
	kc, err := Default()
	if err != nil {
		return "", err
	}
	return kc.SignWithSession(sessionID, payload)
}

// Put calls Put on the process-wide Keychain.
func Put(key, value string) error {
	kc, err := Default()
	if err != nil {
		return err
	}
	return kc.Put(key, value)
}

// Get calls Get on the process-wide Keychain.
func Get(key string) (string, error) {
	kc, err := Default()
	if err != nil {
		return "", err
	}
	return kc.Get(key)
}

// Clear calls Clear on the process-wide Keychain.
func Clear() error {
	kc, err := Default()
	if err != nil {
		return err
	}
	return kc.Clear()
}
