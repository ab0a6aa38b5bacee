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
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/jeremyhahn/go-sessionkey/pkg/adapters/logger"
	"github.com/jeremyhahn/go-sessionkey/pkg/encoding"
	"github.com/jeremyhahn/go-sessionkey/pkg/health"
	"github.com/jeremyhahn/go-sessionkey/pkg/keystore"
	"github.com/jeremyhahn/go-sessionkey/pkg/metrics"
	"github.com/jeremyhahn/go-sessionkey/pkg/preferences"
	"github.com/jeremyhahn/go-sessionkey/pkg/sessionkey"
	"github.com/jeremyhahn/go-sessionkey/pkg/signing"
	"github.com/jeremyhahn/go-sessionkey/pkg/storage"
	"github.com/jeremyhahn/go-sessionkey/pkg/symmetric"
)

// Config wires a Keychain.
type Config struct {
	// Provider holds the AES key used for preference encryption. Required.
	Provider keystore.Provider

	// Storage persists preference values. Required.
	Storage storage.Backend

	// Alias names the provider key. Defaults to symmetric.DefaultAlias.
	Alias string

	// Namespace is the storage prefix for preferences. Defaults to
	// storage.PreferencesPrefix.
	Namespace string

	// Layout selects the DER layout of signatures.
	Layout signing.Layout

	// Mode selects how EncryptAndStore persists values.
	Mode preferences.Mode

	// Logger receives operation logs. Defaults to a no-op logger.
	Logger logger.Logger
}

// Keychain is the entry point for session key operations. It is safe for
// concurrent use.
type Keychain struct {
	provider keystore.Provider
	storage  storage.Backend
	codec    *symmetric.Codec
	prefs    *preferences.Store
	signer   *signing.Signer
	logger   logger.Logger
	label    string
	mu       sync.RWMutex
	closed   bool
}

// New returns a Keychain built from config.
func New(config *Config) (*Keychain, error) {
	if config == nil {
		return nil, errors.New("keychain: config cannot be nil")
	}
	if config.Provider == nil {
		return nil, errors.New("keychain: provider cannot be nil")
	}
	if config.Storage == nil {
		return nil, errors.New("keychain: storage cannot be nil")
	}

	alias := config.Alias
	if alias == "" {
		alias = symmetric.DefaultAlias
	}
	codec, err := symmetric.NewCodec(config.Provider, symmetric.WithAlias(alias))
	if err != nil {
		return nil, err
	}

	prefOpts := []preferences.Option{preferences.WithMode(config.Mode)}
	if config.Namespace != "" {
		prefOpts = append(prefOpts, preferences.WithNamespace(config.Namespace))
	}
	prefs, err := preferences.New(config.Storage, codec, prefOpts...)
	if err != nil {
		return nil, err
	}

	switch config.Layout {
	case signing.LayoutDuplicateR, signing.LayoutStandard:
	default:
		return nil, fmt.Errorf("%w: %d", signing.ErrInvalidLayout, config.Layout)
	}

	log := config.Logger
	if log == nil {
		log = logger.NewNoOp()
	}

	label := string(config.Provider.Type())
	kc := &Keychain{
		provider: config.Provider,
		storage:  config.Storage,
		codec:    codec,
		prefs:    prefs,
		signer:   signing.NewSigner(signing.WithLayout(config.Layout)),
		logger:   log.With(logger.String("provider", label), logger.String("alias", alias)),
		label:    label,
	}
	metrics.SetProviderHealth(label, true)
	return kc, nil
}

// Alias returns the provider key alias.
func (k *Keychain) Alias() string {
	return k.codec.Alias()
}

// Layout returns the signature layout.
func (k *Keychain) Layout() signing.Layout {
	return k.signer.Layout()
}

// Mode returns the preference persistence mode.
func (k *Keychain) Mode() preferences.Mode {
	return k.prefs.Mode()
}

// Provider returns the underlying key provider.
func (k *Keychain) Provider() keystore.Provider {
	return k.provider
}

// Check runs the provider and storage self-checks and updates the
// provider health gauge. The provider key is never created by a check.
func (k *Keychain) Check(ctx context.Context) ([]health.CheckResult, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.closed {
		return nil, ErrClosed
	}

	checker := health.NewChecker()
	checker.RegisterCheck("provider", health.ProviderCheck(k.provider, k.codec.Alias()))
	checker.RegisterCheck("storage", health.StorageCheck(k.storage))
	results := checker.Run(ctx)

	for _, r := range results {
		if r.Name == "provider:"+k.label {
			metrics.SetProviderHealth(k.label, r.Status != health.StatusUnhealthy)
		}
		if r.Status == health.StatusUnhealthy {
			k.logger.Warn("health check failed",
				logger.String("check", r.Name),
				logger.String("error", r.Error))
		}
	}
	return results, nil
}

// EncryptAndStore encrypts value under the provider key and persists it
// under key.
func (k *Keychain) EncryptAndStore(key, value string) error {
	return k.run(metrics.OpEncryptAndStore, key, func() error {
		return k.prefs.Save(key, value)
	})
}

// LoadAndDecrypt returns the value saved under key by EncryptAndStore.
// An absent key yields "".
func (k *Keychain) LoadAndDecrypt(key string) (string, error) {
	var value string
	err := k.run(metrics.OpLoadAndDecrypt, key, func() error {
		v, err := k.prefs.Load(key)
		value = v
		return err
	})
	return value, err
}

// Lookup is LoadAndDecrypt that also reports whether key was present.
func (k *Keychain) Lookup(key string) (string, bool, error) {
	var (
		value string
		found bool
	)
	err := k.run(metrics.OpLoadAndDecrypt, key, func() error {
		v, ok, err := k.prefs.Lookup(key)
		value, found = v, ok
		return err
	})
	return value, found, err
}

// DerivePublicKey returns the hex public key for sessionID.
func (k *Keychain) DerivePublicKey(sessionID string) (string, error) {
	var pub string
	err := k.run(metrics.OpDerivePublicKey, "", func() error {
		v, err := sessionkey.PublicKeyHex(sessionID)
		pub = v
		return err
	})
	return pub, err
}

// DerivePrivateKey returns the hex private scalar for sessionID.
func (k *Keychain) DerivePrivateKey(sessionID string) (string, error) {
	var priv string
	err := k.run(metrics.OpDerivePrivateKey, "", func() error {
		v, err := sessionkey.PrivateKeyHex(sessionID)
		priv = v
		return err
	})
	return priv, err
}

// Sign signs payload with privateScalar and returns the DER signature as
// lowercase hex.
func (k *Keychain) Sign(privateScalar *big.Int, payload string) (string, error) {
	var sig string
	err := k.run(metrics.OpSign, "", func() error {
		v, err := k.signer.Sign(privateScalar, payload)
		sig = v
		return err
	})
	return sig, err
}

// SignWithSession derives the key pair for sessionID and signs payload.
func (k *Keychain) SignWithSession(sessionID, payload string) (string, error) {
	var sig string
	err := k.run(metrics.OpSign, "", func() error {
		v, err := k.signer.SignWithSession(sessionID, payload)
		sig = v
		return err
	})
	return sig, err
}

// Put stores value under key without encryption.
func (k *Keychain) Put(key, value string) error {
	return k.run(metrics.OpPut, key, func() error {
		return k.prefs.Put(key, value)
	})
}

// Get returns the raw value stored under key, or "" if absent.
func (k *Keychain) Get(key string) (string, error) {
	var value string
	err := k.run(metrics.OpGet, key, func() error {
		v, err := k.prefs.Get(key)
		value = v
		return err
	})
	return value, err
}

// Keys lists the stored preference keys.
func (k *Keychain) Keys() ([]string, error) {
	var keys []string
	err := k.run(metrics.OpGet, "", func() error {
		v, err := k.prefs.Keys()
		keys = v
		return err
	})
	return keys, err
}

// Clear removes every stored preference. The provider key survives.
func (k *Keychain) Clear() error {
	return k.run(metrics.OpClear, "", func() error {
		return k.prefs.Clear()
	})
}

// Close releases the provider and the storage backend. Subsequent calls
// return ErrClosed.
func (k *Keychain) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return nil
	}
	k.closed = true
	metrics.SetProviderHealth(k.label, false)

	var errs []error
	if err := k.provider.Close(); err != nil && !errors.Is(err, storage.ErrClosed) {
		errs = append(errs, fmt.Errorf("keychain: close provider: %w", err))
	}
	if err := k.storage.Close(); err != nil && !errors.Is(err, storage.ErrClosed) {
		errs = append(errs, fmt.Errorf("keychain: close storage: %w", err))
	}
	return errors.Join(errs...)
}

// run executes fn under the read lock, then logs and records the outcome.
func (k *Keychain) run(operation, key string, fn func() error) error {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.closed {
		return ErrClosed
	}

	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	fields := []logger.Field{
		logger.String("operation", operation),
		logger.Float64("duration_ms", float64(elapsed.Microseconds())/1000),
	}
	if key != "" {
		fields = append(fields, logger.String("key", key))
	}

	if err != nil {
		metrics.RecordOperation(operation, k.label, metrics.StatusError, elapsed.Seconds())
		metrics.RecordError(operation, k.label, errorType(err))
		k.logger.Error("operation failed", append(fields, logger.Error(err))...)
		return err
	}
	metrics.RecordOperation(operation, k.label, metrics.StatusSuccess, elapsed.Seconds())
	k.logger.Debug("operation completed", fields...)
	return nil
}

// errorType classifies err for the error_type metric label.
func errorType(err error) string {
	switch {
	case errors.Is(err, sessionkey.ErrInvalidSessionID):
		return "invalid_session_id"
	case errors.Is(err, sessionkey.ErrInvalidScalar):
		return "invalid_scalar"
	case errors.Is(err, encoding.ErrMalformedHex):
		return "malformed_hex"
	case errors.Is(err, keystore.ErrKeyUnavailable):
		return "key_unavailable"
	case errors.Is(err, symmetric.ErrDecryption), errors.Is(err, symmetric.ErrMalformedBlob):
		return "decryption"
	case errors.Is(err, symmetric.ErrEncryption), errors.Is(err, keystore.ErrCipher):
		return "encryption"
	case errors.Is(err, signing.ErrSigningFailure):
		return "signing"
	case errors.Is(err, storage.ErrInvalidKey):
		return "invalid_key"
	case errors.Is(err, storage.ErrClosed), errors.Is(err, keystore.ErrProviderClosed):
		return "closed"
	default:
		return "internal"
	}
}
