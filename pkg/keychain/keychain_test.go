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
	"math/big"
	"sync"
	"testing"

	"github.com/jeremyhahn/go-sessionkey/pkg/adapters/logger"
	"github.com/jeremyhahn/go-sessionkey/pkg/health"
	"github.com/jeremyhahn/go-sessionkey/pkg/keystore/software"
	"github.com/jeremyhahn/go-sessionkey/pkg/metrics"
	"github.com/jeremyhahn/go-sessionkey/pkg/preferences"
	"github.com/jeremyhahn/go-sessionkey/pkg/sessionkey"
	"github.com/jeremyhahn/go-sessionkey/pkg/signing"
	"github.com/jeremyhahn/go-sessionkey/pkg/storage/memory"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const generatorHex = "79be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798" +
	"483ada7726a3c4655da4fbfc0e1108a8fd17b448a68554199c47d08ffb10d4b8"

// recordingLogger captures messages by level.
type recordingLogger struct {
	mu     sync.Mutex
	debugs []string
	errors []string
}

func (r *recordingLogger) Debug(msg string, _ ...logger.Field) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.debugs = append(r.debugs, msg)
}

func (r *recordingLogger) Info(string, ...logger.Field) {}
func (r *recordingLogger) Warn(string, ...logger.Field) {}

func (r *recordingLogger) Error(msg string, _ ...logger.Field) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, msg)
}

func (r *recordingLogger) With(...logger.Field) logger.Logger { return r }
func (r *recordingLogger) WithError(error) logger.Logger { return r }

func newTestConfig(t *testing.T) *Config {
	t.Helper()
	store := memory.New()
	provider, err := software.New(&software.Config{KeyStorage: store})
	require.NoError(t, err)
	return &Config{Provider: provider, Storage: store}
}

func newTestKeychain(t *testing.T, mutate ...func(*Config)) *Keychain {
	t.Helper()
	config := newTestConfig(t)
	for _, m := range mutate {
		m(config)
	}
	kc, err := New(config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kc.Close() })
	return kc
}

func TestNew_Validation(t *testing.T) {
	valid := newTestConfig(t)

	tests := []struct {
		name   string
		config *Config
	}{
		{name: "nil config", config: nil},
		{name: "nil provider", config: &Config{Storage: valid.Storage}},
		{name: "nil storage", config: &Config{Provider: valid.Provider}},
		{name: "bad alias", config: &Config{Provider: valid.Provider, Storage: valid.Storage, Alias: "a/b"}},
		{name: "bad mode", config: &Config{Provider: valid.Provider, Storage: valid.Storage, Mode: preferences.Mode(9)}},
		{name: "bad layout", config: &Config{Provider: valid.Provider, Storage: valid.Storage, Layout: signing.Layout(9)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kc, err := New(tt.config)
			assert.Error(t, err)
			assert.Nil(t, kc)
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	kc := newTestKeychain(t)
	assert.Equal(t, "Web3Auth", kc.Alias())
	assert.Equal(t, signing.LayoutDuplicateR, kc.Layout())
	assert.Equal(t, preferences.ModeEncrypted, kc.Mode())
	assert.NotNil(t, kc.Provider())
}

func TestEncryptAndStore_RoundTrip(t *testing.T) {
	for _, mode := range []preferences.Mode{preferences.ModeEncrypted, preferences.ModeLegacyPlaintext} {
		t.Run(mode.String(), func(t *testing.T) {
			kc := newTestKeychain(t, func(c *Config) { c.Mode = mode })

			require.NoError(t, kc.EncryptAndStore(preferences.KeySessionID, "hello"))
			got, err := kc.LoadAndDecrypt(preferences.KeySessionID)
			require.NoError(t, err)
			assert.Equal(t, "hello", got)

			raw, err := kc.Get(preferences.KeySessionID)
			require.NoError(t, err)
			if mode == preferences.ModeLegacyPlaintext {
				assert.Equal(t, "hello", raw)
			} else {
				assert.NotEqual(t, "hello", raw)
			}
		})
	}
}

func TestLoadAndDecrypt_Absent(t *testing.T) {
	kc := newTestKeychain(t)

	got, err := kc.LoadAndDecrypt("missing")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, found, err := kc.Lookup("missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, kc.EncryptAndStore("present", ""))
	got, found, err = kc.Lookup("present")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, got)
}

func TestPutGetClear(t *testing.T) {
	kc := newTestKeychain(t)

	require.NoError(t, kc.Put(preferences.KeyIV, "00ff"))
	require.NoError(t, kc.Put(preferences.KeyMAC, "abcd"))
	require.NoError(t, kc.EncryptAndStore(preferences.KeySessionID, "1"))

	got, err := kc.Get(preferences.KeyIV)
	require.NoError(t, err)
	assert.Equal(t, "00ff", got)

	keys, err := kc.Keys()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{preferences.KeyIV, preferences.KeyMAC, preferences.KeySessionID}, keys)

	require.NoError(t, kc.Clear())
	keys, err = kc.Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)

	// The provider key survives Clear.
	_, err = kc.Provider().Key(kc.Alias())
	assert.NoError(t, err)

	require.NoError(t, kc.EncryptAndStore(preferences.KeySessionID, "again"))
	got, err = kc.LoadAndDecrypt(preferences.KeySessionID)
	require.NoError(t, err)
	assert.Equal(t, "again", got)
}

func TestDeriveKeys(t *testing.T) {
	kc := newTestKeychain(t)

	pub, err := kc.DerivePublicKey("1")
	require.NoError(t, err)
	assert.Equal(t, generatorHex, pub)

	priv, err := kc.DerivePrivateKey("01")
	require.NoError(t, err)
	assert.Equal(t, "1", priv)

	_, err = kc.DerivePublicKey("zz")
	assert.ErrorIs(t, err, sessionkey.ErrInvalidSessionID)
	_, err = kc.DerivePrivateKey("")
	assert.ErrorIs(t, err, sessionkey.ErrInvalidSessionID)
}

func TestSign_Layouts(t *testing.T) {
	payload := `{"data":"ping"}`

	t.Run("duplicate_r", func(t *testing.T) {
		kc := newTestKeychain(t)
		sig, err := kc.SignWithSession("2a", payload)
		require.NoError(t, err)

		r, second, err := signing.ParseDER(sig)
		require.NoError(t, err)
		assert.Equal(t, 0, r.Cmp(second))
	})

	t.Run("standard", func(t *testing.T) {
		kc := newTestKeychain(t, func(c *Config) { c.Layout = signing.LayoutStandard })
		sig, err := kc.Sign(big.NewInt(42), payload)
		require.NoError(t, err)

		kp, err := sessionkey.Derive("2a")
		require.NoError(t, err)
		ok, err := signing.Verify(kp, payload, sig)
		require.NoError(t, err)
		assert.True(t, ok)

		viaSession, err := kc.SignWithSession("2A", payload)
		require.NoError(t, err)
		assert.Equal(t, sig, viaSession)
	})

	t.Run("invalid scalar", func(t *testing.T) {
		kc := newTestKeychain(t)
		_, err := kc.Sign(big.NewInt(0), payload)
		assert.Error(t, err)
		_, err = kc.SignWithSession("zz", payload)
		assert.ErrorIs(t, err, sessionkey.ErrInvalidSessionID)
	})
}

func TestOperations_LoggedAndRecorded(t *testing.T) {
	metrics.Enable()
	rec := &recordingLogger{}
	kc := newTestKeychain(t, func(c *Config) { c.Logger = rec })
	label := string(kc.Provider().Type())

	okBefore := testutil.ToFloat64(metrics.OperationsTotal.WithLabelValues(metrics.OpDerivePublicKey, label, metrics.StatusSuccess))
	errBefore := testutil.ToFloat64(metrics.ErrorsTotal.WithLabelValues(metrics.OpDerivePublicKey, label, "invalid_session_id"))

	_, err := kc.DerivePublicKey("1")
	require.NoError(t, err)
	_, err = kc.DerivePublicKey("zz")
	require.Error(t, err)

	assert.Equal(t, okBefore+1, testutil.ToFloat64(metrics.OperationsTotal.WithLabelValues(metrics.OpDerivePublicKey, label, metrics.StatusSuccess)))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(metrics.ErrorsTotal.WithLabelValues(metrics.OpDerivePublicKey, label, "invalid_session_id")))
	assert.Equal(t, []string{"operation completed"}, rec.debugs)
	assert.Equal(t, []string{"operation failed"}, rec.errors)
}

func TestClose(t *testing.T) {
	config := newTestConfig(t)
	kc, err := New(config)
	require.NoError(t, err)

	require.NoError(t, kc.Close())
	require.NoError(t, kc.Close())

	_, err = kc.DerivePublicKey("1")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, kc.EncryptAndStore("k", "v"), ErrClosed)
	assert.ErrorIs(t, kc.Clear(), ErrClosed)
}

func TestErrorType(t *testing.T) {
	assert.Equal(t, "closed", errorType(ErrClosed))
	assert.Equal(t, "internal", errorType(assert.AnError))
	assert.Equal(t, "invalid_session_id", errorType(sessionkey.ErrInvalidSessionID))
}

func TestCheck(t *testing.T) {
	kc := newTestKeychain(t)

	results, err := kc.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, health.StatusDegraded, health.AggregateStatus(results))

	require.NoError(t, kc.EncryptAndStore(preferences.KeySessionID, "hello"))
	results, err = kc.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, health.StatusHealthy, health.AggregateStatus(results))

	keys, err := kc.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{preferences.KeySessionID}, keys)

	require.NoError(t, kc.Close())
	_, err = kc.Check(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}
