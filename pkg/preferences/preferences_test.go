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

package preferences

import (
	"testing"

	"github.com/jeremyhahn/go-sessionkey/pkg/keystore"
	"github.com/jeremyhahn/go-sessionkey/pkg/keystore/software"
	"github.com/jeremyhahn/go-sessionkey/pkg/storage"
	"github.com/jeremyhahn/go-sessionkey/pkg/storage/memory"
	"github.com/jeremyhahn/go-sessionkey/pkg/symmetric"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store    *Store
	backend  *memory.Storage
	provider *software.Provider
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	backend := memory.New()
	provider, err := software.New(&software.Config{KeyStorage: memory.New()})
	require.NoError(t, err)
	codec, err := symmetric.NewCodec(provider)
	require.NoError(t, err)
	store, err := New(backend, codec, opts...)
	require.NoError(t, err)
	return &fixture{store: store, backend: backend, provider: provider}
}

func TestNew_Invalid(t *testing.T) {
	provider, err := software.New(&software.Config{KeyStorage: memory.New()})
	require.NoError(t, err)
	codec, err := symmetric.NewCodec(provider)
	require.NoError(t, err)

	_, err = New(nil, codec)
	assert.Error(t, err)
	_, err = New(memory.New(), nil)
	assert.Error(t, err)
	_, err = New(memory.New(), codec, WithMode(Mode(7)))
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{ModeEncrypted, ModeLegacyPlaintext} {
		got, err := ParseMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	got, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeEncrypted, got)

	_, err = ParseMode("plaintext")
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestSaveLoad(t *testing.T) {
	for _, mode := range []Mode{ModeEncrypted, ModeLegacyPlaintext} {
		t.Run(mode.String(), func(t *testing.T) {
			f := newFixture(t, WithMode(mode))
			assert.Equal(t, mode, f.store.Mode())

			require.NoError(t, f.store.Save(KeySessionID, "hello"))

			got, err := f.store.Load(KeySessionID)
			require.NoError(t, err)
			assert.Equal(t, "hello", got)

			value, ok, err := f.store.Lookup(KeySessionID)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "hello", value)
		})
	}
}

func TestSave_PersistedForm(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Save(KeySessionID, "hello"))

	raw, err := f.backend.Get(storage.PreferencesPrefix + KeySessionID)
	require.NoError(t, err)
	assert.NotEqual(t, "hello", string(raw))

	blob, err := symmetric.DecodeBlob(string(raw))
	require.NoError(t, err)
	assert.Len(t, blob.IV, 16)

	legacy := newFixture(t, WithMode(ModeLegacyPlaintext))
	require.NoError(t, legacy.store.Save(KeySessionID, "hello"))
	raw, err = legacy.backend.Get(storage.PreferencesPrefix + KeySessionID)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(raw))
}

func TestSave_CreatesProviderKey(t *testing.T) {
	f := newFixture(t)

	_, err := f.provider.Key(symmetric.DefaultAlias)
	assert.ErrorIs(t, err, keystore.ErrKeyNotFound)

	require.NoError(t, f.store.Save(KeyIV, "abc"))

	_, err = f.provider.Key(symmetric.DefaultAlias)
	assert.NoError(t, err)
}

func TestLoad_Absent(t *testing.T) {
	for _, mode := range []Mode{ModeEncrypted, ModeLegacyPlaintext} {
		t.Run(mode.String(), func(t *testing.T) {
			f := newFixture(t, WithMode(mode))
			require.NoError(t, f.store.Save(KeySessionID, "hello"))

			got, err := f.store.Load(KeyMAC)
			require.NoError(t, err)
			assert.Equal(t, "", got)

			_, ok, err := f.store.Lookup(KeyMAC)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestLoad_LegacyWithoutProviderKey(t *testing.T) {
	f := newFixture(t, WithMode(ModeLegacyPlaintext))
	require.NoError(t, f.store.Put(KeySessionID, "hello"))

	for _, key := range []string{KeySessionID, KeyMAC} {
		_, err := f.store.Load(key)
		assert.ErrorIs(t, err, symmetric.ErrDecryption)
		assert.ErrorIs(t, err, keystore.ErrKeyNotFound)
	}

	_, err := f.provider.Key(symmetric.DefaultAlias)
	assert.ErrorIs(t, err, keystore.ErrKeyNotFound, "load must not create the provider key")
}

func TestLoad_TamperedValue(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Save(KeySessionID, "hello"))
	require.NoError(t, f.store.Put(KeySessionID, "not a blob"))

	_, err := f.store.Load(KeySessionID)
	assert.ErrorIs(t, err, symmetric.ErrDecryption)
}

func TestProviderUnavailable(t *testing.T) {
	for _, mode := range []Mode{ModeEncrypted, ModeLegacyPlaintext} {
		t.Run(mode.String(), func(t *testing.T) {
			f := newFixture(t, WithMode(mode))
			require.NoError(t, f.store.Save(KeySessionID, "hello"))
			require.NoError(t, f.provider.Close())

			assert.ErrorIs(t, f.store.Save(KeySessionID, "again"), keystore.ErrProviderClosed)
			_, err := f.store.Load(KeySessionID)
			assert.ErrorIs(t, err, keystore.ErrProviderClosed)
		})
	}
}

func TestPutGet(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.store.Put(KeyEphemPublicKey, "04abcdef"))
	got, err := f.store.Get(KeyEphemPublicKey)
	require.NoError(t, err)
	assert.Equal(t, "04abcdef", got)

	got, err = f.store.Get("missing")
	require.NoError(t, err)
	assert.Equal(t, "", got)

	assert.ErrorIs(t, f.store.Put("", "x"), storage.ErrInvalidKey)
	_, err = f.store.Get("")
	assert.ErrorIs(t, err, storage.ErrInvalidKey)
}

func TestDeleteAndKeys(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Put(KeyMAC, "m"))
	require.NoError(t, f.store.Put(KeyIV, "i"))

	keys, err := f.store.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{KeyIV, KeyMAC}, keys)

	require.NoError(t, f.store.Delete(KeyMAC))
	require.NoError(t, f.store.Delete(KeyMAC))

	keys, err = f.store.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{KeyIV}, keys)
}

func TestClear(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Save(KeySessionID, "hello"))
	require.NoError(t, f.store.Put(KeyMAC, "m"))

	require.NoError(t, f.store.Clear())

	got, err := f.store.Load(KeySessionID)
	require.NoError(t, err)
	assert.Equal(t, "", got)

	keys, err := f.store.Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)

	_, err = f.provider.Key(symmetric.DefaultAlias)
	assert.NoError(t, err, "clearing preferences must keep provider keys")
}
