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

package keyring

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/jeremyhahn/go-sessionkey/pkg/keystore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T) (*Provider, keyring.Keyring) {
	t.Helper()
	ring := keyring.NewArrayKeyring(nil)
	p, err := NewWithKeyring(ring, nil)
	require.NoError(t, err)
	return p, ring
}

func TestNewWithKeyring_Nil(t *testing.T) {
	_, err := NewWithKeyring(nil, nil)
	assert.Error(t, err)
}

func TestNew_FileBackend(t *testing.T) {
	p, err := New(&Config{
		ServiceName:  "go-sessionkey-test",
		Backends:     []string{string(keyring.FileBackend)},
		FileDir:      t.TempDir(),
		FilePassword: "test-password",
	})
	require.NoError(t, err)
	defer p.Close()

	handle, err := p.EnsureKey("Web3Auth")
	require.NoError(t, err)

	iv, ct, err := p.Encrypt(handle, []byte("hello"))
	require.NoError(t, err)
	pt, err := p.Decrypt(handle, iv, ct)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(pt))
}

func TestEnsureKey(t *testing.T) {
	p, ring := newTestProvider(t)
	assert.Equal(t, keystore.ProviderKeyring, p.Type())

	first, err := p.EnsureKey("Web3Auth")
	require.NoError(t, err)
	second, err := p.EnsureKey("Web3Auth")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	keys, err := ring.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"Web3Auth"}, keys)
}

func TestKey_NotFound(t *testing.T) {
	p, _ := newTestProvider(t)

	_, err := p.Key("Web3Auth")
	assert.ErrorIs(t, err, keystore.ErrKeyUnavailable)
	assert.ErrorIs(t, err, keystore.ErrKeyNotFound)
}

func TestEncryptDecrypt(t *testing.T) {
	p, _ := newTestProvider(t)
	handle, err := p.EnsureKey("Web3Auth")
	require.NoError(t, err)

	iv, ct, err := p.Encrypt(handle, []byte("hello"))
	require.NoError(t, err)

	pt, err := p.Decrypt(handle, iv, ct)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(pt))

	_, err = p.Decrypt(handle, []byte("short"), ct)
	assert.ErrorIs(t, err, keystore.ErrCipher)

	softwareHandle := &keystore.KeyHandle{Alias: "Web3Auth", Provider: keystore.ProviderSoftware}
	_, err = p.Decrypt(softwareHandle, iv, ct)
	assert.ErrorIs(t, err, keystore.ErrKeyUnavailable)
}

func TestCorruptItem(t *testing.T) {
	p, ring := newTestProvider(t)
	require.NoError(t, ring.Set(keyring.Item{Key: "Web3Auth", Data: []byte("not json")}))

	_, err := p.Key("Web3Auth")
	assert.ErrorIs(t, err, keystore.ErrKeyUnavailable)
	assert.NotErrorIs(t, err, keystore.ErrKeyNotFound)

	_, err = p.EnsureKey("Web3Auth")
	assert.ErrorIs(t, err, keystore.ErrKeyUnavailable)
}

func TestClose(t *testing.T) {
	p, _ := newTestProvider(t)
	require.NoError(t, p.Close())

	_, err := p.EnsureKey("Web3Auth")
	assert.ErrorIs(t, err, keystore.ErrProviderClosed)
}
