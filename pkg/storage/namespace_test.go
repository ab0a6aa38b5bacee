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

package storage_test

import (
	"testing"

	"github.com/jeremyhahn/go-sessionkey/pkg/storage"
	"github.com/jeremyhahn/go-sessionkey/pkg/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyPaths(t *testing.T) {
	assert.Equal(t, "keys/Web3Auth.key", storage.KeyPath("Web3Auth"))
	assert.Equal(t, "keys/Web3Auth.meta", storage.KeyMetaPath("Web3Auth"))
}

func TestNewNamespace_Invalid(t *testing.T) {
	_, err := storage.NewNamespace(nil, "prefs")
	assert.ErrorIs(t, err, storage.ErrInvalidKey)

	_, err = storage.NewNamespace(memory.New(), "")
	assert.ErrorIs(t, err, storage.ErrInvalidKey)
}

func TestNamespace(t *testing.T) {
	parent := memory.New()
	ns, err := storage.NewNamespace(parent, "prefs")
	require.NoError(t, err)
	assert.Equal(t, "prefs/", ns.Prefix())

	require.NoError(t, ns.Put("sessionId", []byte("abc"), nil))

	raw, err := parent.Get("prefs/sessionId")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), raw)

	got, err := ns.Get("sessionId")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)

	keys, err := ns.List("")
	require.NoError(t, err)
	assert.Equal(t, []string{"sessionId"}, keys)

	exists, err := ns.Exists("sessionId")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = ns.Get("")
	assert.ErrorIs(t, err, storage.ErrInvalidKey)

	require.NoError(t, ns.Close())
	_, err = parent.Get("prefs/sessionId")
	assert.NoError(t, err, "closing a namespace must not close the parent")
}

func TestClear_Scoped(t *testing.T) {
	parent := memory.New()
	require.NoError(t, parent.Put("prefs/a", []byte("1"), nil))
	require.NoError(t, parent.Put("keys/Web3Auth.key", []byte("k"), nil))

	ns, err := storage.NewNamespace(parent, "prefs")
	require.NoError(t, err)
	require.NoError(t, storage.Clear(ns, ""))

	keys, err := parent.List("")
	require.NoError(t, err)
	assert.Equal(t, []string{"keys/Web3Auth.key"}, keys)
}
