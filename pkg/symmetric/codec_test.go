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

package symmetric

import (
	"testing"

	"github.com/jeremyhahn/go-sessionkey/pkg/keystore"
	"github.com/jeremyhahn/go-sessionkey/pkg/keystore/software"
	"github.com/jeremyhahn/go-sessionkey/pkg/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T, opts ...Option) *Codec {
	t.Helper()
	provider, err := software.New(&software.Config{KeyStorage: memory.New()})
	require.NoError(t, err)
	codec, err := NewCodec(provider, opts...)
	require.NoError(t, err)
	return codec
}

func TestNewCodec(t *testing.T) {
	_, err := NewCodec(nil)
	assert.Error(t, err)

	codec := newTestCodec(t)
	assert.Equal(t, DefaultAlias, codec.Alias())
	assert.NotNil(t, codec.Provider())

	codec = newTestCodec(t, WithAlias("custom"))
	assert.Equal(t, "custom", codec.Alias())

	provider, err := software.New(&software.Config{KeyStorage: memory.New()})
	require.NoError(t, err)
	_, err = NewCodec(provider, WithAlias(""))
	assert.ErrorIs(t, err, keystore.ErrInvalidAlias)
}

func TestEncryptDecrypt(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{name: "hello", value: "hello"},
		{name: "empty", value: ""},
		{name: "session id", value: "1a2b3c4d5e6f"},
		{name: "multi block", value: "the quick brown fox jumps over the lazy dog"},
		{name: "unicode", value: "日本語 ✓"},
	}

	codec := newTestCodec(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob, err := codec.Encrypt(tt.value)
			require.NoError(t, err)
			assert.Equal(t, AlgorithmAESCBCPKCS7, blob.Algorithm)
			assert.Len(t, blob.IV, 16)
			assert.NotEmpty(t, blob.Ciphertext)
			assert.Zero(t, len(blob.Ciphertext)%16)

			got, err := codec.Decrypt(blob)
			require.NoError(t, err)
			assert.Equal(t, tt.value, got)
		})
	}
}

func TestEncrypt_FreshIV(t *testing.T) {
	codec := newTestCodec(t)

	a, err := codec.Encrypt("hello")
	require.NoError(t, err)
	b, err := codec.Encrypt("hello")
	require.NoError(t, err)

	assert.NotEqual(t, a.IV, b.IV)
	assert.NotEqual(t, a.Ciphertext, b.Ciphertext)
}

func TestDecrypt_UnknownAlias(t *testing.T) {
	provider, err := software.New(&software.Config{KeyStorage: memory.New()})
	require.NoError(t, err)

	writer, err := NewCodec(provider, WithAlias("writer"))
	require.NoError(t, err)
	reader, err := NewCodec(provider, WithAlias("reader"))
	require.NoError(t, err)

	blob, err := writer.Encrypt("hello")
	require.NoError(t, err)

	_, err = reader.Decrypt(blob)
	assert.ErrorIs(t, err, ErrDecryption)
	assert.ErrorIs(t, err, keystore.ErrKeyUnavailable)

	_, err = provider.Key("reader")
	assert.ErrorIs(t, err, keystore.ErrKeyNotFound, "decrypt must not create keys")
}

func TestDecrypt_Failures(t *testing.T) {
	codec := newTestCodec(t)
	blob, err := codec.Encrypt("hello")
	require.NoError(t, err)

	tests := []struct {
		name string
		blob *EncryptedBlob
	}{
		{name: "nil blob", blob: nil},
		{name: "short IV", blob: &EncryptedBlob{IV: blob.IV[:8], Ciphertext: blob.Ciphertext}},
		{name: "empty ciphertext", blob: &EncryptedBlob{IV: blob.IV}},
		{name: "unaligned ciphertext", blob: &EncryptedBlob{IV: blob.IV, Ciphertext: blob.Ciphertext[:10]}},
		{name: "foreign algorithm", blob: &EncryptedBlob{Algorithm: "AES/GCM/NoPadding", IV: blob.IV, Ciphertext: blob.Ciphertext}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Decrypt(tt.blob)
			assert.ErrorIs(t, err, ErrDecryption)
			assert.ErrorIs(t, err, keystore.ErrCipher)
		})
	}
}

func TestDecrypt_MismatchedIV(t *testing.T) {
	codec := newTestCodec(t)
	plaintext := "0123456789abcdef0123456789abcdef0123456789abcdef"

	a, err := codec.Encrypt(plaintext)
	require.NoError(t, err)
	b, err := codec.Encrypt(plaintext)
	require.NoError(t, err)
	require.NotEqual(t, a.IV, b.IV)

	got, err := codec.Decrypt(&EncryptedBlob{IV: b.IV, Ciphertext: a.Ciphertext})
	if err != nil {
		assert.ErrorIs(t, err, ErrDecryption)
		return
	}
	assert.NotEqual(t, plaintext, got)
}

func TestDecrypt_InvalidUTF8(t *testing.T) {
	codec := newTestCodec(t)
	provider := codec.Provider()

	handle, err := provider.EnsureKey(codec.Alias())
	require.NoError(t, err)
	iv, ct, err := provider.Encrypt(handle, []byte{0xff, 0xfe, 0xfd})
	require.NoError(t, err)

	_, err = codec.Decrypt(&EncryptedBlob{IV: iv, Ciphertext: ct})
	assert.ErrorIs(t, err, ErrDecryption)
	assert.ErrorIs(t, err, keystore.ErrCipher)
}

func TestEncrypt_ProviderClosed(t *testing.T) {
	codec := newTestCodec(t)
	require.NoError(t, codec.Provider().Close())

	_, err := codec.Encrypt("hello")
	assert.ErrorIs(t, err, ErrEncryption)
	assert.ErrorIs(t, err, keystore.ErrProviderClosed)
}

func TestEncryptString(t *testing.T) {
	codec := newTestCodec(t)

	encoded, err := codec.EncryptString("hello")
	require.NoError(t, err)
	assert.NotContains(t, encoded, "hello")

	got, err := codec.DecryptString(encoded)
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	_, err = codec.DecryptString("!!not base64!!")
	assert.ErrorIs(t, err, ErrDecryption)
	assert.ErrorIs(t, err, keystore.ErrCipher)
	assert.ErrorIs(t, err, ErrMalformedBlob)
}
