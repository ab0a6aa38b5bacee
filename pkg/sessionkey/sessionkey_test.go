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

package sessionkey

import (
	"encoding/hex"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	gx = "79be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"
	gy = "483ada7726a3c4655da4fbfc0e1108a8fd17b448a68554199c47d08ffb10d4b8"

	twoGx = "c6047f9441ed7d6d3045406e95c07cd85c778e4b8cef3ca7abac09b95c709ee5"
	twoGy = "1ae168fea63dc339a3c58419466ceaeef7f632653266d0e1236431a950cfe52a"

	orderHex = "fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141"
)

func TestDerive_Generator(t *testing.T) {
	kp, err := Derive("1")
	require.NoError(t, err)

	assert.Equal(t, "1", kp.PrivateKeyHex())
	assert.Equal(t, gx+gy, kp.PublicKeyHex())
	assert.Equal(t, "04"+gx+gy, hex.EncodeToString(kp.SerializeUncompressed()))
	assert.Equal(t, 0, kp.PrivateKey().Cmp(big.NewInt(1)))

	priv := kp.PrivateKeyBytes()
	assert.Len(t, priv, 32)
	assert.Equal(t, byte(1), priv[31])
}

func TestDerive_KnownVectors(t *testing.T) {
	tests := []struct {
		name      string
		sessionID string
		wantPriv  string
		wantPub   string
	}{
		{name: "one", sessionID: "1", wantPriv: "1", wantPub: gx + gy},
		{name: "two", sessionID: "2", wantPriv: "2", wantPub: twoGx + twoGy},
		{name: "leading zeros", sessionID: "0002", wantPriv: "2", wantPub: twoGx + twoGy},
		{name: "upper case", sessionID: "0A", wantPriv: "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			priv, err := PrivateKeyHex(tt.sessionID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPriv, priv)

			pub, err := PublicKeyHex(tt.sessionID)
			require.NoError(t, err)
			if tt.wantPub != "" {
				assert.Equal(t, tt.wantPub, pub)
			}
		})
	}
}

func TestDerive_Deterministic(t *testing.T) {
	id := "5e9f1c2b7d4a3e6f8091a2b3c4d5e6f708192a3b4c5d6e7f8091a2b3c4d5e6f7"

	a, err := Derive(id)
	require.NoError(t, err)
	b, err := Derive(strings.ToUpper(id))
	require.NoError(t, err)

	assert.Equal(t, a.PublicKeyHex(), b.PublicKeyHex())
	assert.Equal(t, a.PrivateKeyHex(), b.PrivateKeyHex())
	assert.Equal(t, id, a.PrivateKeyHex())
}

func TestPublicKeyHex_StripsLeadingZeros(t *testing.T) {
	for _, id := range []string{"3", "7", "1f", "deadbeef"} {
		kp, err := Derive(id)
		require.NoError(t, err)

		raw := kp.PublicKeyBytes()
		require.Len(t, raw, 64)
		assert.Equal(t, strings.TrimLeft(hex.EncodeToString(raw), "0"), kp.PublicKeyHex())
	}
}

func TestParseSessionID_Invalid(t *testing.T) {
	orderMinusOne := new(big.Int).Sub(CurveOrder(), big.NewInt(1)).Text(16)

	tests := []struct {
		name      string
		sessionID string
		wantErr   bool
	}{
		{name: "non hex", sessionID: "zz", wantErr: true},
		{name: "empty", sessionID: "", wantErr: true},
		{name: "0x prefix", sessionID: "0x1", wantErr: true},
		{name: "negative", sessionID: "-1", wantErr: true},
		{name: "plus sign", sessionID: "+1", wantErr: true},
		{name: "whitespace", sessionID: " 1", wantErr: true},
		{name: "zero", sessionID: "0", wantErr: true},
		{name: "all zeros", sessionID: "0000", wantErr: true},
		{name: "group order", sessionID: orderHex, wantErr: true},
		{name: "above order", sessionID: "1" + orderHex, wantErr: true},
		{name: "order minus one", sessionID: orderMinusOne, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSessionID(tt.sessionID)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSessionID)
				_, err = Derive(tt.sessionID)
				assert.ErrorIs(t, err, ErrInvalidSessionID)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestDeriveFromScalar_Invalid(t *testing.T) {
	for _, d := range []*big.Int{nil, big.NewInt(0), big.NewInt(-5), CurveOrder()} {
		_, err := DeriveFromScalar(d)
		assert.ErrorIs(t, err, ErrInvalidScalar)
	}
}

func TestCurveOrder(t *testing.T) {
	assert.Equal(t, orderHex, CurveOrder().Text(16))

	n := CurveOrder()
	n.SetInt64(0)
	assert.Equal(t, orderHex, CurveOrder().Text(16), "CurveOrder must return a copy")
}
