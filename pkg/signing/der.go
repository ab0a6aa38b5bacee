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

package signing

import (
	"fmt"
	"math/big"

	"github.com/jeremyhahn/go-sessionkey/pkg/encoding"
	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// EncodeDER returns the DER encoding of SEQUENCE { a, b }.
func EncodeDER(a, b *big.Int) ([]byte, error) {
	var builder cryptobyte.Builder
	builder.AddASN1(cbasn1.SEQUENCE, func(seq *cryptobyte.Builder) {
		seq.AddASN1BigInt(a)
		seq.AddASN1BigInt(b)
	})
	der, err := builder.Bytes()
	if err != nil {
		return nil, fmt.Errorf("%w: DER encoding: %v", ErrSigningFailure, err)
	}
	return der, nil
}

// ParseDER decodes a hex signature into the two integers of its DER
// SEQUENCE. It accepts either layout.
func ParseDER(sigHex string) (first, second *big.Int, err error) {
	der, err := encoding.FromHex(sigHex)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrMalformedSignature, err)
	}

	input := cryptobyte.String(der)
	var seq cryptobyte.String
	first, second = new(big.Int), new(big.Int)
	if !input.ReadASN1(&seq, cbasn1.SEQUENCE) || !input.Empty() ||
		!seq.ReadASN1Integer(first) || !seq.ReadASN1Integer(second) || !seq.Empty() {
		return nil, nil, fmt.Errorf("%w: not a DER SEQUENCE of two INTEGERs", ErrMalformedSignature)
	}
	return first, second, nil
}
