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

package encoding

import (
	"strings"
)

const lowerHex = "0123456789abcdef"

// QuoteJSONString encodes s as an HTML-safe JSON string literal, including
// the surrounding quotes.
//
// The escaping matches what existing verifiers hash, so it must not be
// swapped for encoding/json:
//   - '"' and '\' are backslash-escaped
//   - \b \t \n \f \r use their short escapes
//   - other control characters below 0x20 become \u00xx
//   - '<' '>' '&' '=' '\'' become \u003c \u003e \u0026 \u003d \u0027
//   - U+2028 and U+2029 become \u2028 and \u2029
//
// Invalid UTF-8 is replaced with U+FFFD.
func QuoteJSONString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range strings.ToValidUTF8(s, "\ufffd") {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\b':
			b.WriteString(`\b`)
		case '\t':
			b.WriteString(`\t`)
		case '\n':
			b.WriteString(`\n`)
		case '\f':
			b.WriteString(`\f`)
		case '\r':
			b.WriteString(`\r`)
		case '<', '>', '&', '=', '\'', '\u2028', '\u2029':
			writeUnicodeEscape(&b, r)
		default:
			if r < 0x20 {
				writeUnicodeEscape(&b, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func writeUnicodeEscape(b *strings.Builder, r rune) {
	b.WriteString(`\u`)
	b.WriteByte(lowerHex[(r>>12)&0xf])
	b.WriteByte(lowerHex[(r>>8)&0xf])
	b.WriteByte(lowerHex[(r>>4)&0xf])
	b.WriteByte(lowerHex[r&0xf])
}
