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
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
)

const (
	// AlgorithmAESCBCPKCS7 names the only cipher the codec produces.
	AlgorithmAESCBCPKCS7 = "AES/CBC/PKCS7Padding"

	wireVersion byte = 0x01
)

// EncryptedBlob is the output of Codec.Encrypt. The IV is generated fresh
// for every encryption and is required, together with the key alias, to
// decrypt. Callers persist both fields.
type EncryptedBlob struct {
	Algorithm  string
	IV         []byte
	Ciphertext []byte
}

// Marshal serializes an EncryptedBlob.
//
// Wire Format (version 1):
//
//	┌────────────────────────────────────────────────────┐
//	│ Version: 1 byte (0x01)                             │
//	├────────────────────────────────────────────────────┤
//	│ Algorithm Length: 2 bytes (big-endian uint16)      │
//	│ Algorithm: variable bytes (UTF-8 string)           │
//	├────────────────────────────────────────────────────┤
//	│ IV Length: 2 bytes (big-endian uint16)             │
//	│ IV: variable bytes                                 │
//	├────────────────────────────────────────────────────┤
//	│ Ciphertext Length: 4 bytes (big-endian uint32)     │
//	│ Ciphertext: variable bytes                         │
//	└────────────────────────────────────────────────────┘
func Marshal(blob *EncryptedBlob) ([]byte, error) {
	if blob == nil {
		return nil, fmt.Errorf("%w: blob is nil", ErrMalformedBlob)
	}

	algBytes := []byte(blob.Algorithm)
	if len(algBytes) > 65535 {
		return nil, fmt.Errorf("%w: algorithm string too long: %d bytes", ErrMalformedBlob, len(algBytes))
	}
	if len(blob.IV) > 65535 {
		return nil, fmt.Errorf("%w: IV too long: %d bytes", ErrMalformedBlob, len(blob.IV))
	}
	if uint64(len(blob.Ciphertext)) > 4294967295 {
		return nil, fmt.Errorf("%w: ciphertext too long: %d bytes", ErrMalformedBlob, len(blob.Ciphertext))
	}

	buf := new(bytes.Buffer)
	buf.Grow(1 + 2 + len(algBytes) + 2 + len(blob.IV) + 4 + len(blob.Ciphertext))

	buf.WriteByte(wireVersion)

	// #nosec G115 - Length is validated to be <= 65535 before conversion
	_ = binary.Write(buf, binary.BigEndian, uint16(len(algBytes)))
	buf.Write(algBytes)

	// #nosec G115 - Length is validated to be <= 65535 before conversion
	_ = binary.Write(buf, binary.BigEndian, uint16(len(blob.IV)))
	buf.Write(blob.IV)

	// #nosec G115 - Length is validated to be <= 4294967295 before conversion
	_ = binary.Write(buf, binary.BigEndian, uint32(len(blob.Ciphertext)))
	buf.Write(blob.Ciphertext)

	return buf.Bytes(), nil
}

// Unmarshal deserializes an EncryptedBlob. Truncated input, trailing bytes,
// and unknown versions are rejected with ErrMalformedBlob.
func Unmarshal(data []byte) (*EncryptedBlob, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("%w: data too short", ErrMalformedBlob)
	}

	r := bytes.NewReader(data)

	version, _ := r.ReadByte()
	if version != wireVersion {
		return nil, fmt.Errorf("%w: unsupported version: 0x%02x", ErrMalformedBlob, version)
	}

	var algLen uint16
	if err := binary.Read(r, binary.BigEndian, &algLen); err != nil {
		return nil, fmt.Errorf("%w: failed to read algorithm length: %v", ErrMalformedBlob, err)
	}
	algBytes, err := readN(r, int(algLen))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read algorithm: %v", ErrMalformedBlob, err)
	}

	var ivLen uint16
	if err := binary.Read(r, binary.BigEndian, &ivLen); err != nil {
		return nil, fmt.Errorf("%w: failed to read IV length: %v", ErrMalformedBlob, err)
	}
	iv, err := readN(r, int(ivLen))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read IV: %v", ErrMalformedBlob, err)
	}

	var ctLen uint32
	if err := binary.Read(r, binary.BigEndian, &ctLen); err != nil {
		return nil, fmt.Errorf("%w: failed to read ciphertext length: %v", ErrMalformedBlob, err)
	}
	if int64(ctLen) > int64(r.Len()) {
		return nil, fmt.Errorf("%w: ciphertext length %d exceeds remaining %d bytes", ErrMalformedBlob, ctLen, r.Len())
	}
	ciphertext, err := readN(r, int(ctLen))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read ciphertext: %v", ErrMalformedBlob, err)
	}

	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformedBlob, r.Len())
	}

	return &EncryptedBlob{
		Algorithm:  string(algBytes),
		IV:         iv,
		Ciphertext: ciphertext,
	}, nil
}

// EncodeBlob returns the standard base64 encoding of Marshal(blob), the
// form persisted as a preference string.
func EncodeBlob(blob *EncryptedBlob) (string, error) {
	data, err := Marshal(blob)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodeBlob reverses EncodeBlob.
func DecodeBlob(s string) (*EncryptedBlob, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64: %v", ErrMalformedBlob, err)
	}
	return Unmarshal(data)
}

func readN(r *bytes.Reader, n int) ([]byte, error) {
	out := make([]byte, n)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}
