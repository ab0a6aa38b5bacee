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

// Package rand provides the random source used for symmetric key material
// and initialization vectors.
//
// Providers take a Resolver instead of reading crypto/rand directly so that a
// platform entropy source (or a fixed stream in tests) can be injected:
//
//	rng, _ := rand.NewResolver(rand.ModeSoftware)
//	iv, _ := rng.Rand(16)
//
// All Resolver implementations are safe for concurrent use.
package rand

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"
)

// Mode specifies which RNG source to use.
type Mode string

const (
	// ModeSoftware uses crypto/rand (stdlib secure random)
	ModeSoftware Mode = "software"
)

// ErrShortRead is returned when the underlying source returns fewer bytes
// than requested.
var ErrShortRead = errors.New("rand: short read from source")

// Resolver provides random bytes from the configured source.
//
// Resolver implements io.Reader, making it usable anywhere crypto/rand.Reader
// is expected.
type Resolver interface {
	// Rand returns n random bytes.
	Rand(n int) ([]byte, error)

	// Read implements io.Reader.
	Read(p []byte) (n int, err error)

	// Available returns true if the source is ready.
	Available() bool

	// Close releases any resources held by the source.
	Close() error
}

// NewResolver creates a resolver for the given mode. An empty mode selects
// ModeSoftware.
func NewResolver(mode Mode) (Resolver, error) {
	switch mode {
	case "", ModeSoftware:
		return &SoftwareResolver{}, nil
	default:
		return nil, fmt.Errorf("unknown RNG mode: %s", mode)
	}
}

// SoftwareResolver uses crypto/rand from the Go standard library.
type SoftwareResolver struct{}

var _ Resolver = (*SoftwareResolver)(nil)

func (s *SoftwareResolver) Rand(n int) ([]byte, error) {
	buf := make([]byte, n)
	_, err := rand.Read(buf)
	return buf, err
}

// Read implements io.Reader for compatibility with crypto/rand.Reader.
func (s *SoftwareResolver) Read(p []byte) (n int, err error) {
	return rand.Read(p)
}

func (s *SoftwareResolver) Available() bool {
	return true // crypto/rand always available
}

func (s *SoftwareResolver) Close() error {
	return nil
}

// ReaderResolver draws random bytes from an arbitrary io.Reader, such as a
// platform entropy device. Reads are serialized.
type ReaderResolver struct {
	mu     sync.Mutex
	reader io.Reader
}

var _ Resolver = (*ReaderResolver)(nil)

// NewReaderResolver wraps r as a Resolver.
func NewReaderResolver(r io.Reader) (*ReaderResolver, error) {
	if r == nil {
		return nil, fmt.Errorf("rand: reader cannot be nil")
	}
	return &ReaderResolver{reader: r}, nil
}

func (r *ReaderResolver) Rand(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := r.Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (r *ReaderResolver) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, err := io.ReadFull(r.reader, p)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return n, ErrShortRead
		}
		return n, err
	}
	return n, nil
}

func (r *ReaderResolver) Available() bool {
	return true
}

// Close closes the underlying reader if it implements io.Closer.
func (r *ReaderResolver) Close() error {
	if c, ok := r.reader.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
