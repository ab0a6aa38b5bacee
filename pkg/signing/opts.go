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

import "fmt"

// Layout selects which integers are written into the DER SEQUENCE.
type Layout int

const (
	// LayoutDuplicateR writes SEQUENCE { r, r }. Consumers that were built
	// against earlier releases expect this byte layout; the output does not
	// verify as a standard ECDSA signature.
	LayoutDuplicateR Layout = iota

	// LayoutStandard writes SEQUENCE { r, s }.
	LayoutStandard
)

func (l Layout) String() string {
	switch l {
	case LayoutDuplicateR:
		return "duplicate_r"
	case LayoutStandard:
		return "standard"
	default:
		return fmt.Sprintf("Layout(%d)", int(l))
	}
}

// ParseLayout parses a layout name as produced by Layout.String.
func ParseLayout(name string) (Layout, error) {
	switch name {
	case "", "duplicate_r":
		return LayoutDuplicateR, nil
	case "standard":
		return LayoutStandard, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidLayout, name)
	}
}

// Option configures a Signer.
type Option func(*Signer)

// WithLayout sets the DER layout. The default is LayoutDuplicateR.
func WithLayout(layout Layout) Option {
	return func(s *Signer) {
		s.layout = layout
	}
}
