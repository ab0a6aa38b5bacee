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

package cli

import (
	"github.com/jeremyhahn/go-sessionkey/pkg/keychain"
	"github.com/jeremyhahn/go-sessionkey/pkg/sessionkey"
	"github.com/jeremyhahn/go-sessionkey/pkg/signing"
	"github.com/spf13/cobra"
)

func newSignCmd(cfg *Config) *cobra.Command {
	var useSession bool

	signCmd := &cobra.Command{
		Use:   "sign <private-hex> <payload>",
		Short: "Sign a payload",
		Long: `Sign the Keccak-256 digest of the JSON-encoded payload with ECDSA over
secp256k1 and print the DER signature as lowercase hex.

With --session the first argument is a session id and the key pair is
derived from it first.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withKeychain(cmd, cfg, func(kc *keychain.Keychain, printer *Printer) error {
				var (
					sig string
					err error
				)
				if useSession {
					sig, err = kc.SignWithSession(args[0], args[1])
				} else {
					d, perr := sessionkey.ParseSessionID(args[0])
					if perr != nil {
						return perr
					}
					sig, err = kc.Sign(d, args[1])
				}
				if err != nil {
					return err
				}
				return printer.PrintSignature(sig, kc.Layout().String())
			})
		},
	}
	signCmd.Flags().BoolVar(&useSession, "session", false, "treat the first argument as a session id")

	return signCmd
}

func newVerifyCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <session-id> <payload> <signature-hex>",
		Short: "Verify a standard-layout signature",
		Long: `Verify a DER SEQUENCE { r, s } signature against the public key derived
from the session id. Signatures produced in the duplicate_r layout never
verify.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kp, err := sessionkey.Derive(args[0])
			if err != nil {
				return err
			}
			valid, err := signing.Verify(kp, args[1], args[2])
			if err != nil {
				return err
			}
			return NewPrinter(cfg.OutputFormat, cmd.OutOrStdout()).PrintVerification(valid)
		},
	}
}
