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
	"github.com/spf13/cobra"
)

func newDeriveCmd(cfg *Config) *cobra.Command {
	deriveCmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive secp256k1 key material from a session id",
		Long: `Derive the secp256k1 key pair whose private scalar is the session id,
a hexadecimal integer in [1, n).`,
	}

	deriveCmd.AddCommand(&cobra.Command{
		Use:   "public <session-id>",
		Short: "Print the public key as hex",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withKeychain(cmd, cfg, func(kc *keychain.Keychain, printer *Printer) error {
				pub, err := kc.DerivePublicKey(args[0])
				if err != nil {
					return err
				}
				return printer.PrintValue("public_key", pub)
			})
		},
	})

	deriveCmd.AddCommand(&cobra.Command{
		Use:   "private <session-id>",
		Short: "Print the private scalar as hex",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withKeychain(cmd, cfg, func(kc *keychain.Keychain, printer *Printer) error {
				priv, err := kc.DerivePrivateKey(args[0])
				if err != nil {
					return err
				}
				return printer.PrintValue("private_key", priv)
			})
		},
	})

	return deriveCmd
}
