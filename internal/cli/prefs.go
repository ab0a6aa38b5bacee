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
	"fmt"

	"github.com/jeremyhahn/go-sessionkey/pkg/keychain"
	"github.com/spf13/cobra"
)

func newPrefsCmd(cfg *Config) *cobra.Command {
	prefsCmd := &cobra.Command{
		Use:     "prefs",
		Aliases: []string{"preferences"},
		Short:   "Manage stored preferences",
		Long: `Store and read preference values. "save" and "load" encrypt with the
provider key; "put" and "get" store raw values.`,
	}

	prefsCmd.AddCommand(&cobra.Command{
		Use:   "put <key> <value>",
		Short: "Store a raw value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withKeychain(cmd, cfg, func(kc *keychain.Keychain, printer *Printer) error {
				if err := kc.Put(args[0], args[1]); err != nil {
					return err
				}
				return printer.PrintSuccess(fmt.Sprintf("Stored %s", args[0]))
			})
		},
	})

	prefsCmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print a raw value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withKeychain(cmd, cfg, func(kc *keychain.Keychain, printer *Printer) error {
				value, err := kc.Get(args[0])
				if err != nil {
					return err
				}
				return printer.PrintPreference(args[0], value, value != "")
			})
		},
	})

	prefsCmd.AddCommand(&cobra.Command{
		Use:   "save <key> <value>",
		Short: "Encrypt and store a value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withKeychain(cmd, cfg, func(kc *keychain.Keychain, printer *Printer) error {
				if err := kc.EncryptAndStore(args[0], args[1]); err != nil {
					return err
				}
				return printer.PrintSuccess(fmt.Sprintf("Saved %s", args[0]))
			})
		},
	})

	prefsCmd.AddCommand(&cobra.Command{
		Use:   "load <key>",
		Short: "Load and decrypt a value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withKeychain(cmd, cfg, func(kc *keychain.Keychain, printer *Printer) error {
				value, found, err := kc.Lookup(args[0])
				if err != nil {
					return err
				}
				return printer.PrintPreference(args[0], value, found)
			})
		},
	})

	prefsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored preference keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withKeychain(cmd, cfg, func(kc *keychain.Keychain, printer *Printer) error {
				keys, err := kc.Keys()
				if err != nil {
					return err
				}
				return printer.PrintKeyList(keys)
			})
		},
	})

	prefsCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every stored preference",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withKeychain(cmd, cfg, func(kc *keychain.Keychain, printer *Printer) error {
				if err := kc.Clear(); err != nil {
					return err
				}
				return printer.PrintSuccess("Preferences cleared")
			})
		},
	})

	return prefsCmd
}
