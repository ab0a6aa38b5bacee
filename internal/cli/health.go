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
	"errors"

	"github.com/jeremyhahn/go-sessionkey/pkg/health"
	"github.com/jeremyhahn/go-sessionkey/pkg/keychain"
	"github.com/spf13/cobra"
)

// ErrUnhealthy is returned by the health command when a check fails.
var ErrUnhealthy = errors.New("health check failed")

func newHealthCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the key provider and storage",
		Long: `Run the provider and storage self-checks. A provider whose key has not
been created yet is reported as degraded; any failing check exits non-zero.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withKeychain(cmd, cfg, func(kc *keychain.Keychain, printer *Printer) error {
				results, err := kc.Check(cmd.Context())
				if err != nil {
					return err
				}
				status := health.AggregateStatus(results)
				if err := printer.PrintHealth(status, results); err != nil {
					return err
				}
				if status == health.StatusUnhealthy {
					return ErrUnhealthy
				}
				return nil
			})
		},
	}
}
