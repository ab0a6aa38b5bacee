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
	"runtime"

	"github.com/jeremyhahn/go-sessionkey/pkg/keychain"
	"github.com/spf13/cobra"
)

// Version information (injected at build time via -ldflags)
var (
	Version   = "dev"     // Set via -ldflags "-X github.com/jeremyhahn/go-sessionkey/internal/cli.Version=x.y.z"
	GitCommit = "unknown" // Set via -ldflags "-X github.com/jeremyhahn/go-sessionkey/internal/cli.GitCommit=abc123"
	BuildDate = "unknown" // Set via -ldflags "-X github.com/jeremyhahn/go-sessionkey/internal/cli.BuildDate=2025-01-15"
)

func newVersionCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print the version information for the sessionkey CLI`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printer := NewPrinter(cfg.OutputFormat, cmd.OutOrStdout())

			if OutputFormat(cfg.OutputFormat) == OutputFormatJSON {
				return printer.printJSON(map[string]interface{}{
					"version":    Version,
					"library":    keychain.Version(),
					"commit":     GitCommit,
					"build_date": BuildDate,
					"go_version": runtime.Version(),
					"os":         runtime.GOOS,
					"arch":       runtime.GOARCH,
				})
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "sessionkey version %s\n", Version)
			fmt.Fprintf(w, "Library: %s\n", keychain.Version())
			fmt.Fprintf(w, "Git commit: %s\n", GitCommit)
			fmt.Fprintf(w, "Build date: %s\n", BuildDate)
			fmt.Fprintf(w, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(w, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
			return nil
		},
	}
}
