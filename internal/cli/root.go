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

// Package cli implements the sessionkey command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/jeremyhahn/go-sessionkey/internal/config"
	"github.com/jeremyhahn/go-sessionkey/pkg/adapters/logger"
	"github.com/jeremyhahn/go-sessionkey/pkg/keychain"
	"github.com/jeremyhahn/go-sessionkey/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// Config holds global CLI configuration
type Config struct {
	// ConfigFile is the path to the configuration file
	ConfigFile string

	// DataDir, if set, persists preferences and keys in files below it
	DataDir string

	// OutputFormat controls output formatting (text, json)
	OutputFormat string

	// Verbose enables debug logging to stderr
	Verbose bool

	// Metrics dumps the sessionkey metrics to stderr after the command
	Metrics bool
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		OutputFormat: string(OutputFormatText),
	}
}

// NewRootCommand builds the sessionkey command tree.
func NewRootCommand() *cobra.Command {
	cfg := NewConfig()

	rootCmd := &cobra.Command{
		Use:   "sessionkey",
		Short: "go-sessionkey CLI - session secret storage and signing",
		Long: `sessionkey protects session secrets with a provider-held AES key and
derives secp256k1 key pairs from session identifiers to sign payloads.

Key providers:
  - software: AES key kept in the configured storage
  - keyring:  AES key kept in the OS keychain`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return NewPrinter(cfg.OutputFormat, cmd.OutOrStdout()).Validate()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if !cfg.Metrics {
				return nil
			}
			return metrics.WriteText(cmd.ErrOrStderr(), prometheus.DefaultGatherer)
		},
	}

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfg.ConfigFile, "config", "",
		"config file (defaults to an in-memory configuration)")
	rootCmd.PersistentFlags().StringVar(&cfg.DataDir, "data-dir", "",
		"directory for file-based preference and key storage")
	rootCmd.PersistentFlags().StringVarP(&cfg.OutputFormat, "output", "o", string(OutputFormatText),
		"output format (text, json)")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", false,
		"verbose output")
	rootCmd.PersistentFlags().BoolVar(&cfg.Metrics, "metrics", false,
		"print operation metrics to stderr on exit")

	// Add subcommands
	rootCmd.AddCommand(newVersionCmd(cfg))
	rootCmd.AddCommand(newDeriveCmd(cfg))
	rootCmd.AddCommand(newSignCmd(cfg))
	rootCmd.AddCommand(newVerifyCmd(cfg))
	rootCmd.AddCommand(newPrefsCmd(cfg))
	rootCmd.AddCommand(newHealthCmd(cfg))

	return rootCmd
}

// Execute runs the root command and prints any error through the printer.
func Execute() error {
	cmd := NewRootCommand()
	err := cmd.Execute()
	if err != nil {
		format, _ := cmd.PersistentFlags().GetString("output")
		_ = NewPrinter(format, os.Stderr).PrintError(err) // best-effort
	}
	return err
}

// openKeychain loads the configuration and builds a Keychain from it.
func openKeychain(cmd *cobra.Command, cfg *Config) (*keychain.Keychain, error) {
	appCfg, err := config.LoadOrDefault(cfg.ConfigFile)
	if err != nil {
		return nil, err
	}
	if cfg.DataDir != "" {
		appCfg.Storage.Backend = config.StorageFile
		appCfg.Storage.Path = cfg.DataDir
	}
	if cfg.Verbose {
		appCfg.Logging.Level = "debug"
	}
	if cfg.Metrics {
		appCfg.Metrics.Enabled = true
	}

	log, err := appCfg.NewLogger(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	log.Debug("configuration loaded",
		logger.String("storage", appCfg.Storage.Backend),
		logger.String("provider", appCfg.Keystore.Provider),
		logger.String("layout", appCfg.Signing.Layout))

	kc, err := appCfg.Build(log)
	if err != nil {
		return nil, fmt.Errorf("failed to open keychain: %w", err)
	}
	return kc, nil
}

// withKeychain opens a Keychain, runs fn with it and closes it.
func withKeychain(cmd *cobra.Command, cfg *Config, fn func(*keychain.Keychain, *Printer) error) (err error) {
	kc, err := openKeychain(cmd, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := kc.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(kc, NewPrinter(cfg.OutputFormat, cmd.OutOrStdout()))
}
