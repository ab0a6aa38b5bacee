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

// Package config loads the sessionkey YAML configuration, applies
// SESSIONKEY_* environment overrides and builds a Keychain from it.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/jeremyhahn/go-sessionkey/pkg/adapters/logger"
	"github.com/jeremyhahn/go-sessionkey/pkg/preferences"
	"github.com/jeremyhahn/go-sessionkey/pkg/signing"
	"github.com/jeremyhahn/go-sessionkey/pkg/storage"
	"github.com/jeremyhahn/go-sessionkey/pkg/symmetric"
	"gopkg.in/yaml.v3"
)

// Storage backends
const (
	StorageMemory = "memory"
	StorageFile   = "file"
)

// Key providers
const (
	ProviderSoftware = "software"
	ProviderKeyring  = "keyring"
)

// DefaultSealKeyEnv names the variable holding the sealed storage secret.
const DefaultSealKeyEnv = "SESSIONKEY_SEAL_KEY"

// Config represents the complete sessionkey configuration
type Config struct {
	Logging     LoggingConfig     `yaml:"logging"`
	Storage     StorageConfig     `yaml:"storage"`
	Keystore    KeystoreConfig    `yaml:"keystore"`
	Signing     SigningConfig     `yaml:"signing"`
	Preferences PreferencesConfig `yaml:"preferences"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// LoggingConfig controls logging behavior
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StorageConfig controls where preferences are persisted
type StorageConfig struct {
	Backend   string `yaml:"backend"` // memory, file
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`

	// Sealed encrypts every stored value with a secret read from SealKeyEnv.
	Sealed     bool   `yaml:"sealed"`
	SealKeyEnv string `yaml:"seal_key_env"`
}

// KeystoreConfig selects the provider holding the AES key
type KeystoreConfig struct {
	Provider string `yaml:"provider"` // software, keyring
	Alias    string `yaml:"alias"`

	// Path is a directory for software provider keys. Empty shares the
	// preference storage.
	Path string `yaml:"path"`

	// PasswordEnv names the variable holding the key protection password.
	PasswordEnv string `yaml:"password_env"`

	Keyring KeyringConfig `yaml:"keyring"`
}

// KeyringConfig contains OS keychain settings
type KeyringConfig struct {
	Service  string   `yaml:"service"`
	Backends []string `yaml:"backends"`
	FileDir  string   `yaml:"file_dir"`
}

// SigningConfig controls signature encoding
type SigningConfig struct {
	Layout string `yaml:"layout"` // duplicate_r, standard
}

// PreferencesConfig controls how encrypted values are persisted
type PreferencesConfig struct {
	Mode string `yaml:"mode"` // encrypted, legacy_plaintext
}

// MetricsConfig controls Prometheus instrumentation
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns an in-memory configuration that needs no files or
// environment.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: string(logger.FormatText),
		},
		Storage: StorageConfig{
			Backend:    StorageMemory,
			Namespace:  storage.PreferencesPrefix,
			SealKeyEnv: DefaultSealKeyEnv,
		},
		Keystore: KeystoreConfig{
			Provider: ProviderSoftware,
			Alias:    symmetric.DefaultAlias,
			Keyring: KeyringConfig{
				Service: "go-sessionkey",
			},
		},
		Signing: SigningConfig{
			Layout: signing.LayoutDuplicateR.String(),
		},
		Preferences: PreferencesConfig{
			Mode: preferences.ModeEncrypted.String(),
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Load reads configuration from a YAML file over Default and applies
// environment variable overrides
func Load(path string) (*Config, error) {
	// #nosec G304 - Config file path is provided by the user
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over Default, applies environment overrides and
// validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads path, or returns Default with environment overrides
// when path is empty.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	cfg := Default()
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration
func applyEnvOverrides(cfg *Config) {
	// Logging
	if level := os.Getenv("SESSIONKEY_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if format := os.Getenv("SESSIONKEY_LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}

	// Storage
	if backend := os.Getenv("SESSIONKEY_STORAGE_BACKEND"); backend != "" {
		cfg.Storage.Backend = backend
	}
	if dataDir := os.Getenv("SESSIONKEY_DATA_DIR"); dataDir != "" {
		cfg.Storage.Path = dataDir
	}
	if sealed := os.Getenv("SESSIONKEY_STORAGE_SEALED"); sealed != "" {
		v, err := strconv.ParseBool(sealed)
		if err != nil {
			log.Printf("Warning: invalid SESSIONKEY_STORAGE_SEALED value %q, using %t: %v",
				sealed, cfg.Storage.Sealed, err)
		} else {
			cfg.Storage.Sealed = v
		}
	}

	// Keystore
	if provider := os.Getenv("SESSIONKEY_PROVIDER"); provider != "" {
		cfg.Keystore.Provider = provider
	}
	if alias := os.Getenv("SESSIONKEY_ALIAS"); alias != "" {
		cfg.Keystore.Alias = alias
	}
	if keyDir := os.Getenv("SESSIONKEY_KEY_DIR"); keyDir != "" {
		cfg.Keystore.Path = keyDir
	}

	// Signing and preferences
	if layout := os.Getenv("SESSIONKEY_SIGNING_LAYOUT"); layout != "" {
		cfg.Signing.Layout = layout
	}
	if mode := os.Getenv("SESSIONKEY_PREFERENCES_MODE"); mode != "" {
		cfg.Preferences.Mode = mode
	}

	// Metrics
	if enabled := os.Getenv("SESSIONKEY_METRICS_ENABLED"); enabled != "" {
		v, err := strconv.ParseBool(enabled)
		if err != nil {
			log.Printf("Warning: invalid SESSIONKEY_METRICS_ENABLED value %q, using %t: %v",
				enabled, cfg.Metrics.Enabled, err)
		} else {
			cfg.Metrics.Enabled = v
		}
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}
	switch logger.Format(strings.ToLower(c.Logging.Format)) {
	case "", logger.FormatText, logger.FormatJSON:
	default:
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Logging.Format)
	}

	switch c.Storage.Backend {
	case StorageMemory:
	case StorageFile:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage path is required for the file backend")
		}
	default:
		return fmt.Errorf("invalid storage backend: %q (must be memory or file)", c.Storage.Backend)
	}
	if c.Storage.Sealed && c.Storage.SealKeyEnv == "" {
		return fmt.Errorf("storage seal_key_env is required when sealed is enabled")
	}

	switch c.Keystore.Provider {
	case ProviderSoftware, ProviderKeyring:
	default:
		return fmt.Errorf("invalid keystore provider: %q (must be software or keyring)", c.Keystore.Provider)
	}
	if strings.ContainsAny(c.Keystore.Alias, "/\\") {
		return fmt.Errorf("invalid keystore alias: %q", c.Keystore.Alias)
	}

	if _, err := signing.ParseLayout(c.Signing.Layout); err != nil {
		return err
	}
	if _, err := preferences.ParseMode(c.Preferences.Mode); err != nil {
		return err
	}
	return nil
}
