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

package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jeremyhahn/go-sessionkey/pkg/adapters/logger"
	"github.com/jeremyhahn/go-sessionkey/pkg/keychain"
	"github.com/jeremyhahn/go-sessionkey/pkg/keystore"
	"github.com/jeremyhahn/go-sessionkey/pkg/keystore/keyring"
	"github.com/jeremyhahn/go-sessionkey/pkg/keystore/software"
	"github.com/jeremyhahn/go-sessionkey/pkg/metrics"
	"github.com/jeremyhahn/go-sessionkey/pkg/preferences"
	"github.com/jeremyhahn/go-sessionkey/pkg/signing"
	"github.com/jeremyhahn/go-sessionkey/pkg/storage"
	"github.com/jeremyhahn/go-sessionkey/pkg/storage/file"
	"github.com/jeremyhahn/go-sessionkey/pkg/storage/memory"
	"github.com/jeremyhahn/go-sessionkey/pkg/storage/sealed"
)

// NewLogger builds the structured logger described by the logging section.
// A nil writer logs to stderr.
func (c *Config) NewLogger(w io.Writer) (logger.Logger, error) {
	level, err := logger.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, err
	}
	format := logger.Format(strings.ToLower(c.Logging.Format))
	if format == "" {
		format = logger.FormatText
	}
	return logger.NewSlogAdapter(&logger.SlogConfig{
		Level:  level,
		Format: format,
		Writer: w,
	}), nil
}

// NewStorage opens the preference storage backend, sealing it when
// configured.
func (c *Config) NewStorage() (storage.Backend, error) {
	var backend storage.Backend
	switch c.Storage.Backend {
	case StorageMemory:
		backend = memory.New()
	case StorageFile:
		fs, err := file.New(c.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open storage: %w", err)
		}
		backend = fs
	default:
		return nil, fmt.Errorf("invalid storage backend: %q", c.Storage.Backend)
	}

	if !c.Storage.Sealed {
		return backend, nil
	}
	secret := os.Getenv(c.Storage.SealKeyEnv)
	if secret == "" {
		return nil, fmt.Errorf("sealed storage requires %s to be set", c.Storage.SealKeyEnv)
	}
	return sealed.New(&sealed.Config{
		Backend: backend,
		Secret:  []byte(secret),
	})
}

// NewProvider opens the configured key provider. Software keys live in
// shared unless keystore.path names a directory of their own.
func (c *Config) NewProvider(shared storage.Backend) (keystore.Provider, error) {
	password, err := c.password()
	if err != nil {
		return nil, err
	}

	switch c.Keystore.Provider {
	case ProviderSoftware:
		keyStorage := shared
		if c.Keystore.Path != "" {
			fs, err := file.New(c.Keystore.Path)
			if err != nil {
				return nil, fmt.Errorf("failed to open key storage: %w", err)
			}
			keyStorage = fs
		}
		var pw []byte
		if password != "" {
			pw = []byte(password)
		}
		return software.New(&software.Config{
			KeyStorage: keyStorage,
			Password:   pw,
		})
	case ProviderKeyring:
		return keyring.New(&keyring.Config{
			ServiceName:  c.Keystore.Keyring.Service,
			Backends:     c.Keystore.Keyring.Backends,
			FileDir:      c.Keystore.Keyring.FileDir,
			FilePassword: password,
		})
	default:
		return nil, fmt.Errorf("invalid keystore provider: %q", c.Keystore.Provider)
	}
}

// Build wires storage, provider and signer into a Keychain. Metrics are
// enabled or disabled process-wide according to the metrics section.
func (c *Config) Build(log logger.Logger) (*keychain.Keychain, error) {
	layout, err := signing.ParseLayout(c.Signing.Layout)
	if err != nil {
		return nil, err
	}
	mode, err := preferences.ParseMode(c.Preferences.Mode)
	if err != nil {
		return nil, err
	}

	if c.Metrics.Enabled {
		metrics.Enable()
	} else {
		metrics.Disable()
	}

	backend, err := c.NewStorage()
	if err != nil {
		return nil, err
	}
	provider, err := c.NewProvider(backend)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	kc, err := keychain.New(&keychain.Config{
		Provider:  provider,
		Storage:   backend,
		Alias:     c.Keystore.Alias,
		Namespace: c.Storage.Namespace,
		Layout:    layout,
		Mode:      mode,
		Logger:    log,
	})
	if err != nil {
		_ = provider.Close()
		_ = backend.Close()
		return nil, err
	}
	return kc, nil
}

func (c *Config) password() (string, error) {
	if c.Keystore.PasswordEnv == "" {
		return "", nil
	}
	password := os.Getenv(c.Keystore.PasswordEnv)
	if password == "" {
		return "", fmt.Errorf("%s is configured as password_env but is not set", c.Keystore.PasswordEnv)
	}
	return password, nil
}
