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

// Package health runs self-checks against the components a Keychain
// depends on: the key provider and the preference storage backend.
package health

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jeremyhahn/go-sessionkey/pkg/keystore"
	"github.com/jeremyhahn/go-sessionkey/pkg/storage"
)

// Status represents the health status of a component.
type Status string

const (
	// StatusHealthy indicates the component is operating normally.
	StatusHealthy Status = "healthy"
	// StatusUnhealthy indicates the component is not functioning.
	StatusUnhealthy Status = "unhealthy"
	// StatusDegraded indicates the component works but is not fully set up.
	StatusDegraded Status = "degraded"
)

// ProbeKey is the storage key written and removed by StorageCheck.
const ProbeKey = ".health-probe"

// CheckResult represents the result of a single health check.
type CheckResult struct {
	// Name is the identifier for this health check.
	Name string `json:"name"`
	// Status is the health status of the component.
	Status Status `json:"status"`
	// Message provides additional context about the status.
	Message string `json:"message,omitempty"`
	// Latency is how long the check took to execute.
	Latency time.Duration `json:"latency"`
	// Error contains error details if the check failed.
	Error string `json:"error,omitempty"`
}

// CheckFunc is a function that performs a health check.
type CheckFunc func(ctx context.Context) CheckResult

// Checker holds named checks.
type Checker struct {
	mu     sync.RWMutex
	checks map[string]CheckFunc
}

// NewChecker creates a new health checker.
func NewChecker() *Checker {
	return &Checker{checks: make(map[string]CheckFunc)}
}

// RegisterCheck adds a health check with the given name.
// If a check with this name already exists, it will be replaced.
func (c *Checker) RegisterCheck(name string, check CheckFunc) {
	if check == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Run executes every registered check in name order. A cancelled context
// marks the remaining checks unhealthy without running them.
func (c *Checker) Run(ctx context.Context) []CheckResult {
	c.mu.RLock()
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	checks := make(map[string]CheckFunc, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()
	sort.Strings(names)

	results := make([]CheckResult, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			results = append(results, CheckResult{Name: name, Status: StatusUnhealthy, Error: err.Error()})
			continue
		}
		start := time.Now()
		result := checks[name](ctx)
		result.Latency = time.Since(start)
		if result.Name == "" {
			result.Name = name
		}
		results = append(results, result)
	}
	return results
}

// IsHealthy returns true if every check passes.
func (c *Checker) IsHealthy(ctx context.Context) bool {
	return AggregateStatus(c.Run(ctx)) == StatusHealthy
}

// AggregateStatus returns the overall status based on check results.
// - If all checks are healthy, returns StatusHealthy
// - If any check is unhealthy, returns StatusUnhealthy
// - If any check is degraded (and none unhealthy), returns StatusDegraded
func AggregateStatus(results []CheckResult) Status {
	hasUnhealthy := false
	hasDegraded := false

	for _, result := range results {
		switch result.Status {
		case StatusUnhealthy:
			hasUnhealthy = true
		case StatusDegraded:
			hasDegraded = true
		}
	}

	if hasUnhealthy {
		return StatusUnhealthy
	}
	if hasDegraded {
		return StatusDegraded
	}
	return StatusHealthy
}

// ProviderCheck verifies that the key for alias can be read and used for
// an encrypt/decrypt round trip. It never creates the key; a provider
// without one yet reports degraded.
func ProviderCheck(provider keystore.Provider, alias string) CheckFunc {
	return func(ctx context.Context) CheckResult {
		name := "provider:" + string(provider.Type())

		handle, err := provider.Key(alias)
		if errors.Is(err, keystore.ErrKeyNotFound) {
			return CheckResult{
				Name:    name,
				Status:  StatusDegraded,
				Message: fmt.Sprintf("key %q has not been created yet", alias),
			}
		}
		if err != nil {
			return unhealthy(name, err)
		}

		probe := []byte("health")
		iv, ct, err := provider.Encrypt(handle, probe)
		if err != nil {
			return unhealthy(name, err)
		}
		pt, err := provider.Decrypt(handle, iv, ct)
		if err != nil {
			return unhealthy(name, err)
		}
		if string(pt) != string(probe) {
			return unhealthy(name, errors.New("round trip mismatch"))
		}
		return CheckResult{
			Name:    name,
			Status:  StatusHealthy,
			Message: fmt.Sprintf("key %q usable", alias),
		}
	}
}

// StorageCheck writes, reads back and deletes ProbeKey in backend.
func StorageCheck(backend storage.Backend) CheckFunc {
	return func(ctx context.Context) CheckResult {
		const name = "storage"
		probe := []byte(time.Now().UTC().Format(time.RFC3339Nano))

		if err := backend.Put(ProbeKey, probe, storage.DefaultOptions()); err != nil {
			return unhealthy(name, err)
		}
		got, err := backend.Get(ProbeKey)
		if err != nil {
			return unhealthy(name, err)
		}
		if err := backend.Delete(ProbeKey); err != nil {
			return unhealthy(name, err)
		}
		if string(got) != string(probe) {
			return unhealthy(name, errors.New("read back mismatch"))
		}
		return CheckResult{Name: name, Status: StatusHealthy, Message: "read/write ok"}
	}
}

func unhealthy(name string, err error) CheckResult {
	return CheckResult{
		Name:   name,
		Status: StatusUnhealthy,
		Error:  err.Error(),
	}
}
