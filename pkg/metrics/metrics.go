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

// Package metrics provides Prometheus instrumentation for session key
// operations. It exposes operation counters, latency histograms, error
// counters, and provider health gauges.
package metrics

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

const (
	// Namespace is the Prometheus namespace for all session key metrics
	Namespace = "sessionkey"

	// Label names
	LabelOperation = "operation"
	LabelProvider  = "provider"
	LabelStatus    = "status"
	LabelErrorType = "error_type"

	// Status values
	StatusSuccess = "success"
	StatusError   = "error"

	// Operation names
	OpEncryptAndStore  = "encrypt_and_store"
	OpLoadAndDecrypt   = "load_and_decrypt"
	OpDerivePublicKey  = "derive_public_key"
	OpDerivePrivateKey = "derive_private_key"
	OpSign             = "sign"
	OpPut              = "put"
	OpGet              = "get"
	OpClear            = "clear"
)

var (
	// OperationsTotal tracks the total number of operations by type, provider, and status.
	// Use RecordOperation to increment this counter with the appropriate labels.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "operations_total",
			Help:      "Total number of session key operations by type, provider, and status",
		},
		[]string{LabelOperation, LabelProvider, LabelStatus},
	)

	// OperationDuration tracks the duration of operations in seconds.
	// Buckets are optimized for typical cryptographic operation latencies.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of session key operations in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{LabelOperation, LabelProvider},
	)

	// ErrorsTotal tracks the total number of errors by operation, provider, and error type.
	// Error types should be specific (e.g., "invalid_session_id", "decryption").
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "errors_total",
			Help:      "Total number of errors by operation, provider, and error type",
		},
		[]string{LabelOperation, LabelProvider, LabelErrorType},
	)

	// ProviderHealthy indicates whether a key provider is healthy (1) or unhealthy (0).
	ProviderHealthy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "provider_healthy",
			Help:      "Indicates whether a key provider is healthy (1) or unhealthy (0)",
		},
		[]string{LabelProvider},
	)

	// enabled tracks whether metrics collection is enabled
	enabled atomic.Bool
)

func init() {
	// Metrics are enabled by default
	enabled.Store(true)
}

// RecordOperation records an operation with its duration and status.
//
// Example:
//
//	start := time.Now()
//	_, err := signer.Sign(d, payload)
//	status := metrics.StatusSuccess
//	if err != nil {
//	    status = metrics.StatusError
//	}
//	metrics.RecordOperation(metrics.OpSign, "software", status, time.Since(start).Seconds())
func RecordOperation(operation, provider, status string, duration float64) {
	if !enabled.Load() {
		return
	}
	OperationsTotal.WithLabelValues(operation, provider, status).Inc()
	OperationDuration.WithLabelValues(operation, provider).Observe(duration)
}

// RecordError records an error event with context about where it occurred.
func RecordError(operation, provider, errorType string) {
	if !enabled.Load() {
		return
	}
	ErrorsTotal.WithLabelValues(operation, provider, errorType).Inc()
}

// SetProviderHealth sets the health status of a key provider.
// healthy=true sets the gauge to 1, healthy=false sets it to 0.
func SetProviderHealth(provider string, healthy bool) {
	if !enabled.Load() {
		return
	}
	value := 0.0
	if healthy {
		value = 1.0
	}
	ProviderHealthy.WithLabelValues(provider).Set(value)
}

// Enable enables metrics collection.
func Enable() {
	enabled.Store(true)
}

// Disable disables metrics collection.
// Useful for testing or when metrics are not desired.
func Disable() {
	enabled.Store(false)
}

// IsEnabled returns whether metrics collection is currently enabled.
func IsEnabled() bool {
	return enabled.Load()
}

// WriteText writes every family in gatherer that belongs to Namespace in
// the Prometheus text exposition format. A nil gatherer uses
// prometheus.DefaultGatherer.
func WriteText(w io.Writer, gatherer prometheus.Gatherer) error {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	families, err := gatherer.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	prefix := Namespace + "_"
	for _, mf := range families {
		if len(mf.GetName()) < len(prefix) || mf.GetName()[:len(prefix)] != prefix {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to write metric family %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
