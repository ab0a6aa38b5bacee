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

package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(42).String())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    Level
		wantErr bool
	}{
		{name: "debug", want: LevelDebug},
		{name: "INFO", want: LevelInfo},
		{name: "", want: LevelInfo},
		{name: "warning", want: LevelWarn},
		{name: "error", want: LevelError},
		{name: "trace", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLevel(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFieldHelpers(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, Field{Key: "k", Value: "v"}, String("k", "v"))
	assert.Equal(t, Field{Key: "n", Value: 3}, Int("n", 3))
	assert.Equal(t, Field{Key: "f", Value: 1.5}, Float64("f", 1.5))
	assert.Equal(t, Field{Key: "b", Value: true}, Bool("b", true))
	assert.Equal(t, Field{Key: "error", Value: err}, Error(err))
	assert.Equal(t, Field{Key: "a", Value: []int{1}}, Any("a", []int{1}))
}

func TestSlogAdapter_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewSlogAdapter(&SlogConfig{Level: LevelDebug, Format: FormatJSON, Writer: &buf})

	log.With(String("component", "keychain")).Debug("derived key",
		String("operation", "derive_public_key"),
		Int("length", 128),
		Error(errors.New("none")))

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "derived key", record["msg"])
	assert.Equal(t, "DEBUG", record["level"])
	assert.Equal(t, "keychain", record["component"])
	assert.Equal(t, "derive_public_key", record["operation"])
	assert.Equal(t, float64(128), record["length"])
	assert.Equal(t, "none", record["error"])
}

func TestSlogAdapter_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewSlogAdapter(&SlogConfig{Level: LevelWarn, Writer: &buf})

	log.Debug("hidden")
	log.Info("hidden")
	log.Warn("shown")
	log.WithError(errors.New("bad")).Error("also shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "error=bad")
	assert.Equal(t, 2, strings.Count(out, "\n"))
}

func TestSlogAdapter_WithDoesNotDuplicate(t *testing.T) {
	var buf bytes.Buffer
	log := NewSlogAdapter(&SlogConfig{Writer: &buf}).With(String("alias", "Web3Auth"))

	log.Info("stored")
	assert.Equal(t, 1, strings.Count(buf.String(), "alias=Web3Auth"))
}

func TestNoOp(t *testing.T) {
	log := NewNoOp()
	log.Debug("x")
	log.Info("x")
	log.Warn("x")
	log.Error("x")
	assert.NotNil(t, log.With(String("k", "v")))
	assert.NotNil(t, log.WithError(errors.New("e")))
}
