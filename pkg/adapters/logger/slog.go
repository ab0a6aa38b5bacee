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
	"context"
	"io"
	"log/slog"
	"os"
)

// SlogAdapter wraps a slog.Logger to implement the Logger interface
type SlogAdapter struct {
	logger *slog.Logger
}

var _ Logger = (*SlogAdapter)(nil)

// SlogConfig configures the slog adapter
type SlogConfig struct {
	// Logger is the underlying slog logger.
	// If set, the remaining fields are ignored.
	Logger *slog.Logger

	// Level is the minimum log level to output
	Level Level

	// Format selects the text or JSON handler. Defaults to text.
	Format Format

	// Writer receives log output. Defaults to os.Stderr.
	Writer io.Writer

	// AddSource adds source code position to log records
	AddSource bool
}

// NewSlogAdapter creates a new slog adapter
func NewSlogAdapter(config *SlogConfig) *SlogAdapter {
	if config == nil {
		config = &SlogConfig{}
	}

	if config.Logger != nil {
		return &SlogAdapter{logger: config.Logger}
	}

	w := config.Writer
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level:     levelToSlogLevel(config.Level),
		AddSource: config.AddSource,
	}

	var handler slog.Handler
	if config.Format == FormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return &SlogAdapter{logger: slog.New(handler)}
}

// Debug logs a debug message
func (l *SlogAdapter) Debug(msg string, fields ...Field) {
	l.log(slog.LevelDebug, msg, fields)
}

// Info logs an informational message
func (l *SlogAdapter) Info(msg string, fields ...Field) {
	l.log(slog.LevelInfo, msg, fields)
}

// Warn logs a warning message
func (l *SlogAdapter) Warn(msg string, fields ...Field) {
	l.log(slog.LevelWarn, msg, fields)
}

// Error logs an error message
func (l *SlogAdapter) Error(msg string, fields ...Field) {
	l.log(slog.LevelError, msg, fields)
}

// With creates a child logger with the given fields
func (l *SlogAdapter) With(fields ...Field) Logger {
	return &SlogAdapter{logger: l.logger.With(attrsToAny(toAttrs(fields))...)}
}

// WithError creates a child logger with an error field
func (l *SlogAdapter) WithError(err error) Logger {
	return l.With(Error(err))
}

func (l *SlogAdapter) log(level slog.Level, msg string, fields []Field) {
	ctx := context.Background()
	if !l.logger.Enabled(ctx, level) {
		return
	}
	l.logger.LogAttrs(ctx, level, msg, toAttrs(fields)...)
}

func toAttrs(fields []Field) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(fields))
	for _, f := range fields {
		attrs = append(attrs, fieldToAttr(f))
	}
	return attrs
}

// fieldToAttr converts a Field to slog.Attr
func fieldToAttr(field Field) slog.Attr {
	switch v := field.Value.(type) {
	case string:
		return slog.String(field.Key, v)
	case int:
		return slog.Int(field.Key, v)
	case float64:
		return slog.Float64(field.Key, v)
	case bool:
		return slog.Bool(field.Key, v)
	case error:
		if v == nil {
			return slog.Any(field.Key, nil)
		}
		return slog.String(field.Key, v.Error())
	default:
		return slog.Any(field.Key, v)
	}
}

// attrsToAny converts slog.Attr slice to []any for With method
func attrsToAny(attrs []slog.Attr) []any {
	result := make([]any, len(attrs))
	for i, attr := range attrs {
		result[i] = attr
	}
	return result
}

// levelToSlogLevel converts our Level to slog.Level
func levelToSlogLevel(level Level) slog.Level {
	switch level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
