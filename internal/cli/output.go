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
	"encoding/json"
	"fmt"
	"io"

	"github.com/jeremyhahn/go-sessionkey/pkg/health"
)

// OutputFormat defines the output format type
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
)

// Printer handles formatted output
type Printer struct {
	format OutputFormat
	writer io.Writer
}

// NewPrinter creates a new Printer
func NewPrinter(format string, writer io.Writer) *Printer {
	return &Printer{
		format: OutputFormat(format),
		writer: writer,
	}
}

// Validate rejects unknown output formats.
func (p *Printer) Validate() error {
	switch p.format {
	case OutputFormatText, OutputFormatJSON:
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintValue prints a single named value
func (p *Printer) PrintValue(name, value string) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			name: value,
		})
	case OutputFormatText:
		fmt.Fprintln(p.writer, value)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintPreference prints a preference key and its value
func (p *Printer) PrintPreference(key, value string, found bool) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"key":   key,
			"value": value,
			"found": found,
		})
	case OutputFormatText:
		fmt.Fprintln(p.writer, value)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintKeyList prints a list of preference keys
func (p *Printer) PrintKeyList(keys []string) error {
	switch p.format {
	case OutputFormatJSON:
		if keys == nil {
			keys = []string{}
		}
		return p.printJSON(map[string]interface{}{
			"keys": keys,
		})
	case OutputFormatText:
		if len(keys) == 0 {
			fmt.Fprintln(p.writer, "No preferences found")
			return nil
		}
		for _, k := range keys {
			fmt.Fprintln(p.writer, k)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintSignature prints a hex DER signature
func (p *Printer) PrintSignature(signature, layout string) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"signature": signature,
			"layout":    layout,
		})
	case OutputFormatText:
		fmt.Fprintln(p.writer, signature)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintVerification prints the result of a signature check
func (p *Printer) PrintVerification(valid bool) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"valid": valid,
		})
	case OutputFormatText:
		if valid {
			fmt.Fprintln(p.writer, "Signature is valid")
		} else {
			fmt.Fprintln(p.writer, "Signature is NOT valid")
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintHealth prints health check results
func (p *Printer) PrintHealth(status health.Status, results []health.CheckResult) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"status": status,
			"checks": results,
		})
	case OutputFormatText:
		fmt.Fprintf(p.writer, "Status: %s\n", status)
		for _, r := range results {
			detail := r.Message
			if r.Error != "" {
				detail = r.Error
			}
			fmt.Fprintf(p.writer, "  %-20s %-10s %s\n", r.Name, r.Status, detail)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintSuccess prints a success message
func (p *Printer) PrintSuccess(message string) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"status":  "success",
			"message": message,
		})
	case OutputFormatText:
		fmt.Fprintln(p.writer, message)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintError prints an error message
func (p *Printer) PrintError(err error) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		})
	default:
		fmt.Fprintf(p.writer, "Error: %v\n", err)
		return nil
	}
}

// printJSON prints data as JSON
func (p *Printer) printJSON(data interface{}) error {
	encoder := json.NewEncoder(p.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
