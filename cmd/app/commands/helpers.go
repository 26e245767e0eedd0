// Package commands contains CLI command implementations for the application.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/allisson/scanrelay/internal/app"
)

// Output formats accepted by the reporting commands.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// IOTuple holds reader and writer for commands, allowing for testing.
type IOTuple struct {
	Reader io.Reader
	Writer io.Writer
}

// DefaultIO returns an IOTuple with os.Stdin and os.Stdout.
func DefaultIO() IOTuple {
	return IOTuple{
		Reader: os.Stdin,
		Writer: os.Stdout,
	}
}

// closeContainer closes all resources in the container and logs any errors.
func closeContainer(container *app.Container, logger *slog.Logger) {
	if err := container.Shutdown(context.Background()); err != nil {
		logger.Error("failed to shutdown container", slog.Any("error", err))
	}
}

// validateFormat rejects unknown output formats. allowYAML enables the yaml format.
func validateFormat(format string, allowYAML bool) error {
	switch format {
	case FormatText, FormatJSON:
		return nil
	case FormatYAML:
		if allowYAML {
			return nil
		}
	}
	if allowYAML {
		return fmt.Errorf("invalid format: %s (valid options: text, json, yaml)", format)
	}
	return fmt.Errorf("invalid format: %s (valid options: text, json)", format)
}

// writeJSON writes v as indented JSON followed by a newline.
func writeJSON(writer io.Writer, v any) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(writer, string(jsonBytes))
	return err
}

// writeYAML writes v as a YAML document.
func writeYAML(writer io.Writer, v any) error {
	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return encoder.Close()
}

// parseDate parses "YYYY-MM-DD", "YYYY-MM-DD HH:MM:SS" or RFC 3339 into UTC.
// Empty input yields nil.
func parseDate(dateStr string) (*time.Time, error) {
	if dateStr == "" {
		return nil, nil
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, dateStr); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}

	return nil, fmt.Errorf("invalid date format: %s (expected YYYY-MM-DD, YYYY-MM-DD HH:MM:SS or RFC 3339)", dateStr)
}
