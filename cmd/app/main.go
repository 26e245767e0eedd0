// Package main provides the entry point for the application with CLI commands.
package main

import (
	"context"
	"log/slog"
	"os"
	"slices"

	"github.com/urfave/cli/v3"
)

// Build-time version information (injected via ldflags during build).
var (
	version   = "dev"
	buildDate = "unknown"
	commitSHA = "unknown"
)

func main() {
	cmd := &cli.Command{
		Name:     "scanrelay",
		Usage:    "Durable relay for barcode scans and manufacturing events",
		Version:  version + " (" + commitSHA + ", built " + buildDate + ")",
		Commands: slices.Concat(getSystemCommands(version), getBufferCommands()),
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}
