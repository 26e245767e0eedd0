package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/scanrelay/cmd/app/commands"
	"github.com/allisson/scanrelay/internal/app"
	"github.com/allisson/scanrelay/internal/config"
	"github.com/allisson/scanrelay/internal/pipeline"
)

func formatFlag(usage string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "text",
		Usage:   usage,
	}
}

// withPipeline builds a container for one command and hands its pipeline to fn.
func withPipeline(
	ctx context.Context,
	fn func(p *pipeline.Pipeline, container *app.Container) error,
) error {
	cfg := config.Load()
	container := app.NewContainer(cfg)
	defer func() { _ = container.Shutdown(ctx) }()

	p, err := container.Pipeline(ctx)
	if err != nil {
		return err
	}
	return fn(p, container)
}

func getBufferCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "buffer-stats",
			Usage: "Show durable buffer statistics and synchronization settings",
			Flags: []cli.Flag{
				formatFlag("Output format: 'text', 'json' or 'yaml'"),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withPipeline(ctx, func(p *pipeline.Pipeline, container *app.Container) error {
					return commands.RunBufferStats(
						ctx,
						p,
						container.Logger(),
						commands.DefaultIO().Writer,
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "sync-now",
			Usage: "Synchronize every pending buffer entry with the configured sinks",
			Flags: []cli.Flag{
				formatFlag("Output format: 'text' or 'json'"),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withPipeline(ctx, func(p *pipeline.Pipeline, container *app.Container) error {
					return commands.RunSyncNow(
						ctx,
						p,
						container.Logger(),
						commands.DefaultIO().Writer,
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "purge-synced",
			Usage: "Delete synced buffer entries older than specified hours",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:     "hours",
					Aliases:  []string{"H"},
					Required: true,
					Usage:    "Delete synced entries older than this many hours",
				},
				&cli.BoolFlag{
					Name:    "dry-run",
					Aliases: []string{"n"},
					Value:   false,
					Usage:   "Show how many entries would be deleted without deleting",
				},
				formatFlag("Output format: 'text' or 'json'"),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withPipeline(ctx, func(p *pipeline.Pipeline, container *app.Container) error {
					return commands.RunPurgeSynced(
						ctx,
						p,
						container.Logger(),
						commands.DefaultIO().Writer,
						int(cmd.Int("hours")),
						cmd.Bool("dry-run"),
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "export-buffer",
			Usage: "Export buffer entries for reporting",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "status",
					Aliases: []string{"s"},
					Usage:   "Only export entries with this status (pending, syncing, synced, failed)",
				},
				&cli.StringFlag{
					Name:  "from",
					Usage: "Start date in YYYY-MM-DD or YYYY-MM-DD HH:MM:SS format",
				},
				&cli.StringFlag{
					Name:  "to",
					Usage: "End date in YYYY-MM-DD or YYYY-MM-DD HH:MM:SS format",
				},
				&cli.IntFlag{
					Name:    "limit",
					Aliases: []string{"l"},
					Value:   0,
					Usage:   "Maximum number of entries to export (0 exports all)",
				},
				formatFlag("Output format: 'text', 'json' or 'yaml'"),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withPipeline(ctx, func(p *pipeline.Pipeline, container *app.Container) error {
					return commands.RunExportBuffer(
						ctx,
						p,
						container.Logger(),
						commands.DefaultIO().Writer,
						cmd.String("status"),
						cmd.String("from"),
						cmd.String("to"),
						int(cmd.Int("limit")),
						cmd.String("format"),
					)
				})
			},
		},
	}
}
