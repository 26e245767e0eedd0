package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/scanrelay/cmd/app/commands"
	"github.com/allisson/scanrelay/internal/app"
	"github.com/allisson/scanrelay/internal/config"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "server",
			Usage: "Start the event pipeline, the API server and the metrics server",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunServer(ctx, version)
			},
		},
		{
			Name:  "migrate",
			Usage: "Create or upgrade the buffer_entries schema",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "driver",
					Usage: "Database driver (sqlite, postgres or mysql); defaults to DB_DRIVER",
				},
				&cli.StringFlag{
					Name:  "dsn",
					Usage: "Connection string; defaults to DB_CONNECTION_STRING",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				if driver := cmd.String("driver"); driver != "" {
					cfg.DBDriver = driver
				}
				if dsn := cmd.String("dsn"); dsn != "" {
					cfg.DBConnectionString = dsn
				}

				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunMigrations(container.Logger(), cfg.DBDriver, cfg.DBConnectionString)
			},
		},
	}
}
