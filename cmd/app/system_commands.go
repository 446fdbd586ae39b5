package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/echocipher/carrier/cmd/app/commands"
	"github.com/echocipher/carrier/internal/app"
	"github.com/echocipher/carrier/internal/config"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "server",
			Usage: "Start the HTTP server",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunServer(ctx, version)
			},
		},
		{
			Name:  "migrate",
			Usage: "Run database migrations",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunMigrations(container.Logger(), cfg.DBDriver, cfg.DBConnectionString)
			},
		},
		{
			Name:  "clean-uploads",
			Usage: "Remove spooled uploads left behind by interrupted encodes",
			Flags: []cli.Flag{
				&cli.DurationFlag{
					Name:    "max-age",
					Aliases: []string{"a"},
					Value:   24 * time.Hour,
					Usage:   "Remove uploads older than this duration",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				uploads, err := container.UploadStore()
				if err != nil {
					return err
				}

				return commands.RunCleanUploads(
					uploads,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.Duration("max-age"),
				)
			},
		},
	}
}
