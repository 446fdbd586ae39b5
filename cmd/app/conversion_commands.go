package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/echocipher/carrier/cmd/app/commands"
	"github.com/echocipher/carrier/internal/app"
	"github.com/echocipher/carrier/internal/config"
)

func getConversionCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "list-conversions",
			Usage: "List the conversions of a user, newest first",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "user",
					Aliases:  []string{"u"},
					Required: true,
					Usage:    "User id",
				},
				&cli.StringFlag{
					Name:  "status",
					Usage: "Filter by status (pending, processing, completed, failed)",
				},
				&cli.IntFlag{
					Name:    "limit",
					Aliases: []string{"l"},
					Value:   50,
					Usage:   "Maximum number of conversions to show",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				ledger, err := container.LedgerUseCase()
				if err != nil {
					return err
				}

				return commands.RunListConversions(
					ctx,
					ledger,
					commands.DefaultIO().Writer,
					cmd.String("user"),
					cmd.String("status"),
					int(cmd.Int("limit")),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "conversion-stats",
			Usage: "Show conversion counts per status",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "user",
					Aliases: []string{"u"},
					Usage:   "User id (omit for every user)",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				ledger, err := container.LedgerUseCase()
				if err != nil {
					return err
				}

				return commands.RunConversionStats(
					ctx,
					ledger,
					commands.DefaultIO().Writer,
					cmd.String("user"),
					cmd.String("format"),
				)
			},
		},
	}
}
