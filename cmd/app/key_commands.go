package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/echocipher/carrier/cmd/app/commands"
	"github.com/echocipher/carrier/internal/app"
	"github.com/echocipher/carrier/internal/config"
	keyvaultService "github.com/echocipher/carrier/internal/keyvault/service"
)

func scopeFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "scope",
		Aliases:  []string{"s"},
		Required: true,
		Usage:    "Key scope: a user id, or 'system' for the fallback key",
	}
}

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-protection-key",
			Usage: "Generate the key that protects master keys at rest (DB_ENCRYPTION_KEY)",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "kms-provider",
					Usage: "KMS provider (localsecrets, gcpkms, awskms, azurekeyvault, hashivault)",
				},
				&cli.StringFlag{
					Name:  "kms-key-uri",
					Usage: "KMS key URI (e.g., base64key://, gcpkms://projects/.../cryptoKeys/...)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunCreateProtectionKey(
					ctx,
					keyvaultService.NewKMSService(),
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("kms-provider"),
					cmd.String("kms-key-uri"),
				)
			},
		},
		{
			Name:  "generate-key",
			Usage: "Create the first active master key of a scope",
			Flags: []cli.Flag{scopeFlag(), formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				vault, err := container.VaultUseCase()
				if err != nil {
					return err
				}

				return commands.RunGenerateKey(
					ctx,
					vault,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("scope"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "rotate-key",
			Usage: "Rotate the active master key of a scope to a new version",
			Flags: []cli.Flag{scopeFlag(), formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				vault, err := container.VaultUseCase()
				if err != nil {
					return err
				}

				return commands.RunRotateKey(
					ctx,
					vault,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("scope"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "list-keys",
			Usage: "List every master key version of a scope",
			Flags: []cli.Flag{scopeFlag(), formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				vault, err := container.VaultUseCase()
				if err != nil {
					return err
				}

				return commands.RunListKeys(
					ctx,
					vault,
					commands.DefaultIO().Writer,
					cmd.String("scope"),
					cmd.String("format"),
				)
			},
		},
	}
}
