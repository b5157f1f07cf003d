package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/archivist/cmd/app/commands"
	"github.com/allisson/archivist/internal/app"
)

func getCancellationCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-cancellation",
			Usage: "Register a tenant cancellation",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "tenant",
					Aliases:  []string{"t"},
					Required: true,
					Usage:    "Tenant ID",
				},
				&cli.StringFlag{
					Name:     "date",
					Aliases:  []string{"d"},
					Required: true,
					Usage:    "Cancellation date in YYYY-MM-DD or YYYY-MM-DD HH:MM:SS format (UTC)",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				cancellationUseCase, err := container.CancellationUseCase()
				if err != nil {
					return err
				}

				return commands.RunCreateCancellation(
					ctx,
					cancellationUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("tenant"),
					cmd.String("date"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "get-cancellation",
			Usage: "Show the lifecycle state of a tenant cancellation",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "tenant",
					Aliases:  []string{"t"},
					Required: true,
					Usage:    "Tenant ID",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				cancellationUseCase, err := container.CancellationUseCase()
				if err != nil {
					return err
				}

				return commands.RunGetCancellation(
					ctx,
					cancellationUseCase,
					commands.DefaultIO().Writer,
					cmd.String("tenant"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "list-cancellations",
			Usage: "List tenant cancellations ordered by cancellation date",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "offset",
					Value: 0,
					Usage: "Number of cancellations to skip",
				},
				&cli.IntFlag{
					Name:    "limit",
					Aliases: []string{"l"},
					Value:   50,
					Usage:   "Maximum number of cancellations to list",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				cancellationUseCase, err := container.CancellationUseCase()
				if err != nil {
					return err
				}

				return commands.RunListCancellations(
					ctx,
					cancellationUseCase,
					commands.DefaultIO().Writer,
					int(cmd.Int("offset")),
					int(cmd.Int("limit")),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "request-download-link",
			Usage: "Create a presigned download link for a tenant's CSV export",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "tenant",
					Aliases:  []string{"t"},
					Required: true,
					Usage:    "Tenant ID",
				},
				&cli.StringFlag{
					Name:     "user",
					Aliases:  []string{"u"},
					Required: true,
					Usage:    "ID of the user requesting the link",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				cancellationUseCase, err := container.CancellationUseCase()
				if err != nil {
					return err
				}

				return commands.RunRequestDownloadLink(
					ctx,
					cancellationUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("tenant"),
					cmd.String("user"),
				)
			},
		},
	}
}
