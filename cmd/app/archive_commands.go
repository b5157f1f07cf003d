package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/archivist/cmd/app/commands"
	"github.com/allisson/archivist/internal/app"
	"github.com/allisson/archivist/internal/config"
)

func getArchiveCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "migrate-archive",
			Usage: "Move short-term records older than a threshold into the archive",
			Flags: []cli.Flag{
				&cli.DurationFlag{
					Name:    "older-than",
					Aliases: []string{"o"},
					Usage:   "Minimum record age (e.g., 720h), defaults to ARCHIVE_MIGRATION_OLDER_THAN_HOURS",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				archiveUseCase, err := container.ArchiveUseCase()
				if err != nil {
					return err
				}

				olderThan := cmd.Duration("older-than")
				if olderThan == 0 {
					olderThan = cfg.ArchiveMigrationOlderThan
				}

				return commands.RunMigrateArchive(
					ctx,
					archiveUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					olderThan,
				)
			},
		},
		{
			Name:  "migrate-tenant",
			Usage: "Move every short-term record of a tenant into the archive",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "tenant",
					Aliases:  []string{"t"},
					Required: true,
					Usage:    "Tenant ID",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				archiveUseCase, err := container.ArchiveUseCase()
				if err != nil {
					return err
				}

				return commands.RunMigrateTenant(
					ctx,
					archiveUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("tenant"),
				)
			},
		},
		{
			Name:  "archive-lookup",
			Usage: "Decrypt archived records by hashed GUID or by birthday and surname",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "guid",
					Aliases: []string{"g"},
					Usage:   "Hashed GUID of the record",
				},
				&cli.StringFlag{
					Name:    "birthday",
					Aliases: []string{"b"},
					Usage:   "Birthday in YYYY-MM-DD format",
				},
				&cli.StringFlag{
					Name:    "surname",
					Aliases: []string{"s"},
					Usage:   "Surname as stored on the record",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				archiveUseCase, err := container.ArchiveUseCase()
				if err != nil {
					return err
				}

				return commands.RunArchiveLookup(
					ctx,
					archiveUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("guid"),
					cmd.String("birthday"),
					cmd.String("surname"),
				)
			},
		},
		{
			Name:  "create-keystore-entry",
			Usage: "Generate an RSA key for the keystore custody backend",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "alias",
					Aliases:  []string{"a"},
					Required: true,
					Usage:    "Entry alias, must start with CUSTODY_KEYSTORE_ALIAS_PREFIX (e.g., archive-2026)",
				},
				&cli.IntFlag{
					Name:  "bits",
					Value: 4096,
					Usage: "RSA key size in bits",
				},
				&cli.StringFlag{
					Name:    "output",
					Aliases: []string{"o"},
					Usage:   "Keystore file to append to (omit to print the PEM block)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)

				return commands.RunCreateKeystoreEntry(
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("alias"),
					int(cmd.Int("bits")),
					cmd.String("output"),
				)
			},
		},
	}
}
