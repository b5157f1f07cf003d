package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v3"

	"github.com/allisson/archivist/cmd/app/commands"
	"github.com/allisson/archivist/internal/app"
	"github.com/allisson/archivist/internal/config"
)

const workerShutdownTimeout = 30 * time.Second

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "worker",
			Usage: "Run the job scheduler with the health and metrics server",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				gin.SetMode(cfg.GetGinMode())

				container := app.NewContainer(cfg)
				logger := container.Logger()
				logger.Info("starting worker", slog.String("version", version))
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), workerShutdownTimeout)
					defer cancel()
					if err := container.Shutdown(shutdownCtx); err != nil {
						logger.Error("failed to shutdown container", slog.Any("error", err))
					}
				}()

				jobScheduler, err := container.Scheduler()
				if err != nil {
					return fmt.Errorf("failed to initialize scheduler: %w", err)
				}
				server, err := container.HTTPServer()
				if err != nil {
					return fmt.Errorf("failed to initialize http server: %w", err)
				}

				return commands.RunWorker(ctx, jobScheduler, server, logger, workerShutdownTimeout)
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
			Name:  "run-job",
			Usage: "Run one scheduled job immediately, even when it is disabled",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "name",
					Aliases:  []string{"n"},
					Required: true,
					Usage:    "Job name (e.g., trigger-download, delete-expired-data)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				runner, err := container.JobRunner()
				if err != nil {
					return err
				}

				return commands.RunJob(
					ctx,
					runner,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("name"),
				)
			},
		},
	}
}
