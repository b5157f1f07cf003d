package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

// JobScheduler runs the periodic jobs until its context ends.
type JobScheduler interface {
	Run(ctx context.Context, shutdownTimeout time.Duration) error
}

// OperationalServer serves health and metrics endpoints.
type OperationalServer interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// RunWorker runs the job scheduler next to the health and metrics server.
// It blocks until SIGINT/SIGTERM, ctx cancellation or the first component failure,
// then stops both within shutdownTimeout. Running jobs see their context canceled.
func RunWorker(
	ctx context.Context,
	jobScheduler JobScheduler,
	server OperationalServer,
	logger *slog.Logger,
	shutdownTimeout time.Duration,
) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return jobScheduler.Run(gctx, shutdownTimeout)
	})

	g.Go(func() error {
		if err := server.Start(gctx); err != nil {
			return fmt.Errorf("operational server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("operational server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("worker stopped with error", slog.Any("error", err))
		return err
	}

	logger.Info("worker stopped")
	return nil
}
