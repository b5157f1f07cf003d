// Package batch drains work queues backed by repository queries in bounded batches.
package batch

import (
	"context"
	"log/slog"
)

// Result summarizes one drain run.
type Result struct {
	Processed int
	Failed    int
	Batches   int
	// Truncated reports that the run stopped at MaxBatches with work possibly left.
	Truncated bool
}

// Options configures a Drainer.
type Options[T any] struct {
	Name       string
	BatchSize  int
	MaxBatches int
	// Key identifies an item across fetches so failed items are not retried in the same run.
	Key    func(T) string
	Logger *slog.Logger
}

// FetchFunc returns up to limit items still awaiting processing.
type FetchFunc[T any] func(ctx context.Context, limit int) ([]T, error)

// ProcessFunc handles one item. A successful call must make the item ineligible
// for the next fetch.
type ProcessFunc[T any] func(ctx context.Context, item T) error

// Drainer repeatedly fetches and processes items until the source is empty.
// Items that fail are logged and skipped for the rest of the run, so a single
// poisoned item cannot stall the queue.
type Drainer[T any] struct {
	opts Options[T]
}

// NewDrainer creates a Drainer. Non-positive sizes fall back to 100 items and 10000 batches.
func NewDrainer[T any](opts Options[T]) *Drainer[T] {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.MaxBatches <= 0 {
		opts.MaxBatches = 10000
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Drainer[T]{opts: opts}
}

// Drain runs until a fetch yields nothing new, MaxBatches is reached or ctx is done.
// Fetch errors abort the run; process errors do not.
func (d *Drainer[T]) Drain(ctx context.Context, fetch FetchFunc[T], process ProcessFunc[T]) (Result, error) {
	var result Result
	failed := make(map[string]struct{})

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if result.Batches >= d.opts.MaxBatches {
			result.Truncated = true
			d.opts.Logger.Warn("drain stopped at batch limit",
				slog.String("drain", d.opts.Name),
				slog.Int("max_batches", d.opts.MaxBatches),
				slog.Int("processed", result.Processed),
			)
			return result, nil
		}

		// Failed items stay eligible, so widen the window to let new ones through.
		items, err := fetch(ctx, d.opts.BatchSize+len(failed))
		if err != nil {
			return result, err
		}

		fresh := 0
		for _, item := range items {
			key := d.opts.Key(item)
			if _, skip := failed[key]; skip {
				continue
			}
			fresh++

			if err := process(ctx, item); err != nil {
				failed[key] = struct{}{}
				result.Failed++
				d.opts.Logger.Error("failed to process item",
					slog.String("drain", d.opts.Name),
					slog.String("key", key),
					slog.Any("error", err),
				)
				if ctx.Err() != nil {
					return result, ctx.Err()
				}
				continue
			}
			result.Processed++
		}

		if fresh == 0 {
			return result, nil
		}
		result.Batches++
	}
}
