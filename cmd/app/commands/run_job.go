package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/allisson/archivist/internal/scheduler"
)

// JobRunner runs a registered job once under its lock.
type JobRunner interface {
	Jobs() []string
	RunNow(ctx context.Context, name string) (scheduler.Outcome, error)
}

// RunJob runs one periodic job immediately. A run skipped because another
// instance holds the job lock is reported but is not an error.
func RunJob(
	ctx context.Context,
	runner JobRunner,
	logger *slog.Logger,
	writer io.Writer,
	name string,
) error {
	jobs := runner.Jobs()
	if !slices.Contains(jobs, name) {
		return fmt.Errorf("unknown job: %s (valid options: %s)", name, strings.Join(jobs, ", "))
	}

	logger.Info("running job", slog.String("job", name))

	outcome, err := runner.RunNow(ctx, name)
	_, _ = fmt.Fprintf(writer, "%s: %s\n", name, outcome)
	if err != nil {
		return fmt.Errorf("job %s failed: %w", name, err)
	}
	return nil
}
