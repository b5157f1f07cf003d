// Package scheduler runs periodic jobs on cron schedules. Every run first takes a
// named distributed lock; when another instance holds it the run is skipped.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/allisson/archivist/internal/config"
	apperrors "github.com/allisson/archivist/internal/errors"
	"github.com/allisson/archivist/internal/lock"
	"github.com/allisson/archivist/internal/metrics"
)

const metricsDomain = "scheduler"

// ErrJobNotFound indicates no job is registered under the given name.
var ErrJobNotFound = apperrors.Wrap(apperrors.ErrNotFound, "job not found")

// Job is a named periodic task.
type Job struct {
	Name     string
	Schedule string
	// LockTTL bounds how long a run may hold the job lock.
	LockTTL time.Duration
	Run     func(ctx context.Context) error
}

// Outcome describes what happened to one triggered run.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
	OutcomeSkipped Outcome = "skipped"
)

// Scheduler owns the cron loop and the registered jobs.
type Scheduler struct {
	cron    *cron.Cron
	locker  lock.Locker
	metrics metrics.BusinessMetrics
	logger  *slog.Logger

	mu   sync.Mutex
	jobs map[string]Job

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Scheduler. Schedules use six fields, seconds first, and accept
// descriptors such as @hourly.
func New(locker lock.Locker, businessMetrics metrics.BusinessMetrics, logger *slog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(config.ScheduleParser),
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		locker:  locker,
		metrics: businessMetrics,
		logger:  logger,
		jobs:    make(map[string]Job),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Register adds job to the cron table.
func (s *Scheduler) Register(job Job) error {
	if job.Name == "" || job.Run == nil {
		return fmt.Errorf("%w: job needs a name and a run function", apperrors.ErrInvalidInput)
	}
	if job.LockTTL <= 0 {
		return fmt.Errorf("%w: job %s needs a positive lock ttl", apperrors.ErrInvalidInput, job.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.Name]; ok {
		return fmt.Errorf("%w: job %s already registered", apperrors.ErrConflict, job.Name)
	}

	if _, err := s.cron.AddFunc(job.Schedule, func() {
		_, _ = s.execute(s.ctx, job)
	}); err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", job.Schedule, job.Name, err)
	}
	s.jobs[job.Name] = job
	s.logger.Info("job registered",
		slog.String("job", job.Name),
		slog.String("schedule", job.Schedule),
		slog.Duration("lock_ttl", job.LockTTL),
	)
	return nil
}

// Jobs returns the registered job names in order.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunNow triggers a registered job immediately, under the same lock as scheduled runs.
func (s *Scheduler) RunNow(ctx context.Context, name string) (Outcome, error) {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return "", ErrJobNotFound
	}
	return s.execute(ctx, job)
}

// Start begins firing jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the cron loop, cancels running jobs and waits for them until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	s.cancel()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the scheduler and blocks until ctx is canceled, then stops it.
func (s *Scheduler) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	s.Start()
	s.logger.Info("scheduler started", slog.Any("jobs", s.Jobs()))
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Stop(stopCtx); err != nil {
		return fmt.Errorf("scheduler shutdown: %w", err)
	}
	s.logger.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) execute(ctx context.Context, job Job) (Outcome, error) {
	start := time.Now()

	lease, err := s.locker.TryAcquire(ctx, job.Name, job.LockTTL)
	if err != nil {
		s.logger.Error("failed to acquire job lock", slog.String("job", job.Name), slog.Any("error", err))
		s.record(ctx, job.Name, OutcomeError, start)
		return OutcomeError, err
	}
	if lease == nil {
		s.logger.Debug("job skipped, lock held elsewhere", slog.String("job", job.Name))
		s.metrics.RecordOperation(ctx, metricsDomain, job.Name, string(OutcomeSkipped))
		return OutcomeSkipped, nil
	}
	defer func() {
		// Release on a fresh context so a canceled run still frees its lock.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := lease.Release(releaseCtx); err != nil {
			level := slog.LevelError
			if errors.Is(err, lock.ErrNotHeld) {
				level = slog.LevelWarn
			}
			s.logger.Log(releaseCtx, level, "failed to release job lock",
				slog.String("job", job.Name), slog.Any("error", err))
		}
	}()

	s.logger.Info("job started", slog.String("job", job.Name))
	if err := job.Run(ctx); err != nil {
		s.logger.Error("job failed",
			slog.String("job", job.Name),
			slog.Duration("duration", time.Since(start)),
			slog.Any("error", err),
		)
		s.record(ctx, job.Name, OutcomeError, start)
		return OutcomeError, err
	}

	s.logger.Info("job finished", slog.String("job", job.Name), slog.Duration("duration", time.Since(start)))
	s.record(ctx, job.Name, OutcomeSuccess, start)
	return OutcomeSuccess, nil
}

func (s *Scheduler) record(ctx context.Context, name string, outcome Outcome, start time.Time) {
	s.metrics.RecordOperation(ctx, metricsDomain, name, string(outcome))
	s.metrics.RecordDuration(ctx, metricsDomain, name, time.Since(start), string(outcome))
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.logger.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
