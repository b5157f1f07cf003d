package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/allisson/archivist/internal/config"
	"github.com/allisson/archivist/internal/lock"
	"github.com/allisson/archivist/internal/scheduler"
)

// Job names double as lock names and metric labels.
const (
	JobTriggerDownload   = "trigger-download"
	JobArchiveTenants    = "archive-tenants"
	JobCreateCSVs        = "create-csvs"
	JobRemoveDirectory   = "remove-directory-entries"
	JobDeleteExpiredData = "delete-expired-data"
	JobMigrateArchive    = "migrate-archive"
)

// RedisClient returns the Redis client used by the distributed lock.
func (c *Container) RedisClient() (redis.UniversalClient, error) {
	c.redisClientInit.Do(func() {
		c.redisClient = redis.NewClient(&redis.Options{
			Addr:     c.config.RedisAddr,
			Password: c.config.RedisPassword,
			DB:       c.config.RedisDB,
		})
	})
	return c.redisClient, nil
}

// Locker returns the job lock selected by LOCK_PROVIDER.
func (c *Container) Locker() (lock.Locker, error) {
	var err error
	c.lockerInit.Do(func() {
		c.locker, err = c.initLocker()
		if err != nil {
			c.initErrors["locker"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["locker"]; exists {
		return nil, storedErr
	}
	return c.locker, nil
}

// Scheduler returns the cron scheduler with every enabled job registered.
func (c *Container) Scheduler() (*scheduler.Scheduler, error) {
	var err error
	c.schedulerInit.Do(func() {
		c.scheduler, err = c.initScheduler(false)
		if err != nil {
			c.initErrors["scheduler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["scheduler"]; exists {
		return nil, storedErr
	}
	return c.scheduler, nil
}

// JobRunner returns a scheduler holding every job, enabled or not, for one-off
// runs. It is never started.
func (c *Container) JobRunner() (*scheduler.Scheduler, error) {
	return c.initScheduler(true)
}

// Jobs returns the definitions of every periodic job with its configuration.
func (c *Container) Jobs() ([]scheduler.Job, []config.JobConfig, error) {
	cancellationUseCase, err := c.CancellationUseCase()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get cancellation use case for jobs: %w", err)
	}

	archiveUseCase, err := c.ArchiveUseCase()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get archive use case for jobs: %w", err)
	}

	olderThan := c.config.ArchiveMigrationOlderThan

	jobs := []scheduler.Job{
		{
			Name: JobTriggerDownload,
			Run: func(ctx context.Context) error {
				_, err := cancellationUseCase.TriggerDownloads(ctx)
				return err
			},
		},
		{
			Name: JobArchiveTenants,
			Run: func(ctx context.Context) error {
				_, err := cancellationUseCase.ArchiveTenants(ctx)
				return err
			},
		},
		{
			Name: JobCreateCSVs,
			Run: func(ctx context.Context) error {
				_, err := cancellationUseCase.CreateCSVs(ctx)
				return err
			},
		},
		{
			Name: JobRemoveDirectory,
			Run: func(ctx context.Context) error {
				_, err := cancellationUseCase.RemoveDirectoryEntries(ctx)
				return err
			},
		},
		{
			Name: JobDeleteExpiredData,
			Run: func(ctx context.Context) error {
				_, err := cancellationUseCase.DeleteExpiredData(ctx)
				return err
			},
		},
		{
			Name: JobMigrateArchive,
			Run: func(ctx context.Context) error {
				_, err := archiveUseCase.MigrateEligible(ctx, olderThan)
				return err
			},
		},
	}
	configs := []config.JobConfig{
		c.config.TriggerDownloadJob,
		c.config.ArchiveTenantJob,
		c.config.CSVUploadJob,
		c.config.DirectoryRemovalJob,
		c.config.FinalDeletionJob,
		c.config.ArchiveMigrationJob,
	}
	for i := range jobs {
		jobs[i].Schedule = configs[i].Schedule
		jobs[i].LockTTL = configs[i].LockTTL
	}
	return jobs, configs, nil
}

func (c *Container) initLocker() (lock.Locker, error) {
	switch c.config.LockProvider {
	case config.LockRedis:
		client, err := c.RedisClient()
		if err != nil {
			return nil, err
		}
		return lock.NewRedisLocker(client, c.config.LockKeyPrefix), nil
	case config.LockLocal:
		return lock.NewLocalLocker(), nil
	default:
		return nil, fmt.Errorf("unsupported lock provider: %s", c.config.LockProvider)
	}
}

func (c *Container) initScheduler(includeDisabled bool) (*scheduler.Scheduler, error) {
	locker, err := c.Locker()
	if err != nil {
		return nil, fmt.Errorf("failed to get locker for scheduler: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for scheduler: %w", err)
	}

	jobs, configs, err := c.Jobs()
	if err != nil {
		return nil, err
	}

	logger := c.Logger()
	s := scheduler.New(locker, businessMetrics, logger)
	for i, job := range jobs {
		if !configs[i].Enabled && !includeDisabled {
			logger.Info("job disabled", slog.String("job", job.Name))
			continue
		}
		if err := s.Register(job); err != nil {
			return nil, fmt.Errorf("failed to register job %s: %w", job.Name, err)
		}
	}
	return s, nil
}
