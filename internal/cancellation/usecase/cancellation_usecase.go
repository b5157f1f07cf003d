package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	validation "github.com/jellydator/validation"

	archiveDomain "github.com/allisson/archivist/internal/archive/domain"
	archiveUsecase "github.com/allisson/archivist/internal/archive/usecase"
	"github.com/allisson/archivist/internal/batch"
	"github.com/allisson/archivist/internal/cancellation/domain"
	"github.com/allisson/archivist/internal/directory"
	"github.com/allisson/archivist/internal/export"
	"github.com/allisson/archivist/internal/storage"
	appValidation "github.com/allisson/archivist/internal/validation"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000

	// maxFailureMessage bounds the stored export failure message in bytes.
	maxFailureMessage = 1024
)

// ArchiveService is the part of the archive migrator the lifecycle drives.
type ArchiveService interface {
	MigrateTenant(ctx context.Context, tenantID string) (batch.Result, error)
	StreamTenant(ctx context.Context, tenantID string, fn archiveUsecase.RecordFunc) (int, error)
	DeleteTenant(ctx context.Context, tenantID string) (int64, error)
}

// Config holds the retention windows and batching limits of the lifecycle.
type Config struct {
	// Retention is the time between cancellation date and final deletion.
	Retention time.Duration
	// TriggerLead is how long before final deletion the download is requested.
	TriggerLead time.Duration
	// Dwell is the time between download request and archive migration.
	Dwell time.Duration
	// LinkExpiry is the lifetime of presigned download links.
	LinkExpiry time.Duration
	Bucket     string
	TempDir    string
	BatchSize  int
	MaxBatches int
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// cancellationUseCase implements CancellationUseCase.
type cancellationUseCase struct {
	repo      CancellationRepository
	archive   ArchiveService
	storage   storage.ObjectStorage
	directory directory.Remover
	cfg       Config
	logger    *slog.Logger
}

// Create validates input and stores a new cancellation unless one exists.
func (c *cancellationUseCase) Create(
	ctx context.Context,
	input CreateCancellationInput,
) (*domain.Cancellation, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	existing, err := c.repo.Get(ctx, input.TenantID)
	if err == nil {
		c.logger.Info("cancellation already exists", slog.String("tenant_id", input.TenantID))
		return existing, nil
	}
	if !errors.Is(err, domain.ErrCancellationNotFound) {
		return nil, err
	}

	cancellation := domain.New(input.TenantID, input.CancellationDate, c.cfg.Retention, c.cfg.Now())
	if err := c.repo.Create(ctx, cancellation); err != nil {
		if errors.Is(err, domain.ErrCancellationAlreadyExists) {
			// Lost a race with a concurrent create.
			return c.repo.Get(ctx, input.TenantID)
		}
		return nil, err
	}

	c.logger.Info("cancellation created",
		slog.String("tenant_id", cancellation.TenantID),
		slog.Time("cancellation_date", cancellation.CancellationDate),
		slog.Time("final_deletion", cancellation.FinalDeletion),
	)
	return cancellation, nil
}

func validateCreateInput(input CreateCancellationInput) error {
	err := validation.ValidateStruct(&input,
		validation.Field(&input.TenantID,
			validation.Required.Error("tenant id is required"),
			appValidation.NotBlank,
			appValidation.SafeIdentifier,
			validation.Length(1, 255).Error("tenant id must be between 1 and 255 characters"),
		),
		validation.Field(&input.CancellationDate, appValidation.NotZeroTime),
	)
	return appValidation.WrapValidationError(err)
}

// Get returns the cancellation of tenantID.
func (c *cancellationUseCase) Get(ctx context.Context, tenantID string) (*domain.Cancellation, error) {
	return c.repo.Get(ctx, tenantID)
}

// List returns a page of cancellations.
func (c *cancellationUseCase) List(ctx context.Context, offset, limit int) ([]*domain.Cancellation, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return c.repo.List(ctx, offset, limit)
}

// RequestDownloadLink presigns the export of tenantID and stamps the first request.
func (c *cancellationUseCase) RequestDownloadLink(ctx context.Context, tenantID, userID string) (string, error) {
	cancellation, err := c.repo.Get(ctx, tenantID)
	if err != nil {
		return "", err
	}
	if cancellation.CsvCreated == nil || cancellation.DataDeleted != nil || cancellation.BucketObjectID == "" {
		return "", domain.ErrCSVNotReady
	}

	link, err := c.storage.Presign(ctx, c.cfg.Bucket, cancellation.BucketObjectID, c.cfg.LinkExpiry)
	if err != nil {
		return "", fmt.Errorf("failed to presign export: %w", err)
	}

	if cancellation.DownloadLinkRequested == nil {
		err := c.repo.SetDownloadLinkRequested(ctx, tenantID, userID, c.cfg.Now())
		if err != nil && !errors.Is(err, domain.ErrStepNotAllowed) {
			return "", err
		}
	}

	c.logger.Info("download link issued",
		slog.String("tenant_id", tenantID),
		slog.String("user_id", userID),
		slog.Duration("expiry", c.cfg.LinkExpiry),
	)
	return link, nil
}

// TriggerDownloads stamps DownloadRequested once final deletion is within the lead time.
func (c *cancellationUseCase) TriggerDownloads(ctx context.Context) (batch.Result, error) {
	return c.drain(ctx, "trigger_download", domain.StepDownloadRequested,
		c.cfg.Now().Add(c.cfg.TriggerLead),
		func(ctx context.Context, cancellation *domain.Cancellation) error {
			return c.repo.MarkStep(ctx, cancellation.TenantID, domain.StepDownloadRequested, c.cfg.Now())
		},
	)
}

// ArchiveTenants migrates every remaining short-term record of a tenant, then stamps
// MovedToLongtermArchive. A partial migration leaves the step open for the next run.
func (c *cancellationUseCase) ArchiveTenants(ctx context.Context) (batch.Result, error) {
	return c.drain(ctx, "archive_tenants", domain.StepMovedToLongterm,
		c.cfg.Now().Add(-c.cfg.Dwell),
		func(ctx context.Context, cancellation *domain.Cancellation) error {
			result, err := c.archive.MigrateTenant(ctx, cancellation.TenantID)
			if err != nil {
				return err
			}
			if result.Failed > 0 || result.Truncated {
				return fmt.Errorf("%w: %d records failed, truncated=%t",
					domain.ErrArchiveIncomplete, result.Failed, result.Truncated)
			}
			return c.repo.MarkStep(ctx, cancellation.TenantID, domain.StepMovedToLongterm, c.cfg.Now())
		},
	)
}

// CreateCSVs exports each fully archived tenant. Failures are stored on the row and retried next run.
func (c *cancellationUseCase) CreateCSVs(ctx context.Context) (batch.Result, error) {
	return c.drain(ctx, "create_csvs", domain.StepCSVCreated, c.cfg.Now(), c.exportCSV)
}

// RemoveDirectoryEntries removes tenants from the directory once their cancellation date has passed.
func (c *cancellationUseCase) RemoveDirectoryEntries(ctx context.Context) (batch.Result, error) {
	return c.drain(ctx, "remove_directory_entries", domain.StepDirectoryEntriesDeleted, c.cfg.Now(),
		func(ctx context.Context, cancellation *domain.Cancellation) error {
			err := c.directory.RemoveEntriesForTenant(ctx, cancellation.TenantID)
			if err != nil {
				if !errors.Is(err, directory.ErrEntriesNotFound) {
					return err
				}
				c.logger.Warn("no directory entries for tenant", slog.String("tenant_id", cancellation.TenantID))
			}
			return c.repo.MarkStep(ctx, cancellation.TenantID, domain.StepDirectoryEntriesDeleted, c.cfg.Now())
		},
	)
}

// DeleteExpiredData deletes the archive rows and export object of each tenant past final deletion.
func (c *cancellationUseCase) DeleteExpiredData(ctx context.Context) (batch.Result, error) {
	return c.drain(ctx, "delete_expired_data", domain.StepDataDeleted, c.cfg.Now(),
		func(ctx context.Context, cancellation *domain.Cancellation) error {
			deleted, err := c.archive.DeleteTenant(ctx, cancellation.TenantID)
			if err != nil {
				return err
			}
			if cancellation.BucketObjectID != "" {
				if err := c.storage.DeleteObject(ctx, c.cfg.Bucket, cancellation.BucketObjectID); err != nil {
					return fmt.Errorf("failed to delete export: %w", err)
				}
			}
			if err := c.repo.MarkStep(ctx, cancellation.TenantID, domain.StepDataDeleted, c.cfg.Now()); err != nil {
				return err
			}

			c.logger.Info("tenant data deleted",
				slog.String("tenant_id", cancellation.TenantID),
				slog.Int64("archive_rows", deleted),
				slog.String("object_id", cancellation.BucketObjectID),
			)
			return nil
		},
	)
}

// exportCSV writes the tenant archive to a temp file while hashing it, then uploads the file.
func (c *cancellationUseCase) exportCSV(ctx context.Context, cancellation *domain.Cancellation) (err error) {
	tenantID := cancellation.TenantID
	defer func() {
		if err != nil {
			c.recordCSVFailure(ctx, tenantID, err)
		}
	}()

	file, err := os.CreateTemp(c.cfg.TempDir, "cancellation-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		_ = file.Close()
		_ = os.Remove(file.Name())
	}()

	digest := export.NewDigestWriter(file)
	writer := export.NewWriter(digest)
	if err := writer.Write(export.ArchiveColumns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	count, err := c.archive.StreamTenant(ctx, tenantID,
		func(record *archiveDomain.ArchivedRecord, payload *archiveDomain.ArchivePayload) error {
			return writer.Write(export.ArchiveRow(record, payload))
		},
	)
	if err != nil {
		return fmt.Errorf("failed to stream archive: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush export: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind export: %w", err)
	}

	csvExport := domain.CSVExport{
		ObjectID:    tenantID + ".csv",
		Hash:        digest.Sum(),
		EntityCount: int64(count),
		Size:        digest.Size(),
	}
	metadata := map[string]string{
		"sha256":         csvExport.Hash,
		"entity-count":   strconv.FormatInt(csvExport.EntityCount, 10),
		"schema-version": strconv.Itoa(export.SchemaVersion),
	}
	if err := c.storage.PutObject(ctx, c.cfg.Bucket, csvExport.ObjectID, file, csvExport.Size, metadata); err != nil {
		return fmt.Errorf("failed to upload export: %w", err)
	}
	if err := c.repo.SetCSVCreated(ctx, tenantID, csvExport, c.cfg.Now()); err != nil {
		return err
	}

	c.logger.Info("cancellation export uploaded",
		slog.String("tenant_id", tenantID),
		slog.String("object_id", csvExport.ObjectID),
		slog.Int64("entities", csvExport.EntityCount),
		slog.String("size", humanize.Bytes(uint64(csvExport.Size))),
		slog.String("sha256", csvExport.Hash),
	)
	return nil
}

func (c *cancellationUseCase) recordCSVFailure(ctx context.Context, tenantID string, cause error) {
	message := truncateMessage(cause.Error(), maxFailureMessage)
	if err := c.repo.SetCSVFailed(ctx, tenantID, message, c.cfg.Now()); err != nil {
		c.logger.Error("failed to record export failure",
			slog.String("tenant_id", tenantID),
			slog.Any("error", err),
		)
	}
}

func (c *cancellationUseCase) drain(
	ctx context.Context,
	name string,
	step domain.Step,
	at time.Time,
	process batch.ProcessFunc[*domain.Cancellation],
) (batch.Result, error) {
	drainer := batch.NewDrainer(batch.Options[*domain.Cancellation]{
		Name:       name,
		BatchSize:  c.cfg.BatchSize,
		MaxBatches: c.cfg.MaxBatches,
		Key:        func(cancellation *domain.Cancellation) string { return cancellation.TenantID },
		Logger:     c.logger,
	})

	result, err := drainer.Drain(
		ctx,
		func(ctx context.Context, limit int) ([]*domain.Cancellation, error) {
			return c.repo.ListPending(ctx, step, at, limit)
		},
		process,
	)
	c.logger.Info("cancellation job finished",
		slog.String("job", name),
		slog.Int("processed", result.Processed),
		slog.Int("failed", result.Failed),
		slog.Bool("truncated", result.Truncated),
	)
	return result, err
}

// NewCancellationUseCase creates a new CancellationUseCase.
func NewCancellationUseCase(
	repo CancellationRepository,
	archive ArchiveService,
	objectStorage storage.ObjectStorage,
	remover directory.Remover,
	cfg Config,
	logger *slog.Logger,
) CancellationUseCase {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	return &cancellationUseCase{
		repo:      repo,
		archive:   archive,
		storage:   objectStorage,
		directory: remover,
		cfg:       cfg,
		logger:    logger,
	}
}

// truncateMessage cuts message to at most limit bytes without splitting a
// character. Invalid sequences are replaced first, since text columns reject them.
func truncateMessage(message string, limit int) string {
	message = strings.ToValidUTF8(message, "\uFFFD")
	if len(message) <= limit {
		return message
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(message[cut]) {
		cut--
	}
	return message[:cut]
}
