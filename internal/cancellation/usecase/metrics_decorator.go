package usecase

import (
	"context"
	"time"

	"github.com/allisson/archivist/internal/batch"
	"github.com/allisson/archivist/internal/cancellation/domain"
	"github.com/allisson/archivist/internal/metrics"
)

const metricsDomain = "cancellation"

// cancellationUseCaseWithMetrics decorates CancellationUseCase with metrics instrumentation.
type cancellationUseCaseWithMetrics struct {
	next    CancellationUseCase
	metrics metrics.BusinessMetrics
}

// NewCancellationUseCaseWithMetrics wraps a CancellationUseCase with metrics recording.
func NewCancellationUseCaseWithMetrics(useCase CancellationUseCase, m metrics.BusinessMetrics) CancellationUseCase {
	return &cancellationUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Create records metrics for cancellation creation.
func (c *cancellationUseCaseWithMetrics) Create(
	ctx context.Context,
	input CreateCancellationInput,
) (*domain.Cancellation, error) {
	start := time.Now()
	cancellation, err := c.next.Create(ctx, input)
	c.record(ctx, "create", start, err)
	return cancellation, err
}

func (c *cancellationUseCaseWithMetrics) Get(ctx context.Context, tenantID string) (*domain.Cancellation, error) {
	return c.next.Get(ctx, tenantID)
}

func (c *cancellationUseCaseWithMetrics) List(
	ctx context.Context,
	offset, limit int,
) ([]*domain.Cancellation, error) {
	return c.next.List(ctx, offset, limit)
}

// RequestDownloadLink records metrics for issued download links.
func (c *cancellationUseCaseWithMetrics) RequestDownloadLink(
	ctx context.Context,
	tenantID, userID string,
) (string, error) {
	start := time.Now()
	link, err := c.next.RequestDownloadLink(ctx, tenantID, userID)
	c.record(ctx, "request_download_link", start, err)
	return link, err
}

func (c *cancellationUseCaseWithMetrics) TriggerDownloads(ctx context.Context) (batch.Result, error) {
	return c.drain(ctx, "trigger_download", c.next.TriggerDownloads)
}

func (c *cancellationUseCaseWithMetrics) ArchiveTenants(ctx context.Context) (batch.Result, error) {
	return c.drain(ctx, "archive_tenants", c.next.ArchiveTenants)
}

func (c *cancellationUseCaseWithMetrics) CreateCSVs(ctx context.Context) (batch.Result, error) {
	return c.drain(ctx, "create_csvs", c.next.CreateCSVs)
}

func (c *cancellationUseCaseWithMetrics) RemoveDirectoryEntries(ctx context.Context) (batch.Result, error) {
	return c.drain(ctx, "remove_directory_entries", c.next.RemoveDirectoryEntries)
}

func (c *cancellationUseCaseWithMetrics) DeleteExpiredData(ctx context.Context) (batch.Result, error) {
	return c.drain(ctx, "delete_expired_data", c.next.DeleteExpiredData)
}

func (c *cancellationUseCaseWithMetrics) drain(
	ctx context.Context,
	operation string,
	run func(context.Context) (batch.Result, error),
) (batch.Result, error) {
	start := time.Now()
	result, err := run(ctx)
	c.record(ctx, operation, start, err)
	c.metrics.RecordItems(ctx, metricsDomain, operation, "processed", result.Processed)
	c.metrics.RecordItems(ctx, metricsDomain, operation, "failed", result.Failed)
	return result, err
}

func (c *cancellationUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordOperation(ctx, metricsDomain, operation, status)
	c.metrics.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)
}
