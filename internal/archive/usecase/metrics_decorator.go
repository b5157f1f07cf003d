package usecase

import (
	"context"
	"time"

	"github.com/allisson/archivist/internal/archive/domain"
	"github.com/allisson/archivist/internal/batch"
	"github.com/allisson/archivist/internal/metrics"
)

const metricsDomain = "archive"

// archiveUseCaseWithMetrics decorates ArchiveUseCase with metrics instrumentation.
type archiveUseCaseWithMetrics struct {
	next    ArchiveUseCase
	metrics metrics.BusinessMetrics
}

// NewArchiveUseCaseWithMetrics wraps an ArchiveUseCase with metrics recording.
func NewArchiveUseCaseWithMetrics(useCase ArchiveUseCase, m metrics.BusinessMetrics) ArchiveUseCase {
	return &archiveUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// MigrateEligible records metrics for age-based migration runs.
func (a *archiveUseCaseWithMetrics) MigrateEligible(
	ctx context.Context,
	olderThan time.Duration,
) (batch.Result, error) {
	start := time.Now()
	result, err := a.next.MigrateEligible(ctx, olderThan)
	a.recordDrain(ctx, "migrate_eligible", start, result, err)
	return result, err
}

// MigrateTenant records metrics for tenant migration runs.
func (a *archiveUseCaseWithMetrics) MigrateTenant(ctx context.Context, tenantID string) (batch.Result, error) {
	start := time.Now()
	result, err := a.next.MigrateTenant(ctx, tenantID)
	a.recordDrain(ctx, "migrate_tenant", start, result, err)
	return result, err
}

// MigrateRecord is not instrumented on its own; drains report item counts.
func (a *archiveUseCaseWithMetrics) MigrateRecord(ctx context.Context, record *domain.ShortTermRecord) error {
	return a.next.MigrateRecord(ctx, record)
}

// GetDecrypted records metrics for archive reads.
func (a *archiveUseCaseWithMetrics) GetDecrypted(
	ctx context.Context,
	hashedGUID string,
) (*domain.ArchivePayload, error) {
	start := time.Now()
	payload, err := a.next.GetDecrypted(ctx, hashedGUID)
	a.record(ctx, "get_decrypted", start, err)
	return payload, err
}

// FindByIdentifier records metrics for identifier lookups.
func (a *archiveUseCaseWithMetrics) FindByIdentifier(
	ctx context.Context,
	birthday time.Time,
	surname string,
) ([]*domain.ArchivePayload, error) {
	start := time.Now()
	payloads, err := a.next.FindByIdentifier(ctx, birthday, surname)
	a.record(ctx, "find_by_identifier", start, err)
	return payloads, err
}

// StreamTenant records metrics for tenant exports.
func (a *archiveUseCaseWithMetrics) StreamTenant(ctx context.Context, tenantID string, fn RecordFunc) (int, error) {
	start := time.Now()
	count, err := a.next.StreamTenant(ctx, tenantID, fn)
	a.record(ctx, "stream_tenant", start, err)
	a.metrics.RecordItems(ctx, metricsDomain, "stream_tenant", "processed", count)
	return count, err
}

// DeleteTenant records metrics for tenant archive deletion.
func (a *archiveUseCaseWithMetrics) DeleteTenant(ctx context.Context, tenantID string) (int64, error) {
	start := time.Now()
	deleted, err := a.next.DeleteTenant(ctx, tenantID)
	a.record(ctx, "delete_tenant", start, err)
	a.metrics.RecordItems(ctx, metricsDomain, "delete_tenant", "processed", int(deleted))
	return deleted, err
}

// CountByTenant is not instrumented.
func (a *archiveUseCaseWithMetrics) CountByTenant(ctx context.Context, tenantID string) (*domain.TenantCount, error) {
	return a.next.CountByTenant(ctx, tenantID)
}

func (a *archiveUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	a.metrics.RecordOperation(ctx, metricsDomain, operation, status)
	a.metrics.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)
}

func (a *archiveUseCaseWithMetrics) recordDrain(
	ctx context.Context,
	operation string,
	start time.Time,
	result batch.Result,
	err error,
) {
	a.record(ctx, operation, start, err)
	a.metrics.RecordItems(ctx, metricsDomain, operation, "processed", result.Processed)
	a.metrics.RecordItems(ctx, metricsDomain, operation, "failed", result.Failed)
}
