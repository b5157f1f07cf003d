// Package usecase implements the cancellation lifecycle: the scheduled steps that
// export, hand over and finally delete a cancelled tenant's data.
package usecase

import (
	"context"
	"time"

	"github.com/allisson/archivist/internal/batch"
	"github.com/allisson/archivist/internal/cancellation/domain"
)

// CancellationRepository defines cancellation persistence operations.
type CancellationRepository interface {
	Create(ctx context.Context, c *domain.Cancellation) error
	Get(ctx context.Context, tenantID string) (*domain.Cancellation, error)
	List(ctx context.Context, offset, limit int) ([]*domain.Cancellation, error)
	ListPending(ctx context.Context, step domain.Step, at time.Time, limit int) ([]*domain.Cancellation, error)
	MarkStep(ctx context.Context, tenantID string, step domain.Step, at time.Time) error
	SetCSVCreated(ctx context.Context, tenantID string, export domain.CSVExport, at time.Time) error
	SetCSVFailed(ctx context.Context, tenantID, message string, at time.Time) error
	SetDownloadLinkRequested(ctx context.Context, tenantID, userID string, at time.Time) error
}

// CreateCancellationInput contains the data needed to cancel a tenant.
type CreateCancellationInput struct {
	TenantID         string
	CancellationDate time.Time
}

// CancellationUseCase defines the cancellation business logic.
type CancellationUseCase interface {
	// Create registers a cancellation. Repeating it for a tenant returns the
	// existing cancellation unmodified.
	Create(ctx context.Context, input CreateCancellationInput) (*domain.Cancellation, error)

	// Get returns the cancellation of a tenant.
	Get(ctx context.Context, tenantID string) (*domain.Cancellation, error)

	// List returns cancellations ordered by cancellation date.
	List(ctx context.Context, offset, limit int) ([]*domain.Cancellation, error)

	// RequestDownloadLink presigns the export file. The first request is recorded
	// together with the requesting user.
	RequestDownloadLink(ctx context.Context, tenantID, userID string) (string, error)

	// TriggerDownloads marks cancellations whose final deletion is within the lead time.
	TriggerDownloads(ctx context.Context) (batch.Result, error)

	// ArchiveTenants moves the short-term records of tenants past the dwell time
	// into the long-term archive.
	ArchiveTenants(ctx context.Context) (batch.Result, error)

	// CreateCSVs exports and uploads the archive of every fully archived tenant.
	CreateCSVs(ctx context.Context) (batch.Result, error)

	// RemoveDirectoryEntries removes cancelled tenants from the directory.
	RemoveDirectoryEntries(ctx context.Context) (batch.Result, error)

	// DeleteExpiredData irreversibly deletes the archive and export of tenants past final deletion.
	DeleteExpiredData(ctx context.Context) (batch.Result, error)
}
