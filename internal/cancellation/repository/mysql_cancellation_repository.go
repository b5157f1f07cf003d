package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/allisson/archivist/internal/cancellation/domain"
	"github.com/allisson/archivist/internal/database"
	apperrors "github.com/allisson/archivist/internal/errors"
)

// MySQLCancellationRepository implements Cancellation persistence for MySQL.
type MySQLCancellationRepository struct {
	db *sql.DB
}

// Create inserts c. An existing row for the tenant is left untouched and
// ErrCancellationAlreadyExists is returned.
func (m *MySQLCancellationRepository) Create(ctx context.Context, c *domain.Cancellation) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO cancellations (` + cancellationColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			  ON DUPLICATE KEY UPDATE tenant_id = tenant_id`

	result, err := querier.ExecContext(
		ctx,
		query,
		c.TenantID,
		c.CancellationDate,
		c.FinalDeletion,
		nullTime(c.DownloadRequested),
		nullTime(c.MovedToLongtermArchive),
		nullTime(c.CsvCreated),
		c.BucketObjectID,
		c.CsvHash,
		c.CsvEntityCount,
		c.CsvSize,
		nullTime(c.CsvFailedAt),
		c.CsvFailureMessage,
		nullTime(c.DownloadLinkRequested),
		c.DownloadLinkRequestedBy,
		nullTime(c.DirectoryEntriesDeleted),
		nullTime(c.DataDeleted),
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create cancellation")
	}
	return expectOneRow(result, domain.ErrCancellationAlreadyExists)
}

// Get returns the cancellation of tenantID.
func (m *MySQLCancellationRepository) Get(ctx context.Context, tenantID string) (*domain.Cancellation, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + cancellationColumns + ` FROM cancellations WHERE tenant_id = ?`

	c, err := scanCancellation(querier.QueryRowContext(ctx, query, tenantID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCancellationNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get cancellation")
	}
	return c, nil
}

// List returns cancellations ordered by cancellation date.
func (m *MySQLCancellationRepository) List(
	ctx context.Context,
	offset, limit int,
) ([]*domain.Cancellation, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + cancellationColumns + `
			  FROM cancellations
			  ORDER BY cancellation_date, tenant_id
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list cancellations")
	}
	return collectCancellations(rows)
}

// ListPending returns up to limit cancellations awaiting step whose trigger time is at or before at.
func (m *MySQLCancellationRepository) ListPending(
	ctx context.Context,
	step domain.Step,
	at time.Time,
	limit int,
) ([]*domain.Cancellation, error) {
	pending, err := pendingFor(step)
	if err != nil {
		return nil, err
	}
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + cancellationColumns + `
			  FROM cancellations
			  WHERE ` + pending.dueColumn + ` <= ? AND ` + pending.condition + `
			  ORDER BY ` + pending.dueColumn + `, tenant_id
			  LIMIT ?`

	rows, err := querier.QueryContext(ctx, query, at, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list pending cancellations")
	}
	return collectCancellations(rows)
}

// MarkStep stamps step once, provided its predecessor is stamped.
func (m *MySQLCancellationRepository) MarkStep(
	ctx context.Context,
	tenantID string,
	step domain.Step,
	at time.Time,
) error {
	guard, err := guardFor(step)
	if err != nil {
		return err
	}
	querier := database.GetTx(ctx, m.db)

	column := string(step)
	query := `UPDATE cancellations SET ` + column + ` = ?, updated_at = ?
			  WHERE tenant_id = ? AND ` + column + ` IS NULL` + guard

	result, err := querier.ExecContext(ctx, query, at, at, tenantID)
	if err != nil {
		return apperrors.Wrap(err, "failed to mark cancellation step")
	}
	return expectOneRow(result, domain.ErrStepNotAllowed)
}

// SetCSVCreated records a successful export and clears any failure marker.
func (m *MySQLCancellationRepository) SetCSVCreated(
	ctx context.Context,
	tenantID string,
	export domain.CSVExport,
	at time.Time,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE cancellations
			  SET csv_created = ?, bucket_object_id = ?, csv_hash = ?, csv_entity_count = ?, csv_size = ?,
			      csv_failed_at = NULL, csv_failure_message = '', updated_at = ?
			  WHERE tenant_id = ? AND csv_created IS NULL AND moved_to_longterm_archive IS NOT NULL`

	result, err := querier.ExecContext(
		ctx,
		query,
		at,
		export.ObjectID,
		export.Hash,
		export.EntityCount,
		export.Size,
		at,
		tenantID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to record cancellation export")
	}
	return expectOneRow(result, domain.ErrStepNotAllowed)
}

// SetCSVFailed stores the failure marker of the last export attempt.
func (m *MySQLCancellationRepository) SetCSVFailed(
	ctx context.Context,
	tenantID, message string,
	at time.Time,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE cancellations
			  SET csv_failed_at = ?, csv_failure_message = ?, updated_at = ?
			  WHERE tenant_id = ? AND csv_created IS NULL`

	if _, err := querier.ExecContext(ctx, query, at, message, at, tenantID); err != nil {
		return apperrors.Wrap(err, "failed to record cancellation export failure")
	}
	return nil
}

// SetDownloadLinkRequested stamps the first download link request and who made it.
func (m *MySQLCancellationRepository) SetDownloadLinkRequested(
	ctx context.Context,
	tenantID, userID string,
	at time.Time,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE cancellations
			  SET download_link_requested = ?, download_link_requested_by = ?, updated_at = ?
			  WHERE tenant_id = ? AND download_link_requested IS NULL AND csv_created IS NOT NULL`

	result, err := querier.ExecContext(ctx, query, at, userID, at, tenantID)
	if err != nil {
		return apperrors.Wrap(err, "failed to record download link request")
	}
	return expectOneRow(result, domain.ErrStepNotAllowed)
}

// NewMySQLCancellationRepository creates a new MySQL cancellation repository.
func NewMySQLCancellationRepository(db *sql.DB) *MySQLCancellationRepository {
	return &MySQLCancellationRepository{db: db}
}
