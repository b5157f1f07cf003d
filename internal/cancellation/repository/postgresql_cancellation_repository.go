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

// PostgreSQLCancellationRepository implements Cancellation persistence for PostgreSQL.
type PostgreSQLCancellationRepository struct {
	db *sql.DB
}

// Create inserts c. An existing row for the tenant is left untouched and
// ErrCancellationAlreadyExists is returned.
func (p *PostgreSQLCancellationRepository) Create(ctx context.Context, c *domain.Cancellation) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO cancellations (` + cancellationColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
			  ON CONFLICT (tenant_id) DO NOTHING`

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
func (p *PostgreSQLCancellationRepository) Get(ctx context.Context, tenantID string) (*domain.Cancellation, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + cancellationColumns + ` FROM cancellations WHERE tenant_id = $1`

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
func (p *PostgreSQLCancellationRepository) List(
	ctx context.Context,
	offset, limit int,
) ([]*domain.Cancellation, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + cancellationColumns + `
			  FROM cancellations
			  ORDER BY cancellation_date, tenant_id
			  LIMIT $1 OFFSET $2`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list cancellations")
	}
	return collectCancellations(rows)
}

// ListPending returns up to limit cancellations awaiting step whose trigger time is at or before at.
func (p *PostgreSQLCancellationRepository) ListPending(
	ctx context.Context,
	step domain.Step,
	at time.Time,
	limit int,
) ([]*domain.Cancellation, error) {
	pending, err := pendingFor(step)
	if err != nil {
		return nil, err
	}
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + cancellationColumns + `
			  FROM cancellations
			  WHERE ` + pending.dueColumn + ` <= $1 AND ` + pending.condition + `
			  ORDER BY ` + pending.dueColumn + `, tenant_id
			  LIMIT $2`

	rows, err := querier.QueryContext(ctx, query, at, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list pending cancellations")
	}
	return collectCancellations(rows)
}

// MarkStep stamps step once, provided its predecessor is stamped.
func (p *PostgreSQLCancellationRepository) MarkStep(
	ctx context.Context,
	tenantID string,
	step domain.Step,
	at time.Time,
) error {
	guard, err := guardFor(step)
	if err != nil {
		return err
	}
	querier := database.GetTx(ctx, p.db)

	column := string(step)
	query := `UPDATE cancellations SET ` + column + ` = $1, updated_at = $1
			  WHERE tenant_id = $2 AND ` + column + ` IS NULL` + guard

	result, err := querier.ExecContext(ctx, query, at, tenantID)
	if err != nil {
		return apperrors.Wrap(err, "failed to mark cancellation step")
	}
	return expectOneRow(result, domain.ErrStepNotAllowed)
}

// SetCSVCreated records a successful export and clears any failure marker.
func (p *PostgreSQLCancellationRepository) SetCSVCreated(
	ctx context.Context,
	tenantID string,
	export domain.CSVExport,
	at time.Time,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE cancellations
			  SET csv_created = $1, bucket_object_id = $2, csv_hash = $3, csv_entity_count = $4, csv_size = $5,
			      csv_failed_at = NULL, csv_failure_message = '', updated_at = $1
			  WHERE tenant_id = $6 AND csv_created IS NULL AND moved_to_longterm_archive IS NOT NULL`

	result, err := querier.ExecContext(
		ctx,
		query,
		at,
		export.ObjectID,
		export.Hash,
		export.EntityCount,
		export.Size,
		tenantID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to record cancellation export")
	}
	return expectOneRow(result, domain.ErrStepNotAllowed)
}

// SetCSVFailed stores the failure marker of the last export attempt.
func (p *PostgreSQLCancellationRepository) SetCSVFailed(
	ctx context.Context,
	tenantID, message string,
	at time.Time,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE cancellations
			  SET csv_failed_at = $1, csv_failure_message = $2, updated_at = $1
			  WHERE tenant_id = $3 AND csv_created IS NULL`

	if _, err := querier.ExecContext(ctx, query, at, message, tenantID); err != nil {
		return apperrors.Wrap(err, "failed to record cancellation export failure")
	}
	return nil
}

// SetDownloadLinkRequested stamps the first download link request and who made it.
func (p *PostgreSQLCancellationRepository) SetDownloadLinkRequested(
	ctx context.Context,
	tenantID, userID string,
	at time.Time,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE cancellations
			  SET download_link_requested = $1, download_link_requested_by = $2, updated_at = $1
			  WHERE tenant_id = $3 AND download_link_requested IS NULL AND csv_created IS NOT NULL`

	result, err := querier.ExecContext(ctx, query, at, userID, tenantID)
	if err != nil {
		return apperrors.Wrap(err, "failed to record download link request")
	}
	return expectOneRow(result, domain.ErrStepNotAllowed)
}

// NewPostgreSQLCancellationRepository creates a new PostgreSQL cancellation repository.
func NewPostgreSQLCancellationRepository(db *sql.DB) *PostgreSQLCancellationRepository {
	return &PostgreSQLCancellationRepository{db: db}
}

func expectOneRow(result sql.Result, zeroErr error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get rows affected")
	}
	if affected == 0 {
		return zeroErr
	}
	return nil
}
