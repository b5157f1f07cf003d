package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/allisson/archivist/internal/archive/domain"
	"github.com/allisson/archivist/internal/database"
	apperrors "github.com/allisson/archivist/internal/errors"
)

// PostgreSQLTestRecordRepository reads and deletes short-term test records in PostgreSQL.
type PostgreSQLTestRecordRepository struct {
	db *sql.DB
}

// ListUpdatedBefore returns up to limit records last updated before cutoff, oldest first.
func (p *PostgreSQLTestRecordRepository) ListUpdatedBefore(
	ctx context.Context,
	cutoff time.Time,
	limit int,
) ([]*domain.ShortTermRecord, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + testRecordColumns + `
			  FROM test_records
			  WHERE updated_at < $1
			  ORDER BY updated_at ASC, hashed_guid ASC
			  LIMIT $2`

	rows, err := querier.QueryContext(ctx, query, cutoff, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list test records")
	}
	records, err := collectTestRecords(rows)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to scan test records")
	}
	return records, nil
}

// ListByTenant returns up to limit records owned by tenantID.
func (p *PostgreSQLTestRecordRepository) ListByTenant(
	ctx context.Context,
	tenantID string,
	limit int,
) ([]*domain.ShortTermRecord, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + testRecordColumns + `
			  FROM test_records
			  WHERE tenant_id = $1
			  ORDER BY hashed_guid ASC
			  LIMIT $2`

	rows, err := querier.QueryContext(ctx, query, tenantID, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list test records by tenant")
	}
	records, err := collectTestRecords(rows)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to scan test records")
	}
	return records, nil
}

// CountByTenant returns how many short-term records tenantID still owns.
func (p *PostgreSQLTestRecordRepository) CountByTenant(ctx context.Context, tenantID string) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	var count int64
	err := querier.QueryRowContext(ctx, `SELECT COUNT(*) FROM test_records WHERE tenant_id = $1`, tenantID).
		Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count test records")
	}
	return count, nil
}

// Delete removes a record. Returns ErrRecordNotFound when nothing was deleted.
func (p *PostgreSQLTestRecordRepository) Delete(ctx context.Context, hashedGUID string) error {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM test_records WHERE hashed_guid = $1`, hashedGUID)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete test record")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get affected rows")
	}
	if affected == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

// NewPostgreSQLTestRecordRepository creates a new PostgreSQL test record repository.
func NewPostgreSQLTestRecordRepository(db *sql.DB) *PostgreSQLTestRecordRepository {
	return &PostgreSQLTestRecordRepository{db: db}
}
