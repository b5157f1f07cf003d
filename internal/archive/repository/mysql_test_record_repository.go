package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/allisson/archivist/internal/archive/domain"
	"github.com/allisson/archivist/internal/database"
	apperrors "github.com/allisson/archivist/internal/errors"
)

// MySQLTestRecordRepository reads and deletes short-term test records in MySQL.
type MySQLTestRecordRepository struct {
	db *sql.DB
}

// ListUpdatedBefore returns up to limit records last updated before cutoff, oldest first.
func (m *MySQLTestRecordRepository) ListUpdatedBefore(
	ctx context.Context,
	cutoff time.Time,
	limit int,
) ([]*domain.ShortTermRecord, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + testRecordColumns + `
			  FROM test_records
			  WHERE updated_at < ?
			  ORDER BY updated_at ASC, hashed_guid ASC
			  LIMIT ?`

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
func (m *MySQLTestRecordRepository) ListByTenant(
	ctx context.Context,
	tenantID string,
	limit int,
) ([]*domain.ShortTermRecord, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + testRecordColumns + `
			  FROM test_records
			  WHERE tenant_id = ?
			  ORDER BY hashed_guid ASC
			  LIMIT ?`

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
func (m *MySQLTestRecordRepository) CountByTenant(ctx context.Context, tenantID string) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	var count int64
	err := querier.QueryRowContext(ctx, `SELECT COUNT(*) FROM test_records WHERE tenant_id = ?`, tenantID).
		Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count test records")
	}
	return count, nil
}

// Delete removes a record. Returns ErrRecordNotFound when nothing was deleted.
func (m *MySQLTestRecordRepository) Delete(ctx context.Context, hashedGUID string) error {
	querier := database.GetTx(ctx, m.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM test_records WHERE hashed_guid = ?`, hashedGUID)
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

// NewMySQLTestRecordRepository creates a new MySQL test record repository.
func NewMySQLTestRecordRepository(db *sql.DB) *MySQLTestRecordRepository {
	return &MySQLTestRecordRepository{db: db}
}
