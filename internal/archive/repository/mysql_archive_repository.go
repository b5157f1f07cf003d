package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/allisson/archivist/internal/archive/domain"
	"github.com/allisson/archivist/internal/database"
	apperrors "github.com/allisson/archivist/internal/errors"
)

// MySQLArchiveRepository implements ArchivedRecord persistence for MySQL. Ids are
// stored as BINARY(16).
type MySQLArchiveRepository struct {
	db *sql.DB
}

// Create inserts a new archive version.
func (m *MySQLArchiveRepository) Create(ctx context.Context, record *domain.ArchivedRecord) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO test_record_archives (` + archiveColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	id, err := record.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal archived record id")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		record.HashedGUID,
		record.Identifier,
		record.TenantHash,
		record.PocHash,
		record.Ciphertext,
		record.EncryptedSecret,
		record.PublicKey,
		record.SecretAlgorithm,
		record.KeyAlgorithm,
		record.Version,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create archived record")
	}
	return nil
}

// GetLatestVersion returns the highest stored version for hashedGUID, or 0 if none.
func (m *MySQLArchiveRepository) GetLatestVersion(ctx context.Context, hashedGUID string) (uint, error) {
	querier := database.GetTx(ctx, m.db)

	var version uint
	err := querier.QueryRowContext(
		ctx,
		`SELECT COALESCE(MAX(version), 0) FROM test_record_archives WHERE hashed_guid = ?`,
		hashedGUID,
	).Scan(&version)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get latest archive version")
	}
	return version, nil
}

// GetLatest returns the newest archive version of hashedGUID.
func (m *MySQLArchiveRepository) GetLatest(
	ctx context.Context,
	hashedGUID string,
) (*domain.ArchivedRecord, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + archiveColumns + `
			  FROM test_record_archives
			  WHERE hashed_guid = ?
			  ORDER BY version DESC
			  LIMIT 1`

	record, err := m.scan(querier.QueryRowContext(ctx, query, hashedGUID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrArchivedRecordNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get archived record")
	}
	return record, nil
}

// ListByIdentifier returns every archive version matching an anonymized identifier.
func (m *MySQLArchiveRepository) ListByIdentifier(
	ctx context.Context,
	identifier string,
) ([]*domain.ArchivedRecord, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + archiveColumns + `
			  FROM test_record_archives
			  WHERE identifier = ?
			  ORDER BY hashed_guid ASC, version ASC`

	rows, err := querier.QueryContext(ctx, query, identifier)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list archived records by identifier")
	}
	return m.collect(rows)
}

// ListByTenantHash pages through a tenant's archive ordered by id, starting after afterID.
func (m *MySQLArchiveRepository) ListByTenantHash(
	ctx context.Context,
	tenantHash string,
	afterID uuid.UUID,
	limit int,
) ([]*domain.ArchivedRecord, error) {
	querier := database.GetTx(ctx, m.db)

	after, err := afterID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal cursor id")
	}

	query := `SELECT ` + archiveColumns + `
			  FROM test_record_archives
			  WHERE tenant_hash = ? AND id > ?
			  ORDER BY id ASC
			  LIMIT ?`

	rows, err := querier.QueryContext(ctx, query, tenantHash, after, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list archived records by tenant")
	}
	return m.collect(rows)
}

// CountByTenantHash returns how many archive rows a tenant has.
func (m *MySQLArchiveRepository) CountByTenantHash(ctx context.Context, tenantHash string) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	var count int64
	err := querier.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM test_record_archives WHERE tenant_hash = ?`,
		tenantHash,
	).Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count archived records")
	}
	return count, nil
}

// DeleteByTenantHash removes every archive row of a tenant and returns how many were removed.
func (m *MySQLArchiveRepository) DeleteByTenantHash(ctx context.Context, tenantHash string) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM test_record_archives WHERE tenant_hash = ?`, tenantHash)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete archived records")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get affected rows")
	}
	return affected, nil
}

func (m *MySQLArchiveRepository) scan(row rowScanner) (*domain.ArchivedRecord, error) {
	var record domain.ArchivedRecord
	var id []byte

	err := row.Scan(
		&id,
		&record.HashedGUID,
		&record.Identifier,
		&record.TenantHash,
		&record.PocHash,
		&record.Ciphertext,
		&record.EncryptedSecret,
		&record.PublicKey,
		&record.SecretAlgorithm,
		&record.KeyAlgorithm,
		&record.Version,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := record.ID.UnmarshalBinary(id); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal archived record id")
	}
	return &record, nil
}

func (m *MySQLArchiveRepository) collect(rows *sql.Rows) ([]*domain.ArchivedRecord, error) {
	defer func() {
		_ = rows.Close()
	}()

	records := make([]*domain.ArchivedRecord, 0)
	for rows.Next() {
		record, err := m.scan(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan archived record")
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate archived records")
	}
	return records, nil
}

// NewMySQLArchiveRepository creates a new MySQL archive repository.
func NewMySQLArchiveRepository(db *sql.DB) *MySQLArchiveRepository {
	return &MySQLArchiveRepository{db: db}
}
