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

const archiveColumns = `id, hashed_guid, identifier, tenant_hash, poc_hash, ciphertext, encrypted_secret,
			  public_key, secret_algorithm, key_algorithm, version, created_at, updated_at`

// PostgreSQLArchiveRepository implements ArchivedRecord persistence for PostgreSQL.
type PostgreSQLArchiveRepository struct {
	db *sql.DB
}

// Create inserts a new archive version.
func (p *PostgreSQLArchiveRepository) Create(ctx context.Context, record *domain.ArchivedRecord) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO test_record_archives (` + archiveColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := querier.ExecContext(
		ctx,
		query,
		record.ID,
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
func (p *PostgreSQLArchiveRepository) GetLatestVersion(ctx context.Context, hashedGUID string) (uint, error) {
	querier := database.GetTx(ctx, p.db)

	var version uint
	err := querier.QueryRowContext(
		ctx,
		`SELECT COALESCE(MAX(version), 0) FROM test_record_archives WHERE hashed_guid = $1`,
		hashedGUID,
	).Scan(&version)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get latest archive version")
	}
	return version, nil
}

// GetLatest returns the newest archive version of hashedGUID.
func (p *PostgreSQLArchiveRepository) GetLatest(
	ctx context.Context,
	hashedGUID string,
) (*domain.ArchivedRecord, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + archiveColumns + `
			  FROM test_record_archives
			  WHERE hashed_guid = $1
			  ORDER BY version DESC
			  LIMIT 1`

	var record domain.ArchivedRecord
	err := querier.QueryRowContext(ctx, query, hashedGUID).Scan(
		&record.ID,
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
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrArchivedRecordNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get archived record")
	}
	return &record, nil
}

// ListByIdentifier returns every archive version matching an anonymized identifier.
func (p *PostgreSQLArchiveRepository) ListByIdentifier(
	ctx context.Context,
	identifier string,
) ([]*domain.ArchivedRecord, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + archiveColumns + `
			  FROM test_record_archives
			  WHERE identifier = $1
			  ORDER BY hashed_guid ASC, version ASC`

	rows, err := querier.QueryContext(ctx, query, identifier)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list archived records by identifier")
	}
	return p.collect(rows)
}

// ListByTenantHash pages through a tenant's archive ordered by id, starting after afterID.
func (p *PostgreSQLArchiveRepository) ListByTenantHash(
	ctx context.Context,
	tenantHash string,
	afterID uuid.UUID,
	limit int,
) ([]*domain.ArchivedRecord, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + archiveColumns + `
			  FROM test_record_archives
			  WHERE tenant_hash = $1 AND id > $2
			  ORDER BY id ASC
			  LIMIT $3`

	rows, err := querier.QueryContext(ctx, query, tenantHash, afterID, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list archived records by tenant")
	}
	return p.collect(rows)
}

// CountByTenantHash returns how many archive rows a tenant has.
func (p *PostgreSQLArchiveRepository) CountByTenantHash(ctx context.Context, tenantHash string) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	var count int64
	err := querier.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM test_record_archives WHERE tenant_hash = $1`,
		tenantHash,
	).Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count archived records")
	}
	return count, nil
}

// DeleteByTenantHash removes every archive row of a tenant and returns how many were removed.
func (p *PostgreSQLArchiveRepository) DeleteByTenantHash(ctx context.Context, tenantHash string) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM test_record_archives WHERE tenant_hash = $1`, tenantHash)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete archived records")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get affected rows")
	}
	return affected, nil
}

func (p *PostgreSQLArchiveRepository) collect(rows *sql.Rows) ([]*domain.ArchivedRecord, error) {
	defer func() {
		_ = rows.Close()
	}()

	records := make([]*domain.ArchivedRecord, 0)
	for rows.Next() {
		var record domain.ArchivedRecord
		err := rows.Scan(
			&record.ID,
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
			return nil, apperrors.Wrap(err, "failed to scan archived record")
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate archived records")
	}
	return records, nil
}

// NewPostgreSQLArchiveRepository creates a new PostgreSQL archive repository.
func NewPostgreSQLArchiveRepository(db *sql.DB) *PostgreSQLArchiveRepository {
	return &PostgreSQLArchiveRepository{db: db}
}
