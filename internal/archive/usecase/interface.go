// Package usecase implements the archive migrator: moving short-term test records into
// the encrypted long-term archive and reading them back.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/archivist/internal/archive/domain"
	archiveService "github.com/allisson/archivist/internal/archive/service"
	"github.com/allisson/archivist/internal/batch"
	custodyDomain "github.com/allisson/archivist/internal/custody/domain"
)

// TestRecordRepository defines short-term record persistence operations.
type TestRecordRepository interface {
	ListUpdatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*domain.ShortTermRecord, error)
	ListByTenant(ctx context.Context, tenantID string, limit int) ([]*domain.ShortTermRecord, error)
	CountByTenant(ctx context.Context, tenantID string) (int64, error)
	Delete(ctx context.Context, hashedGUID string) error
}

// ArchiveRepository defines archived record persistence operations.
type ArchiveRepository interface {
	Create(ctx context.Context, record *domain.ArchivedRecord) error
	GetLatestVersion(ctx context.Context, hashedGUID string) (uint, error)
	GetLatest(ctx context.Context, hashedGUID string) (*domain.ArchivedRecord, error)
	ListByIdentifier(ctx context.Context, identifier string) ([]*domain.ArchivedRecord, error)
	ListByTenantHash(
		ctx context.Context,
		tenantHash string,
		afterID uuid.UUID,
		limit int,
	) ([]*domain.ArchivedRecord, error)
	CountByTenantHash(ctx context.Context, tenantHash string) (int64, error)
	DeleteByTenantHash(ctx context.Context, tenantHash string) (int64, error)
}

// EnvelopeCrypto seals payloads for the archive and opens them again.
type EnvelopeCrypto interface {
	Seal(
		ctx context.Context,
		plaintext, aad []byte,
		pub *custodyDomain.PublicKey,
	) (*archiveService.Envelope, error)
	Open(ctx context.Context, env *archiveService.Envelope, aad []byte) ([]byte, error)
}

// IdentifierHasher derives the anonymized identifiers stored on archived records.
type IdentifierHasher interface {
	Derive(birthday time.Time, surname string, pepper []byte) (string, error)
	HashTenant(tenantID string, pepper []byte) string
	HashPoc(pocID string, pepper []byte) string
}

// RecordFunc receives one decrypted archive row.
type RecordFunc func(record *domain.ArchivedRecord, payload *domain.ArchivePayload) error

// ArchiveUseCase defines the archive business logic.
type ArchiveUseCase interface {
	// MigrateEligible archives every short-term record not updated for olderThan.
	// A non-positive olderThan disables the run.
	MigrateEligible(ctx context.Context, olderThan time.Duration) (batch.Result, error)

	// MigrateTenant archives every short-term record of a tenant regardless of age.
	MigrateTenant(ctx context.Context, tenantID string) (batch.Result, error)

	// MigrateRecord archives one record and deletes it from the short-term store
	// in a single transaction.
	MigrateRecord(ctx context.Context, record *domain.ShortTermRecord) error

	// GetDecrypted returns the payload of the latest archive version of hashedGUID.
	//
	// Security Note: the payload holds personal data in clear.
	GetDecrypted(ctx context.Context, hashedGUID string) (*domain.ArchivePayload, error)

	// FindByIdentifier returns the decrypted payloads of every archive row matching a person.
	FindByIdentifier(ctx context.Context, birthday time.Time, surname string) ([]*domain.ArchivePayload, error)

	// StreamTenant decrypts a tenant's archive rows in id order and hands each to fn.
	// It returns the number of rows streamed.
	StreamTenant(ctx context.Context, tenantID string, fn RecordFunc) (int, error)

	// DeleteTenant removes every archive row of a tenant.
	DeleteTenant(ctx context.Context, tenantID string) (int64, error)

	// CountByTenant reports a tenant's record counts in both stores.
	CountByTenant(ctx context.Context, tenantID string) (*domain.TenantCount, error)
}
