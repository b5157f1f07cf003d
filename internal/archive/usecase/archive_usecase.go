package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/archivist/internal/archive/domain"
	archiveService "github.com/allisson/archivist/internal/archive/service"
	"github.com/allisson/archivist/internal/batch"
	cryptoDomain "github.com/allisson/archivist/internal/crypto/domain"
	custodyDomain "github.com/allisson/archivist/internal/custody/domain"
	"github.com/allisson/archivist/internal/database"
)

// Config holds the batching limits of the migrator.
type Config struct {
	BatchSize  int
	MaxBatches int
}

// archiveUseCase implements ArchiveUseCase.
type archiveUseCase struct {
	txManager   database.TxManager
	recordRepo  TestRecordRepository
	archiveRepo ArchiveRepository
	custody     custodyDomain.KeyCustody
	envelope    EnvelopeCrypto
	identifier  IdentifierHasher
	cfg         Config
	logger      *slog.Logger
	now         func() time.Time
}

// MigrateEligible archives every short-term record not updated for olderThan.
func (a *archiveUseCase) MigrateEligible(ctx context.Context, olderThan time.Duration) (batch.Result, error) {
	if olderThan <= 0 {
		a.logger.Info("archive migration skipped, no age threshold configured")
		return batch.Result{}, nil
	}

	cutoff := a.now().Add(-olderThan)
	result, err := a.drainer("archive_eligible").Drain(
		ctx,
		func(ctx context.Context, limit int) ([]*domain.ShortTermRecord, error) {
			return a.recordRepo.ListUpdatedBefore(ctx, cutoff, limit)
		},
		a.MigrateRecord,
	)
	a.logger.Info("archive migration finished",
		slog.Time("cutoff", cutoff),
		slog.Int("processed", result.Processed),
		slog.Int("failed", result.Failed),
	)
	return result, err
}

// MigrateTenant archives every short-term record of tenantID.
func (a *archiveUseCase) MigrateTenant(ctx context.Context, tenantID string) (batch.Result, error) {
	result, err := a.drainer("archive_tenant").Drain(
		ctx,
		func(ctx context.Context, limit int) ([]*domain.ShortTermRecord, error) {
			return a.recordRepo.ListByTenant(ctx, tenantID, limit)
		},
		a.MigrateRecord,
	)
	a.logger.Info("tenant archive migration finished",
		slog.String("tenant_id", tenantID),
		slog.Int("processed", result.Processed),
		slog.Int("failed", result.Failed),
	)
	return result, err
}

// MigrateRecord encrypts record outside the transaction, then writes the archive
// row and deletes the short-term row atomically.
func (a *archiveUseCase) MigrateRecord(ctx context.Context, record *domain.ShortTermRecord) error {
	pepper, err := a.custody.Pepper(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pepper: %w", err)
	}
	pub, err := a.custody.PublicKey(ctx)
	if err != nil {
		return fmt.Errorf("failed to get public key: %w", err)
	}

	identifier, err := a.identifier.Derive(record.Birthday, record.LastName, pepper)
	if err != nil {
		if !errors.Is(err, domain.ErrMissingIdentity) {
			return err
		}
		// Still archived so the short-term store drains; it just cannot be cross-referenced.
		a.logger.Warn("archiving record without identifier", slog.String("hashed_guid", record.HashedGUID))
	}

	plaintext, err := domain.NewArchivePayload(record).Marshal()
	if err != nil {
		return fmt.Errorf("failed to serialize payload: %w", err)
	}
	defer cryptoDomain.Zero(plaintext)

	env, err := a.envelope.Seal(ctx, plaintext, []byte(record.HashedGUID), pub)
	if err != nil {
		return err
	}

	tenantHash := a.identifier.HashTenant(record.TenantID, pepper)
	pocHash := a.identifier.HashPoc(record.PocID, pepper)

	return a.txManager.WithTx(ctx, func(ctx context.Context) error {
		version, err := a.archiveRepo.GetLatestVersion(ctx, record.HashedGUID)
		if err != nil {
			return err
		}

		now := a.now().UTC()
		archived := &domain.ArchivedRecord{
			ID:              uuid.Must(uuid.NewV7()),
			HashedGUID:      record.HashedGUID,
			Identifier:      identifier,
			TenantHash:      tenantHash,
			PocHash:         pocHash,
			Ciphertext:      env.Ciphertext,
			EncryptedSecret: env.EncryptedSecret,
			PublicKey:       env.PublicKey,
			SecretAlgorithm: env.SecretAlgorithm,
			KeyAlgorithm:    env.KeyAlgorithm,
			Version:         version + 1,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := a.archiveRepo.Create(ctx, archived); err != nil {
			return err
		}
		return a.recordRepo.Delete(ctx, record.HashedGUID)
	})
}

// GetDecrypted returns the latest archived payload of hashedGUID.
func (a *archiveUseCase) GetDecrypted(ctx context.Context, hashedGUID string) (*domain.ArchivePayload, error) {
	record, err := a.archiveRepo.GetLatest(ctx, hashedGUID)
	if err != nil {
		return nil, err
	}
	return a.decrypt(ctx, record)
}

// FindByIdentifier derives the identifier of a person and decrypts every matching row.
func (a *archiveUseCase) FindByIdentifier(
	ctx context.Context,
	birthday time.Time,
	surname string,
) ([]*domain.ArchivePayload, error) {
	pepper, err := a.custody.Pepper(ctx)
	if err != nil {
		return nil, err
	}
	identifier, err := a.identifier.Derive(birthday, surname, pepper)
	if err != nil {
		return nil, err
	}

	records, err := a.archiveRepo.ListByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}

	payloads := make([]*domain.ArchivePayload, 0, len(records))
	for _, record := range records {
		payload, err := a.decrypt(ctx, record)
		if err != nil {
			return nil, err
		}
		payloads = append(payloads, payload)
	}
	return payloads, nil
}

// StreamTenant pages through the tenant's archive by id and decrypts each row.
func (a *archiveUseCase) StreamTenant(ctx context.Context, tenantID string, fn RecordFunc) (int, error) {
	tenantHash, err := a.tenantHash(ctx, tenantID)
	if err != nil {
		return 0, err
	}

	streamed := 0
	after := uuid.Nil
	for {
		if err := ctx.Err(); err != nil {
			return streamed, err
		}

		records, err := a.archiveRepo.ListByTenantHash(ctx, tenantHash, after, a.cfg.BatchSize)
		if err != nil {
			return streamed, err
		}
		for _, record := range records {
			payload, err := a.decrypt(ctx, record)
			if err != nil {
				return streamed, fmt.Errorf("failed to decrypt record %s: %w", record.ID, err)
			}
			if err := fn(record, payload); err != nil {
				return streamed, err
			}
			streamed++
		}
		if len(records) < a.cfg.BatchSize {
			return streamed, nil
		}
		after = records[len(records)-1].ID
	}
}

// DeleteTenant removes every archive row of tenantID.
func (a *archiveUseCase) DeleteTenant(ctx context.Context, tenantID string) (int64, error) {
	tenantHash, err := a.tenantHash(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	return a.archiveRepo.DeleteByTenantHash(ctx, tenantHash)
}

// CountByTenant reports a tenant's records in both stores.
func (a *archiveUseCase) CountByTenant(ctx context.Context, tenantID string) (*domain.TenantCount, error) {
	tenantHash, err := a.tenantHash(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	shortTerm, err := a.recordRepo.CountByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	archived, err := a.archiveRepo.CountByTenantHash(ctx, tenantHash)
	if err != nil {
		return nil, err
	}
	return &domain.TenantCount{TenantHash: tenantHash, ShortTerm: shortTerm, Archived: archived}, nil
}

func (a *archiveUseCase) decrypt(ctx context.Context, record *domain.ArchivedRecord) (*domain.ArchivePayload, error) {
	plaintext, err := a.envelope.Open(ctx, &archiveService.Envelope{
		Ciphertext:      record.Ciphertext,
		EncryptedSecret: record.EncryptedSecret,
		PublicKey:       record.PublicKey,
		SecretAlgorithm: record.SecretAlgorithm,
		KeyAlgorithm:    record.KeyAlgorithm,
	}, []byte(record.HashedGUID))
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(plaintext)
	return domain.UnmarshalPayload(plaintext)
}

func (a *archiveUseCase) tenantHash(ctx context.Context, tenantID string) (string, error) {
	pepper, err := a.custody.Pepper(ctx)
	if err != nil {
		return "", err
	}
	return a.identifier.HashTenant(tenantID, pepper), nil
}

func (a *archiveUseCase) drainer(name string) *batch.Drainer[*domain.ShortTermRecord] {
	return batch.NewDrainer(batch.Options[*domain.ShortTermRecord]{
		Name:       name,
		BatchSize:  a.cfg.BatchSize,
		MaxBatches: a.cfg.MaxBatches,
		Key:        func(r *domain.ShortTermRecord) string { return r.HashedGUID },
		Logger:     a.logger,
	})
}

// NewArchiveUseCase creates a new ArchiveUseCase.
func NewArchiveUseCase(
	txManager database.TxManager,
	recordRepo TestRecordRepository,
	archiveRepo ArchiveRepository,
	custody custodyDomain.KeyCustody,
	envelope EnvelopeCrypto,
	identifier IdentifierHasher,
	cfg Config,
	logger *slog.Logger,
) ArchiveUseCase {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &archiveUseCase{
		txManager:   txManager,
		recordRepo:  recordRepo,
		archiveRepo: archiveRepo,
		custody:     custody,
		envelope:    envelope,
		identifier:  identifier,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}
