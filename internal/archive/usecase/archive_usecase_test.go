package usecase_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/allisson/archivist/internal/archive/domain"
	archiveService "github.com/allisson/archivist/internal/archive/service"
	"github.com/allisson/archivist/internal/archive/usecase"
	"github.com/allisson/archivist/internal/archive/usecase/mocks"
	cryptoDomain "github.com/allisson/archivist/internal/crypto/domain"
	cryptoService "github.com/allisson/archivist/internal/crypto/service"
	custodyDomain "github.com/allisson/archivist/internal/custody/domain"
	custodyService "github.com/allisson/archivist/internal/custody/service"
	databaseMocks "github.com/allisson/archivist/internal/database/mocks"
)

var (
	keyOnce  sync.Once
	keyEntry *custodyService.KeystoreEntry
)

func testEntry(t *testing.T) *custodyService.KeystoreEntry {
	t.Helper()
	keyOnce.Do(func() {
		_, entry, err := custodyService.GenerateKeystoreEntry("archive-test", 2048)
		if err != nil {
			panic(err)
		}
		keyEntry = entry
	})
	return keyEntry
}

type fixture struct {
	txManager   *databaseMocks.MockTxManager
	recordRepo  *mocks.MockTestRecordRepository
	archiveRepo *mocks.MockArchiveRepository
	custody     custodyDomain.KeyCustody
	envelope    *archiveService.EnvelopeService
	identifier  *archiveService.IdentifierService
	pepper      []byte
	uc          usecase.ArchiveUseCase
}

func newFixture(t *testing.T, batchSize int) *fixture {
	t.Helper()
	pepper := []byte("pepper")
	custody := custodyService.NewKeystoreCustody([]*custodyService.KeystoreEntry{testEntry(t)}, pepper)
	identifier, err := archiveService.NewIdentifierService("SHA-256")
	require.NoError(t, err)

	f := &fixture{
		txManager:   &databaseMocks.MockTxManager{},
		recordRepo:  &mocks.MockTestRecordRepository{},
		archiveRepo: &mocks.MockArchiveRepository{},
		custody:     custody,
		envelope:    archiveService.NewEnvelopeService(cryptoService.NewAEADManager(), custody, cryptoDomain.AESGCM),
		identifier:  identifier,
		pepper:      pepper,
	}
	f.uc = usecase.NewArchiveUseCase(
		f.txManager,
		f.recordRepo,
		f.archiveRepo,
		f.custody,
		f.envelope,
		f.identifier,
		usecase.Config{BatchSize: batchSize, MaxBatches: 100},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	t.Cleanup(func() {
		f.txManager.AssertExpectations(t)
		f.recordRepo.AssertExpectations(t)
		f.archiveRepo.AssertExpectations(t)
	})
	return f
}

func newRecord(guid, tenantID string) *domain.ShortTermRecord {
	updated := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	return &domain.ShortTermRecord{
		HashedGUID: guid,
		TenantID:   tenantID,
		PocID:      "poc-1",
		TestResult: 6,
		FirstName:  "Anna",
		LastName:   "Miller",
		Birthday:   time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		Email:      "anna@example.com",
		City:       "Berlin",
		CreatedAt:  updated,
		UpdatedAt:  updated,
	}
}

// sealed builds an archived row the way the migrator would.
func (f *fixture) sealed(t *testing.T, record *domain.ShortTermRecord) *domain.ArchivedRecord {
	t.Helper()
	plaintext, err := domain.NewArchivePayload(record).Marshal()
	require.NoError(t, err)
	env, err := f.envelope.Seal(context.Background(), plaintext, []byte(record.HashedGUID), testEntry(t).PublicKey)
	require.NoError(t, err)
	identifier, err := f.identifier.Derive(record.Birthday, record.LastName, f.pepper)
	require.NoError(t, err)
	return &domain.ArchivedRecord{
		ID:              uuid.Must(uuid.NewV7()),
		HashedGUID:      record.HashedGUID,
		Identifier:      identifier,
		TenantHash:      f.identifier.HashTenant(record.TenantID, f.pepper),
		Ciphertext:      env.Ciphertext,
		EncryptedSecret: env.EncryptedSecret,
		PublicKey:       env.PublicKey,
		SecretAlgorithm: env.SecretAlgorithm,
		KeyAlgorithm:    env.KeyAlgorithm,
		Version:         1,
	}
}

func TestArchiveUseCase_MigrateRecord(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_FirstVersion", func(t *testing.T) {
		f := newFixture(t, 10)
		record := newRecord("guid-1", "tenant-1")

		var created *domain.ArchivedRecord
		f.txManager.On("WithTx", ctx, mock.Anything).Return(nil).Once()
		f.archiveRepo.On("GetLatestVersion", ctx, "guid-1").Return(uint(0), nil).Once()
		f.archiveRepo.On("Create", ctx, mock.AnythingOfType("*domain.ArchivedRecord")).
			Run(func(args mock.Arguments) {
				created = args.Get(1).(*domain.ArchivedRecord)
			}).
			Return(nil).
			Once()
		f.recordRepo.On("Delete", ctx, "guid-1").Return(nil).Once()

		require.NoError(t, f.uc.MigrateRecord(ctx, record))
		require.NotNil(t, created)

		wantIdentifier, err := f.identifier.Derive(record.Birthday, "Miller", f.pepper)
		require.NoError(t, err)

		assert.Equal(t, uint(1), created.Version)
		assert.Equal(t, "guid-1", created.HashedGUID)
		assert.Equal(t, wantIdentifier, created.Identifier)
		assert.Equal(t, f.identifier.HashTenant("tenant-1", f.pepper), created.TenantHash)
		assert.Equal(t, f.identifier.HashPoc("poc-1", f.pepper), created.PocHash)
		assert.Equal(t, testEntry(t).PublicKey.Encoded, created.PublicKey)
		assert.Equal(t, cryptoDomain.AESGCM, created.SecretAlgorithm)
		assert.Equal(t, cryptoDomain.RSAOAEPSHA256, created.KeyAlgorithm)
		assert.NotContains(t, string(created.Ciphertext), "Miller")

		// the stored row opens back to the original payload
		f.archiveRepo.On("GetLatest", ctx, "guid-1").Return(created, nil).Once()
		payload, err := f.uc.GetDecrypted(ctx, "guid-1")
		require.NoError(t, err)
		assert.Equal(t, domain.NewArchivePayload(record), payload)
	})

	t.Run("Success_NextVersion", func(t *testing.T) {
		f := newFixture(t, 10)

		f.txManager.On("WithTx", ctx, mock.Anything).Return(nil).Once()
		f.archiveRepo.On("GetLatestVersion", ctx, "guid-1").Return(uint(2), nil).Once()
		f.archiveRepo.On("Create", ctx, mock.MatchedBy(func(r *domain.ArchivedRecord) bool {
			return r.Version == 3
		})).Return(nil).Once()
		f.recordRepo.On("Delete", ctx, "guid-1").Return(nil).Once()

		require.NoError(t, f.uc.MigrateRecord(ctx, newRecord("guid-1", "tenant-1")))
	})

	t.Run("Success_WithoutBirthday", func(t *testing.T) {
		f := newFixture(t, 10)
		record := newRecord("guid-1", "tenant-1")
		record.Birthday = time.Time{}

		f.txManager.On("WithTx", ctx, mock.Anything).Return(nil).Once()
		f.archiveRepo.On("GetLatestVersion", ctx, "guid-1").Return(uint(0), nil).Once()
		f.archiveRepo.On("Create", ctx, mock.MatchedBy(func(r *domain.ArchivedRecord) bool {
			return r.Identifier == ""
		})).Return(nil).Once()
		f.recordRepo.On("Delete", ctx, "guid-1").Return(nil).Once()

		require.NoError(t, f.uc.MigrateRecord(ctx, record))
	})

	t.Run("Error_DeleteFails", func(t *testing.T) {
		f := newFixture(t, 10)
		deleteErr := errors.New("lock timeout")

		f.txManager.On("WithTx", ctx, mock.Anything).Return(nil).Once()
		f.archiveRepo.On("GetLatestVersion", ctx, "guid-1").Return(uint(0), nil).Once()
		f.archiveRepo.On("Create", ctx, mock.Anything).Return(nil).Once()
		f.recordRepo.On("Delete", ctx, "guid-1").Return(deleteErr).Once()

		err := f.uc.MigrateRecord(ctx, newRecord("guid-1", "tenant-1"))
		assert.ErrorIs(t, err, deleteErr)
	})

	t.Run("Error_NoKeys", func(t *testing.T) {
		f := newFixture(t, 10)
		identifier, err := archiveService.NewIdentifierService("SHA-256")
		require.NoError(t, err)
		empty := custodyService.NewKeystoreCustody(nil, []byte("pepper"))
		uc := usecase.NewArchiveUseCase(
			f.txManager, f.recordRepo, f.archiveRepo, empty,
			archiveService.NewEnvelopeService(cryptoService.NewAEADManager(), empty, cryptoDomain.AESGCM),
			identifier, usecase.Config{BatchSize: 10}, slog.New(slog.NewTextHandler(io.Discard, nil)),
		)

		err = uc.MigrateRecord(ctx, newRecord("guid-1", "tenant-1"))
		assert.ErrorIs(t, err, custodyDomain.ErrNoKeys)
	})
}

func TestArchiveUseCase_MigrateEligible(t *testing.T) {
	ctx := context.Background()

	t.Run("Disabled", func(t *testing.T) {
		f := newFixture(t, 10)

		result, err := f.uc.MigrateEligible(ctx, 0)
		require.NoError(t, err)
		assert.Zero(t, result.Processed)
	})

	t.Run("FailureDoesNotStopBatch", func(t *testing.T) {
		f := newFixture(t, 10)
		first := newRecord("guid-1", "tenant-1")
		second := newRecord("guid-2", "tenant-1")
		createErr := errors.New("disk full")

		f.recordRepo.On("ListUpdatedBefore", ctx, mock.AnythingOfType("time.Time"), 10).
			Return([]*domain.ShortTermRecord{first, second}, nil).Once()
		f.recordRepo.On("ListUpdatedBefore", ctx, mock.AnythingOfType("time.Time"), 11).
			Return([]*domain.ShortTermRecord{first}, nil).Once()

		f.txManager.On("WithTx", ctx, mock.Anything).Return(nil).Twice()
		f.archiveRepo.On("GetLatestVersion", ctx, mock.Anything).Return(uint(0), nil).Twice()
		f.archiveRepo.On("Create", ctx, mock.MatchedBy(func(r *domain.ArchivedRecord) bool {
			return r.HashedGUID == "guid-1"
		})).Return(createErr).Once()
		f.archiveRepo.On("Create", ctx, mock.MatchedBy(func(r *domain.ArchivedRecord) bool {
			return r.HashedGUID == "guid-2"
		})).Return(nil).Once()
		f.recordRepo.On("Delete", ctx, "guid-2").Return(nil).Once()

		result, err := f.uc.MigrateEligible(ctx, 24*time.Hour)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Processed)
		assert.Equal(t, 1, result.Failed)
	})

	t.Run("CutoffIsInThePast", func(t *testing.T) {
		f := newFixture(t, 10)
		before := time.Now()

		f.recordRepo.On("ListUpdatedBefore", ctx, mock.MatchedBy(func(cutoff time.Time) bool {
			return cutoff.Before(before.Add(-47*time.Hour)) && cutoff.After(before.Add(-49*time.Hour))
		}), 10).Return([]*domain.ShortTermRecord{}, nil).Once()

		result, err := f.uc.MigrateEligible(ctx, 48*time.Hour)
		require.NoError(t, err)
		assert.Zero(t, result.Processed)
	})
}

func TestArchiveUseCase_MigrateTenant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)
	records := []*domain.ShortTermRecord{
		newRecord("guid-1", "tenant-1"),
		newRecord("guid-2", "tenant-1"),
		newRecord("guid-3", "tenant-1"),
	}

	f.recordRepo.On("ListByTenant", ctx, "tenant-1", 2).Return(records[:2], nil).Once()
	f.recordRepo.On("ListByTenant", ctx, "tenant-1", 2).Return(records[2:], nil).Once()
	f.recordRepo.On("ListByTenant", ctx, "tenant-1", 2).Return([]*domain.ShortTermRecord{}, nil).Once()
	f.txManager.On("WithTx", ctx, mock.Anything).Return(nil).Times(3)
	f.archiveRepo.On("GetLatestVersion", ctx, mock.Anything).Return(uint(0), nil).Times(3)
	f.archiveRepo.On("Create", ctx, mock.MatchedBy(func(r *domain.ArchivedRecord) bool {
		return r.TenantHash == f.identifier.HashTenant("tenant-1", f.pepper)
	})).Return(nil).Times(3)
	f.recordRepo.On("Delete", ctx, mock.Anything).Return(nil).Times(3)

	result, err := f.uc.MigrateTenant(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, 3, result.Processed)
	assert.Zero(t, result.Failed)
}

func TestArchiveUseCase_StreamTenant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)
	tenantHash := f.identifier.HashTenant("tenant-1", f.pepper)

	rows := []*domain.ArchivedRecord{
		f.sealed(t, newRecord("guid-1", "tenant-1")),
		f.sealed(t, newRecord("guid-2", "tenant-1")),
		f.sealed(t, newRecord("guid-3", "tenant-1")),
	}

	f.archiveRepo.On("ListByTenantHash", ctx, tenantHash, uuid.Nil, 2).Return(rows[:2], nil).Once()
	f.archiveRepo.On("ListByTenantHash", ctx, tenantHash, rows[1].ID, 2).Return(rows[2:], nil).Once()

	var guids []string
	count, err := f.uc.StreamTenant(ctx, "tenant-1", func(r *domain.ArchivedRecord, p *domain.ArchivePayload) error {
		assert.Equal(t, r.HashedGUID, p.HashedGUID)
		guids = append(guids, p.HashedGUID)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, []string{"guid-1", "guid-2", "guid-3"}, guids)
}

func TestArchiveUseCase_StreamTenant_DecryptFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10)
	tenantHash := f.identifier.HashTenant("tenant-1", f.pepper)

	row := f.sealed(t, newRecord("guid-1", "tenant-1"))
	row.Ciphertext[len(row.Ciphertext)-1] ^= 0x01

	f.archiveRepo.On("ListByTenantHash", ctx, tenantHash, uuid.Nil, 10).
		Return([]*domain.ArchivedRecord{row}, nil).Once()

	count, err := f.uc.StreamTenant(ctx, "tenant-1", func(*domain.ArchivedRecord, *domain.ArchivePayload) error {
		t.Fatal("callback must not see unauthenticated data")
		return nil
	})
	assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
	assert.Zero(t, count)
}

func TestArchiveUseCase_FindByIdentifier(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10)
	row := f.sealed(t, newRecord("guid-1", "tenant-1"))

	f.archiveRepo.On("ListByIdentifier", ctx, row.Identifier).
		Return([]*domain.ArchivedRecord{row}, nil).Once()

	payloads, err := f.uc.FindByIdentifier(ctx, time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), "mi")
	require.NoError(t, err)
	require.Len(t, payloads, 1)
	assert.Equal(t, "Miller", payloads[0].LastName)
}

func TestArchiveUseCase_DeleteAndCountTenant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10)
	tenantHash := f.identifier.HashTenant("tenant-1", f.pepper)

	f.recordRepo.On("CountByTenant", ctx, "tenant-1").Return(int64(0), nil).Once()
	f.archiveRepo.On("CountByTenantHash", ctx, tenantHash).Return(int64(3), nil).Once()
	f.archiveRepo.On("DeleteByTenantHash", ctx, tenantHash).Return(int64(3), nil).Once()

	count, err := f.uc.CountByTenant(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, &domain.TenantCount{TenantHash: tenantHash, ShortTerm: 0, Archived: 3}, count)

	deleted, err := f.uc.DeleteTenant(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
}
