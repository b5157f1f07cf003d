// Package mocks provides mock implementations of the archive use case interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/allisson/archivist/internal/archive/domain"
	archiveUsecase "github.com/allisson/archivist/internal/archive/usecase"
	"github.com/allisson/archivist/internal/batch"
)

// MockTestRecordRepository is a mock implementation of TestRecordRepository.
type MockTestRecordRepository struct {
	mock.Mock
}

func (m *MockTestRecordRepository) ListUpdatedBefore(
	ctx context.Context,
	cutoff time.Time,
	limit int,
) ([]*domain.ShortTermRecord, error) {
	args := m.Called(ctx, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ShortTermRecord), args.Error(1)
}

func (m *MockTestRecordRepository) ListByTenant(
	ctx context.Context,
	tenantID string,
	limit int,
) ([]*domain.ShortTermRecord, error) {
	args := m.Called(ctx, tenantID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ShortTermRecord), args.Error(1)
}

func (m *MockTestRecordRepository) CountByTenant(ctx context.Context, tenantID string) (int64, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTestRecordRepository) Delete(ctx context.Context, hashedGUID string) error {
	args := m.Called(ctx, hashedGUID)
	return args.Error(0)
}

// MockArchiveRepository is a mock implementation of ArchiveRepository.
type MockArchiveRepository struct {
	mock.Mock
}

func (m *MockArchiveRepository) Create(ctx context.Context, record *domain.ArchivedRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockArchiveRepository) GetLatestVersion(ctx context.Context, hashedGUID string) (uint, error) {
	args := m.Called(ctx, hashedGUID)
	return args.Get(0).(uint), args.Error(1)
}

func (m *MockArchiveRepository) GetLatest(ctx context.Context, hashedGUID string) (*domain.ArchivedRecord, error) {
	args := m.Called(ctx, hashedGUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ArchivedRecord), args.Error(1)
}

func (m *MockArchiveRepository) ListByIdentifier(
	ctx context.Context,
	identifier string,
) ([]*domain.ArchivedRecord, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ArchivedRecord), args.Error(1)
}

func (m *MockArchiveRepository) ListByTenantHash(
	ctx context.Context,
	tenantHash string,
	afterID uuid.UUID,
	limit int,
) ([]*domain.ArchivedRecord, error) {
	args := m.Called(ctx, tenantHash, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ArchivedRecord), args.Error(1)
}

func (m *MockArchiveRepository) CountByTenantHash(ctx context.Context, tenantHash string) (int64, error) {
	args := m.Called(ctx, tenantHash)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockArchiveRepository) DeleteByTenantHash(ctx context.Context, tenantHash string) (int64, error) {
	args := m.Called(ctx, tenantHash)
	return args.Get(0).(int64), args.Error(1)
}

// MockArchiveUseCase is a mock implementation of ArchiveUseCase.
type MockArchiveUseCase struct {
	mock.Mock
}

func (m *MockArchiveUseCase) MigrateEligible(ctx context.Context, olderThan time.Duration) (batch.Result, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(batch.Result), args.Error(1)
}

func (m *MockArchiveUseCase) MigrateTenant(ctx context.Context, tenantID string) (batch.Result, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(batch.Result), args.Error(1)
}

func (m *MockArchiveUseCase) MigrateRecord(ctx context.Context, record *domain.ShortTermRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockArchiveUseCase) GetDecrypted(ctx context.Context, hashedGUID string) (*domain.ArchivePayload, error) {
	args := m.Called(ctx, hashedGUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ArchivePayload), args.Error(1)
}

func (m *MockArchiveUseCase) FindByIdentifier(
	ctx context.Context,
	birthday time.Time,
	surname string,
) ([]*domain.ArchivePayload, error) {
	args := m.Called(ctx, birthday, surname)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ArchivePayload), args.Error(1)
}

func (m *MockArchiveUseCase) StreamTenant(
	ctx context.Context,
	tenantID string,
	fn archiveUsecase.RecordFunc,
) (int, error) {
	args := m.Called(ctx, tenantID, fn)
	return args.Int(0), args.Error(1)
}

func (m *MockArchiveUseCase) DeleteTenant(ctx context.Context, tenantID string) (int64, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockArchiveUseCase) CountByTenant(ctx context.Context, tenantID string) (*domain.TenantCount, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TenantCount), args.Error(1)
}

var (
	_ archiveUsecase.TestRecordRepository = (*MockTestRecordRepository)(nil)
	_ archiveUsecase.ArchiveRepository    = (*MockArchiveRepository)(nil)
	_ archiveUsecase.ArchiveUseCase       = (*MockArchiveUseCase)(nil)
)
