// Package mocks provides mock implementations of the cancellation use case interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	archiveUsecase "github.com/allisson/archivist/internal/archive/usecase"
	"github.com/allisson/archivist/internal/batch"
	"github.com/allisson/archivist/internal/cancellation/domain"
	cancellationUsecase "github.com/allisson/archivist/internal/cancellation/usecase"
)

// MockCancellationRepository is a mock implementation of CancellationRepository.
type MockCancellationRepository struct {
	mock.Mock
}

func (m *MockCancellationRepository) Create(ctx context.Context, c *domain.Cancellation) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockCancellationRepository) Get(ctx context.Context, tenantID string) (*domain.Cancellation, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cancellation), args.Error(1)
}

func (m *MockCancellationRepository) List(ctx context.Context, offset, limit int) ([]*domain.Cancellation, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Cancellation), args.Error(1)
}

func (m *MockCancellationRepository) ListPending(
	ctx context.Context,
	step domain.Step,
	at time.Time,
	limit int,
) ([]*domain.Cancellation, error) {
	args := m.Called(ctx, step, at, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Cancellation), args.Error(1)
}

func (m *MockCancellationRepository) MarkStep(
	ctx context.Context,
	tenantID string,
	step domain.Step,
	at time.Time,
) error {
	args := m.Called(ctx, tenantID, step, at)
	return args.Error(0)
}

func (m *MockCancellationRepository) SetCSVCreated(
	ctx context.Context,
	tenantID string,
	export domain.CSVExport,
	at time.Time,
) error {
	args := m.Called(ctx, tenantID, export, at)
	return args.Error(0)
}

func (m *MockCancellationRepository) SetCSVFailed(ctx context.Context, tenantID, message string, at time.Time) error {
	args := m.Called(ctx, tenantID, message, at)
	return args.Error(0)
}

func (m *MockCancellationRepository) SetDownloadLinkRequested(
	ctx context.Context,
	tenantID, userID string,
	at time.Time,
) error {
	args := m.Called(ctx, tenantID, userID, at)
	return args.Error(0)
}

// MockArchiveService is a mock implementation of ArchiveService.
type MockArchiveService struct {
	mock.Mock
}

func (m *MockArchiveService) MigrateTenant(ctx context.Context, tenantID string) (batch.Result, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(batch.Result), args.Error(1)
}

func (m *MockArchiveService) StreamTenant(
	ctx context.Context,
	tenantID string,
	fn archiveUsecase.RecordFunc,
) (int, error) {
	args := m.Called(ctx, tenantID, fn)
	return args.Int(0), args.Error(1)
}

func (m *MockArchiveService) DeleteTenant(ctx context.Context, tenantID string) (int64, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(int64), args.Error(1)
}

// MockDirectory is a mock implementation of directory.Remover.
type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) RemoveEntriesForTenant(ctx context.Context, tenantID string) error {
	args := m.Called(ctx, tenantID)
	return args.Error(0)
}

// MockCancellationUseCase is a mock implementation of CancellationUseCase.
type MockCancellationUseCase struct {
	mock.Mock
}

func (m *MockCancellationUseCase) Create(
	ctx context.Context,
	input cancellationUsecase.CreateCancellationInput,
) (*domain.Cancellation, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cancellation), args.Error(1)
}

func (m *MockCancellationUseCase) Get(ctx context.Context, tenantID string) (*domain.Cancellation, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cancellation), args.Error(1)
}

func (m *MockCancellationUseCase) List(ctx context.Context, offset, limit int) ([]*domain.Cancellation, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Cancellation), args.Error(1)
}

func (m *MockCancellationUseCase) RequestDownloadLink(ctx context.Context, tenantID, userID string) (string, error) {
	args := m.Called(ctx, tenantID, userID)
	return args.String(0), args.Error(1)
}

func (m *MockCancellationUseCase) TriggerDownloads(ctx context.Context) (batch.Result, error) {
	args := m.Called(ctx)
	return args.Get(0).(batch.Result), args.Error(1)
}

func (m *MockCancellationUseCase) ArchiveTenants(ctx context.Context) (batch.Result, error) {
	args := m.Called(ctx)
	return args.Get(0).(batch.Result), args.Error(1)
}

func (m *MockCancellationUseCase) CreateCSVs(ctx context.Context) (batch.Result, error) {
	args := m.Called(ctx)
	return args.Get(0).(batch.Result), args.Error(1)
}

func (m *MockCancellationUseCase) RemoveDirectoryEntries(ctx context.Context) (batch.Result, error) {
	args := m.Called(ctx)
	return args.Get(0).(batch.Result), args.Error(1)
}

func (m *MockCancellationUseCase) DeleteExpiredData(ctx context.Context) (batch.Result, error) {
	args := m.Called(ctx)
	return args.Get(0).(batch.Result), args.Error(1)
}

var (
	_ cancellationUsecase.CancellationRepository = (*MockCancellationRepository)(nil)
	_ cancellationUsecase.ArchiveService         = (*MockArchiveService)(nil)
	_ cancellationUsecase.CancellationUseCase    = (*MockCancellationUseCase)(nil)
)
