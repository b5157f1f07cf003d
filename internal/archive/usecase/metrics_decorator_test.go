package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/allisson/archivist/internal/archive/domain"
	"github.com/allisson/archivist/internal/archive/usecase"
	"github.com/allisson/archivist/internal/archive/usecase/mocks"
	"github.com/allisson/archivist/internal/batch"
	"github.com/allisson/archivist/internal/metrics"
)

// mockBusinessMetrics is a mock implementation of metrics.BusinessMetrics for testing.
type mockBusinessMetrics struct {
	mock.Mock
}

func (m *mockBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	m.Called(ctx, domain, operation, status)
}

func (m *mockBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	m.Called(ctx, domain, operation, duration, status)
}

func (m *mockBusinessMetrics) RecordItems(ctx context.Context, domain, operation, outcome string, count int) {
	m.Called(ctx, domain, operation, outcome, count)
}

var _ metrics.BusinessMetrics = (*mockBusinessMetrics)(nil)

func TestArchiveUseCaseWithMetrics_MigrateTenant(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		next := &mocks.MockArchiveUseCase{}
		m := &mockBusinessMetrics{}
		uc := usecase.NewArchiveUseCaseWithMetrics(next, m)

		next.On("MigrateTenant", ctx, "tenant-1").Return(batch.Result{Processed: 4, Failed: 1}, nil).Once()
		m.On("RecordOperation", ctx, "archive", "migrate_tenant", "success").Once()
		m.On("RecordDuration", ctx, "archive", "migrate_tenant", mock.AnythingOfType("time.Duration"), "success").Once()
		m.On("RecordItems", ctx, "archive", "migrate_tenant", "processed", 4).Once()
		m.On("RecordItems", ctx, "archive", "migrate_tenant", "failed", 1).Once()

		result, err := uc.MigrateTenant(ctx, "tenant-1")
		assert.NoError(t, err)
		assert.Equal(t, 4, result.Processed)
		next.AssertExpectations(t)
		m.AssertExpectations(t)
	})

	t.Run("error", func(t *testing.T) {
		next := &mocks.MockArchiveUseCase{}
		m := &mockBusinessMetrics{}
		uc := usecase.NewArchiveUseCaseWithMetrics(next, m)
		fetchErr := errors.New("db down")

		next.On("MigrateTenant", ctx, "tenant-1").Return(batch.Result{}, fetchErr).Once()
		m.On("RecordOperation", ctx, "archive", "migrate_tenant", "error").Once()
		m.On("RecordDuration", ctx, "archive", "migrate_tenant", mock.AnythingOfType("time.Duration"), "error").Once()
		m.On("RecordItems", ctx, "archive", "migrate_tenant", mock.Anything, 0).Twice()

		_, err := uc.MigrateTenant(ctx, "tenant-1")
		assert.ErrorIs(t, err, fetchErr)
		m.AssertExpectations(t)
	})
}

func TestArchiveUseCaseWithMetrics_GetDecrypted(t *testing.T) {
	ctx := context.Background()
	next := &mocks.MockArchiveUseCase{}
	m := &mockBusinessMetrics{}
	uc := usecase.NewArchiveUseCaseWithMetrics(next, m)

	payload := &domain.ArchivePayload{HashedGUID: "guid-1"}
	next.On("GetDecrypted", ctx, "guid-1").Return(payload, nil).Once()
	m.On("RecordOperation", ctx, "archive", "get_decrypted", "success").Once()
	m.On("RecordDuration", ctx, "archive", "get_decrypted", mock.AnythingOfType("time.Duration"), "success").Once()

	got, err := uc.GetDecrypted(ctx, "guid-1")
	assert.NoError(t, err)
	assert.Equal(t, payload, got)
	m.AssertExpectations(t)
}

func TestArchiveUseCaseWithMetrics_DeleteTenant(t *testing.T) {
	ctx := context.Background()
	next := &mocks.MockArchiveUseCase{}
	m := &mockBusinessMetrics{}
	uc := usecase.NewArchiveUseCaseWithMetrics(next, m)

	next.On("DeleteTenant", ctx, "tenant-1").Return(int64(3), nil).Once()
	m.On("RecordOperation", ctx, "archive", "delete_tenant", "success").Once()
	m.On("RecordDuration", ctx, "archive", "delete_tenant", mock.AnythingOfType("time.Duration"), "success").Once()
	m.On("RecordItems", ctx, "archive", "delete_tenant", "processed", 3).Once()

	deleted, err := uc.DeleteTenant(ctx, "tenant-1")
	assert.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
	m.AssertExpectations(t)
}

func TestArchiveUseCaseWithMetrics_PassThrough(t *testing.T) {
	ctx := context.Background()
	next := &mocks.MockArchiveUseCase{}
	m := &mockBusinessMetrics{}
	uc := usecase.NewArchiveUseCaseWithMetrics(next, m)

	record := &domain.ShortTermRecord{HashedGUID: "guid-1"}
	next.On("MigrateRecord", ctx, record).Return(nil).Once()
	next.On("CountByTenant", ctx, "tenant-1").Return(&domain.TenantCount{Archived: 2}, nil).Once()

	assert.NoError(t, uc.MigrateRecord(ctx, record))
	count, err := uc.CountByTenant(ctx, "tenant-1")
	assert.NoError(t, err)
	assert.Equal(t, int64(2), count.Archived)

	next.AssertExpectations(t)
	m.AssertNotCalled(t, "RecordOperation", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
