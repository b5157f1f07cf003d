package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/archivist/internal/cancellation/domain"
	cancellationUsecase "github.com/allisson/archivist/internal/cancellation/usecase"
	cancellationMocks "github.com/allisson/archivist/internal/cancellation/usecase/mocks"
)

func newTestCancellation() *domain.Cancellation {
	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return domain.New("tenant-1", date, 28*24*time.Hour, date)
}

func TestRunCreateCancellation(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	t.Run("success text", func(t *testing.T) {
		mockUseCase := &cancellationMocks.MockCancellationUseCase{}
		mockUseCase.On("Create", ctx, cancellationUsecase.CreateCancellationInput{
			TenantID:         "tenant-1",
			CancellationDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		}).Return(newTestCancellation(), nil)
		var out bytes.Buffer

		err := RunCreateCancellation(ctx, mockUseCase, logger, &out, "tenant-1", "2026-03-01", "text")
		require.NoError(t, err)
		assert.Contains(t, out.String(), "Tenant:            tenant-1")
		assert.Contains(t, out.String(), "Stage:             created")
		assert.Contains(t, out.String(), "Final deletion:    2026-03-29T00:00:00Z")
		mockUseCase.AssertExpectations(t)
	})

	t.Run("success json", func(t *testing.T) {
		mockUseCase := &cancellationMocks.MockCancellationUseCase{}
		mockUseCase.On("Create", ctx, cancellationUsecase.CreateCancellationInput{
			TenantID:         "tenant-1",
			CancellationDate: time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC),
		}).Return(newTestCancellation(), nil)
		var out bytes.Buffer

		err := RunCreateCancellation(ctx, mockUseCase, logger, &out, "tenant-1", "2026-03-01 12:30:00", "json")
		require.NoError(t, err)

		var view map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &view))
		assert.Equal(t, "tenant-1", view["tenant_id"])
		assert.Equal(t, "created", view["stage"])
		assert.NotContains(t, view, "download_requested")
	})

	t.Run("invalid date", func(t *testing.T) {
		mockUseCase := &cancellationMocks.MockCancellationUseCase{}

		err := RunCreateCancellation(ctx, mockUseCase, logger, &bytes.Buffer{}, "tenant-1", "03/01/2026", "text")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid cancellation date")
		mockUseCase.AssertNotCalled(t, "Create")
	})

	t.Run("invalid format", func(t *testing.T) {
		mockUseCase := &cancellationMocks.MockCancellationUseCase{}

		err := RunCreateCancellation(ctx, mockUseCase, logger, &bytes.Buffer{}, "tenant-1", "2026-03-01", "yaml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid format")
	})

	t.Run("use case error", func(t *testing.T) {
		mockUseCase := &cancellationMocks.MockCancellationUseCase{}
		mockUseCase.On("Create", ctx, cancellationUsecase.CreateCancellationInput{
			TenantID:         "",
			CancellationDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		}).Return(nil, domain.ErrCancellationNotFound)

		err := RunCreateCancellation(ctx, mockUseCase, logger, &bytes.Buffer{}, "", "2026-03-01", "text")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create cancellation")
	})
}

func TestRunGetCancellation(t *testing.T) {
	ctx := context.Background()

	t.Run("shows export details", func(t *testing.T) {
		cancellation := newTestCancellation()
		stamp := time.Date(2026, 3, 5, 8, 0, 0, 0, time.UTC)
		cancellation.DownloadRequested = &stamp
		cancellation.MovedToLongtermArchive = &stamp
		cancellation.CsvCreated = &stamp
		cancellation.BucketObjectID = "tenant-1.csv"
		cancellation.CsvHash = "abc123"
		cancellation.CsvEntityCount = 3
		cancellation.CsvSize = 2048

		mockUseCase := &cancellationMocks.MockCancellationUseCase{}
		mockUseCase.On("Get", ctx, "tenant-1").Return(cancellation, nil)
		var out bytes.Buffer

		err := RunGetCancellation(ctx, mockUseCase, &out, "tenant-1", "text")
		require.NoError(t, err)
		assert.Contains(t, out.String(), "Stage:             csv_created")
		assert.Contains(t, out.String(), "CSV object:        tenant-1.csv (2.0 kB, 3 records)")
		assert.Contains(t, out.String(), "CSV sha256:        abc123")
	})

	t.Run("shows export failure", func(t *testing.T) {
		cancellation := newTestCancellation()
		failedAt := time.Date(2026, 3, 5, 8, 0, 0, 0, time.UTC)
		cancellation.CsvFailedAt = &failedAt
		cancellation.CsvFailureMessage = "bucket unavailable"

		mockUseCase := &cancellationMocks.MockCancellationUseCase{}
		mockUseCase.On("Get", ctx, "tenant-1").Return(cancellation, nil)
		var out bytes.Buffer

		require.NoError(t, RunGetCancellation(ctx, mockUseCase, &out, "tenant-1", "text"))
		assert.Contains(t, out.String(), "CSV failed:        2026-03-05T08:00:00Z (bucket unavailable)")
	})

	t.Run("not found", func(t *testing.T) {
		mockUseCase := &cancellationMocks.MockCancellationUseCase{}
		mockUseCase.On("Get", ctx, "missing").Return(nil, domain.ErrCancellationNotFound)

		err := RunGetCancellation(ctx, mockUseCase, &bytes.Buffer{}, "missing", "text")
		require.ErrorIs(t, err, domain.ErrCancellationNotFound)
	})
}

func TestRunListCancellations(t *testing.T) {
	ctx := context.Background()

	t.Run("text", func(t *testing.T) {
		mockUseCase := &cancellationMocks.MockCancellationUseCase{}
		mockUseCase.On("List", ctx, 0, 50).Return([]*domain.Cancellation{newTestCancellation()}, nil)
		var out bytes.Buffer

		require.NoError(t, RunListCancellations(ctx, mockUseCase, &out, 0, 50, "text"))
		assert.Contains(t, out.String(), "tenant-1")
		assert.Contains(t, out.String(), "cancelled 2026-03-01  final deletion 2026-03-29")
	})

	t.Run("empty text", func(t *testing.T) {
		mockUseCase := &cancellationMocks.MockCancellationUseCase{}
		mockUseCase.On("List", ctx, 100, 50).Return([]*domain.Cancellation{}, nil)
		var out bytes.Buffer

		require.NoError(t, RunListCancellations(ctx, mockUseCase, &out, 100, 50, "text"))
		assert.Equal(t, "No cancellations found\n", out.String())
	})

	t.Run("empty json", func(t *testing.T) {
		mockUseCase := &cancellationMocks.MockCancellationUseCase{}
		mockUseCase.On("List", ctx, 0, 10).Return([]*domain.Cancellation{}, nil)
		var out bytes.Buffer

		require.NoError(t, RunListCancellations(ctx, mockUseCase, &out, 0, 10, "json"))
		assert.JSONEq(t, "[]", out.String())
	})
}

func TestRunRequestDownloadLink(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	t.Run("success", func(t *testing.T) {
		mockUseCase := &cancellationMocks.MockCancellationUseCase{}
		mockUseCase.On("RequestDownloadLink", ctx, "tenant-1", "operator@example.com").
			Return("https://storage.example.com/exports/tenant-1.csv?sig=abc", nil)
		var out bytes.Buffer

		err := RunRequestDownloadLink(ctx, mockUseCase, logger, &out, "tenant-1", "operator@example.com")
		require.NoError(t, err)
		assert.Equal(t, "https://storage.example.com/exports/tenant-1.csv?sig=abc\n", out.String())
		mockUseCase.AssertExpectations(t)
	})

	t.Run("export not ready", func(t *testing.T) {
		mockUseCase := &cancellationMocks.MockCancellationUseCase{}
		mockUseCase.On("RequestDownloadLink", ctx, "tenant-1", "operator@example.com").
			Return("", domain.ErrCSVNotReady)

		err := RunRequestDownloadLink(ctx, mockUseCase, logger, &bytes.Buffer{}, "tenant-1", "operator@example.com")
		require.ErrorIs(t, err, domain.ErrCSVNotReady)
	})

	t.Run("missing user", func(t *testing.T) {
		mockUseCase := &cancellationMocks.MockCancellationUseCase{}

		err := RunRequestDownloadLink(ctx, mockUseCase, logger, &bytes.Buffer{}, "tenant-1", "")
		require.Error(t, err)
		mockUseCase.AssertNotCalled(t, "RequestDownloadLink")
	})
}
