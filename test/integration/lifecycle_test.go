// Package integration runs the archive and cancellation pipeline end to end
// against PostgreSQL and MySQL.
package integration

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/archivist/internal/app"
	cancellationDomain "github.com/allisson/archivist/internal/cancellation/domain"
	cancellationUsecase "github.com/allisson/archivist/internal/cancellation/usecase"
	"github.com/allisson/archivist/internal/config"
	custodyService "github.com/allisson/archivist/internal/custody/service"
	"github.com/allisson/archivist/internal/testutil"
)

// directoryStub records the tenants whose entries were removed.
type directoryStub struct {
	mu    sync.Mutex
	paths []string
}

func (d *directoryStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	d.paths = append(d.paths, r.Method+" "+r.URL.Path)
	d.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (d *directoryStub) calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.paths...)
}

// integrationTestContext holds all dependencies and state for one driver.
type integrationTestContext struct {
	container *app.Container
	db        *sql.DB
	directory *directoryStub
	driver    string
}

func setupIntegrationTest(t *testing.T, driver string) *integrationTestContext {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	testutil.SkipIfNoDB(t, driver)

	db := testutil.SetupDB(t, driver)

	pemBytes, _, err := custodyService.GenerateKeystoreEntry("archive-2026", 2048)
	require.NoError(t, err)
	keystorePath := filepath.Join(t.TempDir(), "keystore.pem")
	require.NoError(t, os.WriteFile(keystorePath, pemBytes, 0o600))

	directory := &directoryStub{}
	directoryServer := httptest.NewServer(directory)
	t.Cleanup(directoryServer.Close)

	dsn := testutil.GetPostgresTestDSN()
	if driver == "mysql" {
		dsn = testutil.GetMySQLTestDSN()
	}

	job := config.JobConfig{Enabled: true, Schedule: "@hourly", LockTTL: time.Minute}
	cfg := &config.Config{
		LogLevel:                   "warn",
		DBDriver:                   driver,
		DBConnectionString:         dsn,
		DBMaxOpenConnections:       5,
		DBMaxIdleConnections:       2,
		DBConnMaxLifetime:          time.Minute,
		MetricsNamespace:           "archivist",
		CustodyProvider:            config.CustodyKeystore,
		CustodyRequestTimeout:      5 * time.Second,
		CustodyPepper:              "integration-pepper",
		CustodyKeystorePath:        keystorePath,
		CustodyKeystoreAliasPrefix: "archive",
		ArchiveSecretAlgorithm:     "chacha20-poly1305",
		ArchiveHashAlgorithm:       "SHA-256",
		ArchiveBatchSize:           2,
		ArchiveMaxBatches:          100,
		ArchiveMigrationOlderThan:  30 * 24 * time.Hour,
		ArchiveMigrationJob:        job,
		CancellationRetention:      28 * 24 * time.Hour,
		CancellationTriggerLead:    672 * time.Hour,
		CancellationTempDir:        t.TempDir(),
		TriggerDownloadJob:         job,
		ArchiveTenantJob:           job,
		CSVUploadJob:               job,
		DirectoryRemovalJob:        job,
		FinalDeletionJob:           job,
		StorageProvider:            config.StorageBlob,
		StorageBucket:              "exports",
		StorageBlobURL:             "mem://",
		LockProvider:               config.LockLocal,
		DirectoryBaseURL:           directoryServer.URL,
		DirectoryTimeout:           5 * time.Second,
		DirectoryRequestsPerSec:    100,
		DirectoryBurst:             10,
	}
	require.NoError(t, cfg.Validate())

	container := app.NewContainer(cfg)
	t.Cleanup(func() {
		assert.NoError(t, container.Shutdown(context.Background()))
		testutil.TeardownDB(t, db)
	})

	return &integrationTestContext{
		container: container,
		db:        db,
		directory: directory,
		driver:    driver,
	}
}

func TestArchiveLifecycle(t *testing.T) {
	for _, driver := range []string{"postgres", "mysql"} {
		t.Run(driver, func(t *testing.T) {
			tc := setupIntegrationTest(t, driver)
			ctx := context.Background()

			recent := testutil.NewTestRecord("tenant-b", "guid-b1")
			recent.UpdatedAt = time.Now().UTC().Truncate(time.Second)
			other := testutil.NewTestRecord("tenant-a", "guid-a3")
			other.LastName = "Musterfrau"

			testutil.CreateTestRecord(t, tc.db, driver, testutil.NewTestRecord("tenant-a", "guid-a1"))
			testutil.CreateTestRecord(t, tc.db, driver, testutil.NewTestRecord("tenant-a", "guid-a2"))
			testutil.CreateTestRecord(t, tc.db, driver, other)
			testutil.CreateTestRecord(t, tc.db, driver, recent)

			archiveUseCase, err := tc.container.ArchiveUseCase()
			require.NoError(t, err)
			cancellationUseCase, err := tc.container.CancellationUseCase()
			require.NoError(t, err)

			t.Run("migrate eligible records", func(t *testing.T) {
				result, err := archiveUseCase.MigrateEligible(ctx, tc.container.Config().ArchiveMigrationOlderThan)
				require.NoError(t, err)
				assert.Equal(t, 3, result.Processed)
				assert.Zero(t, result.Failed)

				assert.Equal(t, 1, testutil.CountRows(t, tc.db, "test_records"))
				assert.Equal(t, 3, testutil.CountRows(t, tc.db, "test_record_archives"))

				count, err := archiveUseCase.CountByTenant(ctx, "tenant-a")
				require.NoError(t, err)
				assert.Equal(t, int64(0), count.ShortTerm)
				assert.Equal(t, int64(3), count.Archived)
			})

			t.Run("look up archived records", func(t *testing.T) {
				payload, err := archiveUseCase.GetDecrypted(ctx, "guid-a1")
				require.NoError(t, err)
				assert.Equal(t, "tenant-a", payload.TenantID)
				assert.Equal(t, "Mustermann", payload.LastName)
				assert.Equal(t, "1964-08-12", payload.Birthday)

				payloads, err := archiveUseCase.FindByIdentifier(
					ctx,
					time.Date(1964, 8, 12, 0, 0, 0, 0, time.UTC),
					"Mustermann",
				)
				require.NoError(t, err)
				assert.Len(t, payloads, 2)
			})

			t.Run("cancel tenant", func(t *testing.T) {
				created, err := cancellationUseCase.Create(ctx, cancellationUsecase.CreateCancellationInput{
					TenantID:         "tenant-b",
					CancellationDate: time.Now().UTC().AddDate(0, 0, -60),
				})
				require.NoError(t, err)
				assert.Equal(t, cancellationDomain.StageCreated, created.Stage())

				// Creating again is idempotent
				again, err := cancellationUseCase.Create(ctx, cancellationUsecase.CreateCancellationInput{
					TenantID:         "tenant-b",
					CancellationDate: time.Now().UTC(),
				})
				require.NoError(t, err)
				assert.WithinDuration(t, created.CancellationDate, again.CancellationDate, time.Second)

				_, err = cancellationUseCase.TriggerDownloads(ctx)
				require.NoError(t, err)
				_, err = cancellationUseCase.ArchiveTenants(ctx)
				require.NoError(t, err)
				assert.Equal(t, 0, testutil.CountRows(t, tc.db, "test_records"))

				_, err = cancellationUseCase.CreateCSVs(ctx)
				require.NoError(t, err)

				cancellation, err := cancellationUseCase.Get(ctx, "tenant-b")
				require.NoError(t, err)
				assert.Equal(t, cancellationDomain.StageCSVCreated, cancellation.Stage())
				assert.Equal(t, int64(1), cancellation.CsvEntityCount)
				assert.NotEmpty(t, cancellation.CsvHash)

				objectStorage, err := tc.container.ObjectStorage()
				require.NoError(t, err)
				exists, err := objectStorage.ObjectExists(ctx, "exports", cancellation.BucketObjectID)
				require.NoError(t, err)
				assert.True(t, exists)

				_, err = cancellationUseCase.RemoveDirectoryEntries(ctx)
				require.NoError(t, err)
				assert.Equal(t, []string{"DELETE /tenants/tenant-b/entries"}, tc.directory.calls())

				_, err = cancellationUseCase.DeleteExpiredData(ctx)
				require.NoError(t, err)

				cancellation, err = cancellationUseCase.Get(ctx, "tenant-b")
				require.NoError(t, err)
				assert.Equal(t, cancellationDomain.StageDataDeleted, cancellation.Stage())

				exists, err = objectStorage.ObjectExists(ctx, "exports", cancellation.BucketObjectID)
				require.NoError(t, err)
				assert.False(t, exists)

				// Only tenant-a remains in the archive
				assert.Equal(t, 3, testutil.CountRows(t, tc.db, "test_record_archives"))
			})

			t.Run("run job by name", func(t *testing.T) {
				runner, err := tc.container.JobRunner()
				require.NoError(t, err)

				outcome, err := runner.RunNow(ctx, app.JobDeleteExpiredData)
				require.NoError(t, err)
				assert.Equal(t, "success", string(outcome))
			})
		})
	}
}
