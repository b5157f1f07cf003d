package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/archivist/internal/archive/domain"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

var testRecordColumnNames = []string{
	"hashed_guid", "tenant_id", "poc_id", "test_result", "test_brand_id", "test_brand_name",
	"first_name", "last_name", "birthday", "sex", "email", "phone_number", "street", "house_number",
	"zip_code", "city", "created_at", "updated_at",
}

func testRecordRow(rows *sqlmock.Rows, guid string, birthday any, updated time.Time) *sqlmock.Rows {
	return rows.AddRow(
		guid, "tenant-1", "poc-1", 6, "brand-1", "Brand",
		"Anna", "Miller", birthday, "female", "anna@example.com", "+4930", "Main St", "1",
		"10115", "Berlin", updated, updated,
	)
}

func TestPostgreSQLTestRecordRepository_ListUpdatedBefore(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgreSQLTestRecordRepository(db)

	cutoff := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	updated := cutoff.Add(-time.Hour)
	birthday := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(testRecordColumnNames)
	testRecordRow(rows, "guid-1", birthday, updated)
	testRecordRow(rows, "guid-2", nil, updated)

	mock.ExpectQuery(`SELECT (.+) FROM test_records WHERE updated_at < \$1`).
		WithArgs(cutoff, 10).
		WillReturnRows(rows)

	records, err := repo.ListUpdatedBefore(context.Background(), cutoff, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "guid-1", records[0].HashedGUID)
	assert.Equal(t, birthday, records[0].Birthday)
	assert.Equal(t, "Miller", records[0].LastName)
	assert.True(t, records[1].Birthday.IsZero())
}

func TestPostgreSQLTestRecordRepository_ListByTenant(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgreSQLTestRecordRepository(db)

	rows := sqlmock.NewRows(testRecordColumnNames)
	testRecordRow(rows, "guid-1", nil, time.Now().UTC())

	mock.ExpectQuery(`SELECT (.+) FROM test_records WHERE tenant_id = \$1`).
		WithArgs("tenant-1", 5).
		WillReturnRows(rows)

	records, err := repo.ListByTenant(context.Background(), "tenant-1", 5)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "tenant-1", records[0].TenantID)
}

func TestPostgreSQLTestRecordRepository_ListError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgreSQLTestRecordRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM test_records`).WillReturnError(errors.New("connection reset"))

	_, err := repo.ListByTenant(context.Background(), "tenant-1", 5)
	assert.Error(t, err)
}

func TestPostgreSQLTestRecordRepository_CountByTenant(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgreSQLTestRecordRepository(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM test_records WHERE tenant_id = \$1`).
		WithArgs("tenant-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountByTenant(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestPostgreSQLTestRecordRepository_Delete(t *testing.T) {
	t.Run("deleted", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLTestRecordRepository(db)

		mock.ExpectExec(`DELETE FROM test_records WHERE hashed_guid = \$1`).
			WithArgs("guid-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Delete(context.Background(), "guid-1"))
	})

	t.Run("missing", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLTestRecordRepository(db)

		mock.ExpectExec(`DELETE FROM test_records`).
			WithArgs("guid-1").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Delete(context.Background(), "guid-1")
		assert.ErrorIs(t, err, domain.ErrRecordNotFound)
	})
}
