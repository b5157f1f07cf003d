package export

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/archivist/internal/archive/domain"
)

func TestArchiveRow(t *testing.T) {
	archivedAt := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	record := &domain.ArchivedRecord{HashedGUID: "guid-1", Version: 2, CreatedAt: archivedAt}
	payload := &domain.ArchivePayload{
		TenantID:   "tenant-1",
		TestResult: 6,
		LastName:   "Miller",
		Birthday:   "2000-01-01",
		Street:     "Main St\t4",
		CreatedAt:  archivedAt.Add(-time.Hour),
	}

	row := ArchiveRow(record, payload)

	require.Len(t, row, len(ArchiveColumns))
	assert.Equal(t, "guid-1", row[0])
	assert.Equal(t, "2", row[1])
	assert.Equal(t, "2026-03-01T09:30:00Z", row[2])
	assert.Equal(t, "6", row[5])
	assert.Equal(t, "Miller", row[9])
	assert.Equal(t, "2000-01-01", row[10])
	assert.Equal(t, "2026-03-01T08:30:00Z", row[18])
	assert.Empty(t, row[19])

	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.Write(ArchiveColumns))
	require.NoError(t, w.Write(row))
	require.NoError(t, w.Flush())

	rows, err := NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{ArchiveColumns, row}, rows)
}

func TestDigestWriter(t *testing.T) {
	var buf bytes.Buffer
	d := NewDigestWriter(&buf)

	_, err := d.Write([]byte("hello "))
	require.NoError(t, err)
	_, err = d.Write([]byte("world"))
	require.NoError(t, err)

	sum := sha256.Sum256([]byte("hello world"))
	assert.Equal(t, hex.EncodeToString(sum[:]), d.Sum())
	assert.Equal(t, int64(11), d.Size())
	assert.Equal(t, "hello world", buf.String())
}
