package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewArchivePayload(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	record := &ShortTermRecord{
		HashedGUID: "abc",
		TenantID:   "tenant-1",
		PocID:      "poc-1",
		TestResult: 6,
		FirstName:  "Anna",
		LastName:   "Miller",
		Birthday:   time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		City:       "Berlin",
		CreatedAt:  created,
		UpdatedAt:  created,
	}

	payload := NewArchivePayload(record)

	assert.Equal(t, PayloadSchemaVersion, payload.SchemaVersion)
	assert.Equal(t, "2000-01-01", payload.Birthday)
	assert.Equal(t, "Miller", payload.LastName)
	assert.Equal(t, created, payload.CreatedAt)

	data, err := payload.Marshal()
	require.NoError(t, err)

	again, err := NewArchivePayload(record).Marshal()
	require.NoError(t, err)
	assert.Equal(t, data, again)

	decoded, err := UnmarshalPayload(data)
	require.NoError(t, err)
	assert.Equal(t, payload, decoded)
}

func TestNewArchivePayload_ZeroBirthday(t *testing.T) {
	payload := NewArchivePayload(&ShortTermRecord{HashedGUID: "abc"})
	assert.Empty(t, payload.Birthday)
}

func TestUnmarshalPayload_Invalid(t *testing.T) {
	_, err := UnmarshalPayload([]byte("{not json"))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}
