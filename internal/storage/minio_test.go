package storage

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinIOStorage_Presign(t *testing.T) {
	s, err := NewMinIOStorage(MinIOConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Region:    "us-east-1",
	})
	require.NoError(t, err)

	raw, err := s.Presign(context.Background(), "exports", "tenant-1.csv", 15*time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "http", u.Scheme)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.Contains(t, u.Path, "tenant-1.csv")
	assert.Equal(t, "900", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
}

func TestNewMinIOStorage_InvalidEndpoint(t *testing.T) {
	_, err := NewMinIOStorage(MinIOConfig{Endpoint: "http://localhost:9000"})
	assert.Error(t, err)
}

func TestIsMinIONotFound(t *testing.T) {
	assert.True(t, isMinIONotFound(minio.ErrorResponse{Code: minio.NoSuchKey}))
	assert.True(t, isMinIONotFound(minio.ErrorResponse{Code: minio.NoSuchBucket}))
	assert.False(t, isMinIONotFound(minio.ErrorResponse{Code: "AccessDenied"}))
	assert.False(t, isMinIONotFound(errors.New("dial tcp: connection refused")))
}
