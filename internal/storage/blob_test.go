package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"
)

func newMemStorage(t *testing.T) *BlobStorage {
	t.Helper()
	s := NewBlobStorage(memblob.OpenBucket(nil))
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func TestBlobStorage_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := newMemStorage(t)
	content := "hashed_guid\tversion\nguid-1\t1\n"

	exists, err := s.ObjectExists(ctx, "exports", "tenant-1.csv")
	require.NoError(t, err)
	assert.False(t, exists)

	err = s.PutObject(ctx, "exports", "tenant-1.csv", strings.NewReader(content), int64(len(content)),
		map[string]string{"sha256": "abc"})
	require.NoError(t, err)

	exists, err = s.ObjectExists(ctx, "exports", "tenant-1.csv")
	require.NoError(t, err)
	assert.True(t, exists)

	r, err := s.GetObject(ctx, "exports", "tenant-1.csv")
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, content, string(data))

	require.NoError(t, s.DeleteObject(ctx, "exports", "tenant-1.csv"))
	exists, err = s.ObjectExists(ctx, "exports", "tenant-1.csv")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestBlobStorage_BucketsArePrefixes(t *testing.T) {
	ctx := context.Background()
	s := newMemStorage(t)

	require.NoError(t, s.PutObject(ctx, "a", "key", strings.NewReader("x"), 1, nil))

	exists, err := s.ObjectExists(ctx, "b", "key")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestBlobStorage_GetMissing(t *testing.T) {
	_, err := newMemStorage(t).GetObject(context.Background(), "exports", "missing.csv")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestBlobStorage_DeleteMissing(t *testing.T) {
	assert.NoError(t, newMemStorage(t).DeleteObject(context.Background(), "exports", "missing.csv"))
}

func TestBlobStorage_ShortWrite(t *testing.T) {
	ctx := context.Background()
	s := newMemStorage(t)

	err := s.PutObject(ctx, "exports", "short.csv", strings.NewReader("abc"), 10, nil)
	assert.Error(t, err)
}

func TestOpenBlobStorage(t *testing.T) {
	s, err := OpenBlobStorage(context.Background(), "mem://")
	require.NoError(t, err)
	assert.NoError(t, s.Close())

	_, err = OpenBlobStorage(context.Background(), "unknown://bucket")
	assert.Error(t, err)
}
