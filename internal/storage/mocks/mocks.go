// Package mocks provides mock implementations of the storage interfaces.
package mocks

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/allisson/archivist/internal/storage"
)

// MockObjectStorage is a mock implementation of storage.ObjectStorage.
type MockObjectStorage struct {
	mock.Mock
}

func (m *MockObjectStorage) PutObject(
	ctx context.Context,
	bucket, key string,
	r io.Reader,
	size int64,
	metadata map[string]string,
) error {
	args := m.Called(ctx, bucket, key, r, size, metadata)
	return args.Error(0)
}

func (m *MockObjectStorage) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, bucket, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockObjectStorage) DeleteObject(ctx context.Context, bucket, key string) error {
	args := m.Called(ctx, bucket, key)
	return args.Error(0)
}

func (m *MockObjectStorage) ObjectExists(ctx context.Context, bucket, key string) (bool, error) {
	args := m.Called(ctx, bucket, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockObjectStorage) Presign(
	ctx context.Context,
	bucket, key string,
	expiry time.Duration,
) (string, error) {
	args := m.Called(ctx, bucket, key, expiry)
	return args.String(0), args.Error(1)
}

var _ storage.ObjectStorage = (*MockObjectStorage)(nil)
