// Package storage provides the object storage used for cancellation exports.
package storage

import (
	"context"
	"io"
	"time"

	"github.com/allisson/archivist/internal/errors"
)

// ErrObjectNotFound indicates the object does not exist.
var ErrObjectNotFound = errors.Wrap(errors.ErrNotFound, "object not found")

// ObjectStorage is a bucket/key object store.
type ObjectStorage interface {
	// PutObject uploads size bytes from r. Metadata is stored as user metadata.
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, metadata map[string]string) error

	// GetObject opens an object for reading. Callers must close the reader.
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)

	// DeleteObject removes an object. Deleting a missing object is not an error.
	DeleteObject(ctx context.Context, bucket, key string) error

	// ObjectExists reports whether an object exists.
	ObjectExists(ctx context.Context, bucket, key string) (bool, error)

	// Presign returns a time-limited download URL.
	Presign(ctx context.Context, bucket, key string, expiry time.Duration) (string, error)
}
