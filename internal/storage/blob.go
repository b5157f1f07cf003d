package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	"gocloud.dev/gcerrors"
)

// BlobStorage stores objects in a gocloud.dev/blob bucket. The storage bucket
// name becomes a key prefix inside the opened bucket.
type BlobStorage struct {
	bucket *blob.Bucket
}

// OpenBlobStorage opens a bucket URL such as "file:///var/lib/archivist" or "mem://".
func OpenBlobStorage(ctx context.Context, url string) (*BlobStorage, error) {
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open blob bucket: %w", err)
	}
	return NewBlobStorage(bucket), nil
}

// NewBlobStorage wraps an already opened bucket.
func NewBlobStorage(bucket *blob.Bucket) *BlobStorage {
	return &BlobStorage{bucket: bucket}
}

func (b *BlobStorage) PutObject(
	ctx context.Context,
	bucket, key string,
	r io.Reader,
	size int64,
	metadata map[string]string,
) error {
	w, err := b.bucket.NewWriter(ctx, objectKey(bucket, key), &blob.WriterOptions{
		ContentType: csvContentType,
		Metadata:    metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to open object writer: %w", err)
	}
	written, err := io.Copy(w, r)
	if err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write object: %w", err)
	}
	if size >= 0 && written != size {
		_ = w.Close()
		return fmt.Errorf("short object write: wrote %d of %d bytes", written, size)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to commit object: %w", err)
	}
	return nil
}

func (b *BlobStorage) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	r, err := b.bucket.NewReader(ctx, objectKey(bucket, key), nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to open object: %w", err)
	}
	return r, nil
}

func (b *BlobStorage) DeleteObject(ctx context.Context, bucket, key string) error {
	err := b.bucket.Delete(ctx, objectKey(bucket, key))
	if err != nil && gcerrors.Code(err) != gcerrors.NotFound {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func (b *BlobStorage) ObjectExists(ctx context.Context, bucket, key string) (bool, error) {
	exists, err := b.bucket.Exists(ctx, objectKey(bucket, key))
	if err != nil {
		return false, fmt.Errorf("failed to check object: %w", err)
	}
	return exists, nil
}

func (b *BlobStorage) Presign(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	url, err := b.bucket.SignedURL(ctx, objectKey(bucket, key), &blob.SignedURLOptions{
		Expiry: expiry,
		Method: http.MethodGet,
	})
	if err != nil {
		return "", fmt.Errorf("failed to presign object: %w", err)
	}
	return url, nil
}

// Close releases the underlying bucket.
func (b *BlobStorage) Close() error {
	return b.bucket.Close()
}

func objectKey(bucket, key string) string {
	if bucket == "" {
		return key
	}
	return bucket + "/" + key
}
