package object

import (
	"context"
	"io"
	"time"
)

// ObjectStore defines the contract for storing and retrieving document blobs.
type ObjectStore interface {
	Put(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	SignedURL(ctx context.Context, storageKey string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, storageKey string) error
}
