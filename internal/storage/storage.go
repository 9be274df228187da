// Package storage publishes finished run artifacts to object storage.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Common errors for storage operations.
var (
	ErrObjectNotFound = errors.New("object not found")
	ErrUploadFailed   = errors.New("upload failed")
)

// ObjectStorage abstracts the object store a run is published to.
// Implementations are S3 and the local filesystem.
type ObjectStorage interface {
	// Upload copies the file at localPath to objectPath.
	Upload(ctx context.Context, localPath, objectPath string) error

	// UploadMultipart uploads large files in parts and returns the ETag of
	// the stored object.
	UploadMultipart(ctx context.Context, localPath, objectPath string) (string, error)

	// Exists reports whether objectPath is present.
	Exists(ctx context.Context, objectPath string) (bool, error)
}

// MultipartUploadConfig holds configuration for multipart uploads.
type MultipartUploadConfig struct {
	// PartSize is the size of each part in bytes (default: 5MB).
	PartSize int64
}

// DefaultMultipartConfig returns the default multipart upload configuration.
func DefaultMultipartConfig() MultipartUploadConfig {
	return MultipartUploadConfig{
		PartSize: 5 * 1024 * 1024,
	}
}

// RetryPolicy bounds the retries of a single storage operation.
type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxElapsedTime  time.Duration
}

// DefaultRetryPolicy retries three times starting at 100ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxElapsedTime:  30 * time.Second,
	}
}

// retry runs op with exponential backoff. Errors wrapped with
// backoff.Permanent stop the loop immediately.
func (p RetryPolicy) retry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxElapsedTime = p.MaxElapsedTime
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, p.MaxRetries), ctx))
}
