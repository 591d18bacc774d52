package storage

import (
	"context"
	"io"
)

// ObjectStorage defines the object operations used to archive submissions.
type ObjectStorage interface {
	// PutObject uploads sizeBytes bytes from reader.
	PutObject(ctx context.Context, bucket, objectKey string, reader io.Reader, sizeBytes int64, contentType string) error
}
