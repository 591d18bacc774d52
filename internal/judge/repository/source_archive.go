package repository

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"codejudge/internal/common/storage"
	"codejudge/internal/judge/model"
	appErr "codejudge/pkg/errors"

	"github.com/klauspost/compress/zstd"
)

const (
	archiveKeyFmt      = "submissions/%s/%s.%s.zst"
	archiveContentType = "application/zstd"
)

// ArchiveVerdictSink stores the judged source as a zstd object.
type ArchiveVerdictSink struct {
	storage storage.ObjectStorage
	bucket  string
}

// NewArchiveVerdictSink creates a sink writing into bucket.
func NewArchiveVerdictSink(store storage.ObjectStorage, bucket string) (*ArchiveVerdictSink, error) {
	if store == nil {
		return nil, fmt.Errorf("object storage is required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("archive bucket is required")
	}
	return &ArchiveVerdictSink{storage: store, bucket: bucket}, nil
}

func (s *ArchiveVerdictSink) Name() string { return "archive" }

// Save compresses record.Code and uploads it under ArchiveKey.
func (s *ArchiveVerdictSink) Save(ctx context.Context, record model.VerdictRecord) error {
	if record.ID == "" {
		return appErr.ValidationError("record_id", "required")
	}
	payload, err := CompressSource(record.Code)
	if err != nil {
		return appErr.Wrapf(err, appErr.StorageError, "compress source failed")
	}
	key := ArchiveKey(record)
	if err := s.storage.PutObject(ctx, s.bucket, key, bytes.NewReader(payload), int64(len(payload)), archiveContentType); err != nil {
		return appErr.Wrapf(err, appErr.StorageError, "archive source failed")
	}
	return nil
}

// ArchiveKey returns submissions/<problem>/<id>.<lang>.zst.
func ArchiveKey(record model.VerdictRecord) string {
	problemID := path.Base(path.Clean("/" + record.ProblemID))
	return fmt.Sprintf(archiveKeyFmt, problemID, record.ID, record.Language)
}

// CompressSource zstd-encodes source.
func CompressSource(source string) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = encoder.Close() }()
	return encoder.EncodeAll([]byte(source), nil), nil
}
