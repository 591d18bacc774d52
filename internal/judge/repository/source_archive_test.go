package repository_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"codejudge/internal/judge/model"
	"codejudge/internal/judge/repository"
	appErr "codejudge/pkg/errors"

	"github.com/klauspost/compress/zstd"
)

type memoryStorage struct {
	objects     map[string][]byte
	contentType string
	err         error
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: map[string][]byte{}}
}

func (m *memoryStorage) PutObject(_ context.Context, bucket, key string, reader io.Reader, size int64, contentType string) error {
	if m.err != nil {
		return m.err
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return errors.New("size mismatch")
	}
	m.objects[bucket+"/"+key] = data
	m.contentType = contentType
	return nil
}

func TestArchiveStoresCompressedSource(t *testing.T) {
	store := newMemoryStorage()
	sink, err := repository.NewArchiveVerdictSink(store, "submissions")
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	source := strings.Repeat("print('hello')\n", 200)
	record := model.VerdictRecord{ID: "rec-1", ProblemID: "p1", Language: "py", Code: source}

	if err := sink.Save(t.Context(), record); err != nil {
		t.Fatalf("save: %v", err)
	}
	stored, ok := store.objects["submissions/submissions/p1/rec-1.py.zst"]
	if !ok {
		t.Fatalf("object not stored under expected key, have %v", store.objects)
	}
	if len(stored) >= len(source) {
		t.Fatalf("expected compressed payload, got %d bytes for %d", len(stored), len(source))
	}
	if store.contentType != "application/zstd" {
		t.Fatalf("unexpected content type %q", store.contentType)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		t.Fatalf("new decoder: %v", err)
	}
	defer decoder.Close()
	decoded, err := decoder.DecodeAll(stored, nil)
	if err != nil {
		t.Fatalf("decode archived source: %v", err)
	}
	if string(decoded) != source {
		t.Fatalf("archived source mismatch")
	}
}

func TestArchiveKeySanitizesProblemID(t *testing.T) {
	cases := []struct {
		problemID string
		expect    string
	}{
		{problemID: "p1", expect: "submissions/p1/id.cpp.zst"},
		{problemID: "../../etc", expect: "submissions/etc/id.cpp.zst"},
		{problemID: "a/b", expect: "submissions/b/id.cpp.zst"},
	}
	for _, tc := range cases {
		got := repository.ArchiveKey(model.VerdictRecord{ID: "id", ProblemID: tc.problemID, Language: "cpp"})
		if got != tc.expect {
			t.Fatalf("ArchiveKey(%q) = %q, want %q", tc.problemID, got, tc.expect)
		}
	}
}

func TestArchiveStorageFailure(t *testing.T) {
	store := newMemoryStorage()
	store.err = errors.New("bucket gone")
	sink, err := repository.NewArchiveVerdictSink(store, "submissions")
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	err = sink.Save(t.Context(), model.VerdictRecord{ID: "rec", ProblemID: "p", Language: "c"})
	if appErr.GetCode(err) != appErr.StorageError {
		t.Fatalf("expected StorageError, got %v", err)
	}
}

func TestNewArchiveVerdictSinkValidates(t *testing.T) {
	if _, err := repository.NewArchiveVerdictSink(nil, "b"); err == nil {
		t.Fatalf("expected error for nil storage")
	}
	if _, err := repository.NewArchiveVerdictSink(newMemoryStorage(), ""); err == nil {
		t.Fatalf("expected error for empty bucket")
	}
}
