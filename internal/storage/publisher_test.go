package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	generrors "github.com/arkilian/telemetrygen/internal/errors"
	"github.com/golang/snappy"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func quietLogger() *logrus.Entry {
	logger, _ := test.NewNullLogger()
	return logrus.NewEntry(logger)
}

func writeArtifact(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	return path
}

func TestPublisher_Plain(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create local storage: %v", err)
	}
	db := writeArtifact(t, "telemetry.db", []byte("sqlite bytes"))
	man := writeArtifact(t, "telemetry.db.manifest.json", []byte(`{"seed":1}`))

	pub := NewPublisher(store, false, quietLogger())
	out, err := pub.Publish(context.Background(), "run-1", db, man)
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("published %d artifacts, want 2", len(out))
	}
	if out[0].Key != "runs/run-1/telemetry.db" {
		t.Errorf("key = %s", out[0].Key)
	}
	got, err := os.ReadFile(store.Path(out[1].Key))
	if err != nil {
		t.Fatalf("read published: %v", err)
	}
	if string(got) != `{"seed":1}` {
		t.Errorf("published content = %q", got)
	}
}

func TestPublisher_SnappyRoundTrip(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create local storage: %v", err)
	}
	content := bytes.Repeat([]byte("session,event,purchase\n"), 500)
	db := writeArtifact(t, "telemetry.db", content)

	pub := NewPublisher(store, true, quietLogger())
	out, err := pub.Publish(context.Background(), "run-2", db)
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if out[0].Key != "runs/run-2/telemetry.db.sz" {
		t.Errorf("key = %s", out[0].Key)
	}

	f, err := os.Open(store.Path(out[0].Key))
	if err != nil {
		t.Fatalf("open published: %v", err)
	}
	defer f.Close()
	decoded, err := io.ReadAll(snappy.NewReader(f))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(decoded, content) {
		t.Error("decoded content differs from source")
	}

	// Temp files are cleaned up
	entries, err := os.ReadDir(filepath.Dir(db))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the source file to remain, found %d entries", len(entries))
	}
}

type vanishingStorage struct{ *LocalStorage }

func (vanishingStorage) Exists(context.Context, string) (bool, error) { return false, nil }

func TestPublisher_MissingAfterUpload(t *testing.T) {
	local, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create local storage: %v", err)
	}
	db := writeArtifact(t, "telemetry.db", []byte("x"))

	pub := NewPublisher(vanishingStorage{local}, false, quietLogger())
	_, err = pub.Publish(context.Background(), "run-3", db)
	if err == nil {
		t.Fatal("expected error")
	}
	if generrors.GetCode(err) != generrors.CodeObjectNotFound {
		t.Errorf("code = %s, want %s", generrors.GetCode(err), generrors.CodeObjectNotFound)
	}
	if !errors.Is(err, ErrObjectNotFound) {
		t.Error("expected ErrObjectNotFound in chain")
	}
}

func TestPublisher_UploadFailure(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create local storage: %v", err)
	}
	pub := NewPublisher(store, false, quietLogger())
	_, err = pub.Publish(context.Background(), "run-4", filepath.Join(t.TempDir(), "absent.db"))
	if !generrors.IsRetryable(err) {
		t.Errorf("upload failure should be retryable: %v", err)
	}
}

// tempCountingStorage records how many compressed temp files sit next to the
// source at each upload.
type tempCountingStorage struct {
	*LocalStorage
	counts []int
}

func (s *tempCountingStorage) UploadMultipart(ctx context.Context, localPath, objectPath string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(filepath.Dir(localPath), "*"+CompressedSuffix))
	if err != nil {
		return "", err
	}
	s.counts = append(s.counts, len(matches))
	return s.LocalStorage.UploadMultipart(ctx, localPath, objectPath)
}

func TestPublisher_RemovesTempFilePerArtifact(t *testing.T) {
	local, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create local storage: %v", err)
	}
	dir := t.TempDir()
	var files []string
	for _, name := range []string{"a.db", "b.db", "c.db"} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(name), 0644); err != nil {
			t.Fatalf("write artifact: %v", err)
		}
		files = append(files, path)
	}

	counting := &tempCountingStorage{LocalStorage: local}
	pub := NewPublisher(counting, true, quietLogger())
	if _, err := pub.Publish(context.Background(), "run-5", files...); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	for i, n := range counting.counts {
		if n != 1 {
			t.Errorf("upload %d saw %d temp files, want only its own", i, n)
		}
	}
	leftover, _ := filepath.Glob(filepath.Join(dir, "*"+CompressedSuffix))
	if len(leftover) != 0 {
		t.Errorf("temp files left behind: %v", leftover)
	}
}
