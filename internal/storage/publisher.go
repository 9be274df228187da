package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	generrors "github.com/arkilian/telemetrygen/internal/errors"
	"github.com/golang/snappy"
	"github.com/sirupsen/logrus"
)

// CompressedSuffix marks objects written in the snappy framing format.
const CompressedSuffix = ".sz"

// Published describes one uploaded artifact.
type Published struct {
	LocalPath string
	Key       string
	ETag      string
}

// Publisher uploads the artifacts of a run under runs/<run_id>/.
type Publisher struct {
	store    ObjectStorage
	prefix   string
	compress bool
	log      *logrus.Entry
}

// NewPublisher creates a publisher. When compress is set every file is
// uploaded in the snappy framing format with a .sz suffix.
func NewPublisher(store ObjectStorage, compress bool, log *logrus.Entry) *Publisher {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Publisher{store: store, prefix: "runs", compress: compress, log: log}
}

// KeyFor returns the object key of a local file for runID.
func (p *Publisher) KeyFor(runID, localPath string) string {
	key := path.Join(p.prefix, runID, filepath.Base(localPath))
	if p.compress {
		key += CompressedSuffix
	}
	return key
}

// Publish uploads files in order and verifies each one is visible afterwards.
func (p *Publisher) Publish(ctx context.Context, runID string, files ...string) ([]Published, error) {
	out := make([]Published, 0, len(files))
	for _, local := range files {
		item, err := p.publishOne(ctx, runID, local)
		if err != nil {
			return out, err
		}
		out = append(out, item)
	}
	return out, nil
}

// publishOne uploads one file. A compressed temp copy is removed before
// returning.
func (p *Publisher) publishOne(ctx context.Context, runID, local string) (Published, error) {
	key := p.KeyFor(runID, local)

	src := local
	if p.compress {
		tmp, err := compressToTemp(local)
		if err != nil {
			return Published{}, generrors.NewStorageError(generrors.CodeUploadFailed, "failed to compress "+local, err)
		}
		defer os.Remove(tmp)
		src = tmp
	}

	etag, err := p.store.UploadMultipart(ctx, src, key)
	if err != nil {
		return Published{}, generrors.NewStorageError(generrors.CodeUploadFailed, "failed to upload "+key, err)
	}
	ok, err := p.store.Exists(ctx, key)
	if err != nil {
		return Published{}, generrors.NewStorageError(generrors.CodeUploadFailed, "failed to verify "+key, err)
	}
	if !ok {
		return Published{}, generrors.NewStorageError(generrors.CodeObjectNotFound, key+" missing after upload", ErrObjectNotFound)
	}

	p.log.WithFields(logrus.Fields{"key": key, "etag": etag}).Info("artifact published")
	return Published{LocalPath: local, Key: key, ETag: etag}, nil
}

// compressToTemp writes a snappy-framed copy of path to a temp file.
func compressToTemp(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*"+CompressedSuffix)
	if err != nil {
		return "", err
	}

	w := snappy.NewBufferedWriter(tmp)
	if _, err := io.Copy(w, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("compress: %w", err)
	}
	if err := w.Close(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("compress: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}
