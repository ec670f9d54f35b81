package adapter

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/ferret/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// StorageExporter writes rendered reports to a Cloud Storage bucket under
// {prefix}/{run id}/{name}.
type StorageExporter struct {
	bucketName string
	prefix     string
	client     *storage.Client
}

type StorageOption func(*StorageExporter)

// WithPrefix puts every object under the given path prefix.
func WithPrefix(prefix string) StorageOption {
	return func(s *StorageExporter) {
		s.prefix = strings.Trim(prefix, "/")
	}
}

// NewStorage creates a new Cloud Storage report exporter
func NewStorage(ctx context.Context, bucketName string, opts ...StorageOption) (*StorageExporter, error) {
	if bucketName == "" {
		return nil, goerr.New("bucket name is required")
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}

	s := &StorageExporter{
		bucketName: bucketName,
		client:     client,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ObjectKey returns the object name a report is stored under.
func ObjectKey(prefix string, id model.RunID, name string) string {
	return path.Join(prefix, string(id), name)
}

func contentType(name string) string {
	switch path.Ext(name) {
	case ".json":
		return "application/json"
	case ".md":
		return "text/markdown; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Export uploads data and returns the gs:// URL of the object.
func (s *StorageExporter) Export(ctx context.Context, id model.RunID, name string, data []byte) (string, error) {
	key := ObjectKey(s.prefix, id, name)

	writer := s.client.Bucket(s.bucketName).Object(key).NewWriter(ctx)
	writer.ContentType = contentType(name)

	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return "", goerr.Wrap(err, "failed to write report to storage",
			goerr.V("bucket", s.bucketName),
			goerr.V("key", key))
	}
	if err := writer.Close(); err != nil {
		return "", goerr.Wrap(err, "failed to close storage writer",
			goerr.V("bucket", s.bucketName),
			goerr.V("key", key))
	}

	return fmt.Sprintf("gs://%s/%s", s.bucketName, key), nil
}

// Fetch reads back an exported report.
func (s *StorageExporter) Fetch(ctx context.Context, id model.RunID, name string) ([]byte, error) {
	key := ObjectKey(s.prefix, id, name)
	reader, err := s.client.Bucket(s.bucketName).Object(key).NewReader(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read from storage", goerr.V("key", key))
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read object", goerr.V("key", key))
	}
	return data, nil
}
