package adapter_test

import (
	"context"
	"os"
	"testing"

	"github.com/m-mizutani/ferret/pkg/adapter"
	"github.com/m-mizutani/ferret/pkg/model"
	"github.com/m-mizutani/gt"
)

func TestObjectKey(t *testing.T) {
	gt.Equal(t, adapter.ObjectKey("", "run-1", "report.md"), "run-1/report.md")
	gt.Equal(t, adapter.ObjectKey("reports/daily", "run-1", "report.json"), "reports/daily/run-1/report.json")
}

func TestStorageExport(t *testing.T) {
	bucket := os.Getenv("TEST_STORAGE_BUCKET")
	if bucket == "" {
		t.Skip("TEST_STORAGE_BUCKET is not set")
	}

	ctx := context.Background()
	exporter, err := adapter.NewStorage(ctx, bucket, adapter.WithPrefix("/ferret-test/"))
	gt.NoError(t, err)

	id := model.NewRunID()
	url, err := exporter.Export(ctx, id, "report.md", []byte("# Report"))
	gt.NoError(t, err)
	gt.Equal(t, url, "gs://"+bucket+"/ferret-test/"+string(id)+"/report.md")

	data, err := exporter.Fetch(ctx, id, "report.md")
	gt.NoError(t, err)
	gt.Equal(t, string(data), "# Report")
}

func TestNewStorageRequiresBucket(t *testing.T) {
	_, err := adapter.NewStorage(context.Background(), "")
	gt.Error(t, err)
}
