package interfaces

import (
	"context"

	"github.com/m-mizutani/ferret/pkg/model"
)

// RunRepository defines persistence of finished research runs
type RunRepository interface {
	// PutRun saves a run snapshot, replacing one with the same ID
	PutRun(ctx context.Context, run *model.RunSnapshot) error

	// GetRun retrieves a run by ID. It returns model.ErrNotFound when absent.
	GetRun(ctx context.Context, id model.RunID) (*model.RunSnapshot, error)

	// ListRuns returns up to limit runs, newest first
	ListRuns(ctx context.Context, limit int) ([]*model.RunSnapshot, error)

	// LatestRun returns the newest run, or model.ErrNotFound when there is none
	LatestRun(ctx context.Context) (*model.RunSnapshot, error)
}

// ReportExporter writes a rendered report to external storage and returns its location.
type ReportExporter interface {
	Export(ctx context.Context, id model.RunID, name string, data []byte) (string, error)
}
