// Package repository persists finished research runs. Snapshots carry the run result and
// the memory export as JSON, so every backend stores them as opaque text.
package repository

import (
	"context"
	"slices"
	"sync"

	"github.com/m-mizutani/ferret/pkg/interfaces"
	"github.com/m-mizutani/ferret/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

var (
	_ interfaces.RunRepository = (*Memory)(nil)
	_ interfaces.RunRepository = (*Firestore)(nil)
	_ interfaces.RunRepository = (*SQLite)(nil)
)

const DefaultListLimit = 20

// Memory keeps runs in process. It is used by tests and when no persistent backend is
// configured.
type Memory struct {
	mu   sync.RWMutex
	runs map[model.RunID]*model.RunSnapshot
}

func NewMemory() *Memory {
	return &Memory{
		runs: make(map[model.RunID]*model.RunSnapshot),
	}
}

func (r *Memory) PutRun(ctx context.Context, run *model.RunSnapshot) error {
	if run == nil || run.ID == "" {
		return goerr.Wrap(model.ErrMalformedInput, "run snapshot without ID")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *run
	r.runs[run.ID] = &copied
	return nil
}

func (r *Memory) GetRun(ctx context.Context, id model.RunID) (*model.RunSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.runs[id]
	if !ok {
		return nil, goerr.Wrap(model.ErrNotFound, "run not found", goerr.V("id", id))
	}
	copied := *run
	return &copied, nil
}

func (r *Memory) ListRuns(ctx context.Context, limit int) ([]*model.RunSnapshot, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	runs := make([]*model.RunSnapshot, 0, len(r.runs))
	for _, run := range r.runs {
		copied := *run
		runs = append(runs, &copied)
	}
	slices.SortFunc(runs, func(a, b *model.RunSnapshot) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (r *Memory) LatestRun(ctx context.Context) (*model.RunSnapshot, error) {
	return latest(ctx, r)
}

func latest(ctx context.Context, repo interfaces.RunRepository) (*model.RunSnapshot, error) {
	runs, err := repo.ListRuns(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, goerr.Wrap(model.ErrNotFound, "no run saved")
	}
	return runs[0], nil
}
