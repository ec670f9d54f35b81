package research_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/ferret/pkg/memory"
	"github.com/m-mizutani/ferret/pkg/model"
	"github.com/m-mizutani/ferret/pkg/repository"
	"github.com/m-mizutani/ferret/pkg/usecase/research"
	"github.com/m-mizutani/gt"
)

type mockExporter struct {
	exportFunc func(ctx context.Context, id model.RunID, name string, data []byte) (string, error)
	calls      int
}

func (m *mockExporter) Export(ctx context.Context, id model.RunID, name string, data []byte) (string, error) {
	m.calls++
	return m.exportFunc(ctx, id, name, data)
}

func TestSessionSavesAndExports(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()

	var exported string
	exporter := &mockExporter{
		exportFunc: func(ctx context.Context, id model.RunID, name string, data []byte) (string, error) {
			gt.Equal(t, name, research.ReportFileName)
			exported = string(data)
			return "gs://reports/" + string(id) + "/" + name, nil
		},
	}

	crew := research.New(newMockExecutor(defaultOutputs()), research.WithClock(clock))
	session := research.NewSession(crew,
		research.WithRepository(repo),
		research.WithExporter(exporter),
		research.WithSessionClock(clock),
	)

	out, err := session.Research(ctx, "remote work trends")
	gt.NoError(t, err)
	gt.True(t, out.Result.Success)
	gt.True(t, out.Saved)
	gt.S(t, out.ExportURL).Contains(string(out.RunID))
	gt.S(t, exported).Contains("Research Report: Remote Work Trends")

	snap, err := repo.GetRun(ctx, out.RunID)
	gt.NoError(t, err)
	gt.Equal(t, snap.Query, "remote work trends")
	gt.Equal(t, snap.ReportTitle, "Research Report: Remote Work Trends")
	gt.True(t, snap.Success)
	gt.Equal(t, snap.CreatedAt, fixedNow)
}

func TestSessionSavesFailedRunWithoutExport(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	exporter := &mockExporter{}

	exec := newMockExecutor(defaultOutputs())
	exec.execFunc = func(ctx context.Context, task *model.Task) (string, error) {
		return "", errors.New("model unavailable")
	}
	session := research.NewSession(research.New(exec, research.WithClock(clock)),
		research.WithRepository(repo),
		research.WithExporter(exporter),
	)

	out, err := session.Research(ctx, "remote work trends")
	gt.NoError(t, err)
	gt.False(t, out.Result.Success)
	gt.True(t, out.Saved)
	gt.Equal(t, out.ExportURL, "")
	gt.Equal(t, exporter.calls, 0)

	snap, err := repo.GetRun(ctx, out.RunID)
	gt.NoError(t, err)
	gt.False(t, snap.Success)
	gt.Equal(t, len(snap.Memory), 0)
}

func TestSessionExportError(t *testing.T) {
	exporter := &mockExporter{
		exportFunc: func(ctx context.Context, id model.RunID, name string, data []byte) (string, error) {
			return "", errors.New("bucket unavailable")
		},
	}
	session := research.NewSession(
		research.New(newMockExecutor(defaultOutputs()), research.WithClock(clock)),
		research.WithExporter(exporter),
	)

	out, err := session.Research(context.Background(), "remote work trends")
	gt.Error(t, err)
	gt.True(t, out.Result.Success)
	gt.False(t, out.Saved)
}

func TestSessionCarriesOverLongTermMemory(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	crew := research.New(newMockExecutor(defaultOutputs()), research.WithClock(clock))

	first, err := research.NewSession(crew, research.WithRepository(repo)).Research(ctx, "remote work trends")
	gt.NoError(t, err)
	gt.True(t, first.Result.Success)

	t.Run("without carry-over", func(t *testing.T) {
		out, err := research.NewSession(crew).Research(ctx, "remote work trends")
		gt.NoError(t, err)
		reliable, ok := out.Result.Snapshot.LongTerm[memory.CategoryReliableSources].(model.ValueList)
		gt.True(t, ok)
		gt.A(t, reliable).Length(1)
	})

	t.Run("with carry-over", func(t *testing.T) {
		session := research.NewSession(crew,
			research.WithRepository(repo),
			research.WithMemoryCarryOver(true),
		)
		out, err := session.Research(ctx, "hybrid office design")
		gt.NoError(t, err)
		gt.True(t, out.Result.Success)

		reliable, ok := out.Result.Snapshot.LongTerm[memory.CategoryReliableSources].(model.ValueList)
		gt.True(t, ok)
		gt.A(t, reliable).Length(2)

		knowledge, ok := out.Result.Snapshot.LongTerm[memory.CategoryTopicKnowledge].(model.Entries)
		gt.True(t, ok)
		_, ok = knowledge["remote work trends"]
		gt.True(t, ok)
		_, ok = knowledge["hybrid office design"]
		gt.True(t, ok)
	})
}
