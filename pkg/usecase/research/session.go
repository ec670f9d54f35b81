package research

import (
	"context"
	"log/slog"
	"time"

	"github.com/m-mizutani/ferret/pkg/interfaces"
	"github.com/m-mizutani/ferret/pkg/model"
	"github.com/m-mizutani/ferret/pkg/report"
	"github.com/m-mizutani/ferret/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// carryOverWindow bounds how many recent runs are searched for long-term memory.
const carryOverWindow = 20

// ReportFileName is the object name of an exported markdown report.
const ReportFileName = "report.md"

// Session runs research on a crew and handles what surrounds a run: seeding long-term
// memory from earlier runs, saving snapshots and exporting reports.
type Session struct {
	crew      *Crew
	repo      interfaces.RunRepository
	exporter  interfaces.ReportExporter
	carryOver bool
	now       func() time.Time
}

type SessionOption func(*Session)

func WithRepository(repo interfaces.RunRepository) SessionOption {
	return func(s *Session) {
		s.repo = repo
	}
}

func WithExporter(exporter interfaces.ReportExporter) SessionOption {
	return func(s *Session) {
		s.exporter = exporter
	}
}

// WithMemoryCarryOver seeds each run with the long-term memory of the newest successful
// saved run. It needs a repository.
func WithMemoryCarryOver(enabled bool) SessionOption {
	return func(s *Session) {
		s.carryOver = enabled
	}
}

func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		s.now = now
	}
}

func NewSession(crew *Crew, opts ...SessionOption) *Session {
	s := &Session{
		crew: crew,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Outcome is a finished run plus where it was kept.
type Outcome struct {
	Result    *model.RunResult
	RunID     model.RunID
	Saved     bool
	ExportURL string
}

// Research runs one query. The run itself never fails with an error; an error is
// returned only when saving or exporting the finished run fails.
func (s *Session) Research(ctx context.Context, query string) (*Outcome, error) {
	var opts []RunOption
	if seed := s.seedMemory(ctx); seed != nil {
		opts = append(opts, WithLongTermMemory(seed))
	}

	result := s.crew.Run(ctx, query, opts...)
	out := &Outcome{Result: result}
	if result.Metadata != nil {
		out.RunID = result.Metadata.RunID
	}

	if s.repo != nil {
		snap, err := model.NewRunSnapshot(out.RunID, result, s.now())
		if err != nil {
			return out, err
		}
		if err := s.repo.PutRun(ctx, snap); err != nil {
			return out, goerr.Wrap(err, "failed to save research run", goerr.V("run_id", out.RunID))
		}
		out.Saved = true
	}

	if s.exporter != nil && result.Success {
		url, err := s.exporter.Export(ctx, out.RunID, ReportFileName, []byte(report.Markdown(result.Report)))
		if err != nil {
			return out, goerr.Wrap(err, "failed to export report", goerr.V("run_id", out.RunID))
		}
		out.ExportURL = url
	}

	return out, nil
}

// seedMemory looks up the long-term memory to carry into the next run. Lookup problems
// are logged and the run starts with fresh memory.
func (s *Session) seedMemory(ctx context.Context) model.Categories {
	if !s.carryOver || s.repo == nil {
		return nil
	}
	logger := logging.From(ctx)

	runs, err := s.repo.ListRuns(ctx, carryOverWindow)
	if err != nil {
		logger.Warn("failed to list runs for memory carry-over", slog.Any("error", err))
		return nil
	}

	for _, run := range runs {
		if !run.Success {
			continue
		}
		snap, err := run.DecodeMemory()
		if err != nil {
			logger.Warn("skip undecodable run memory", slog.String("run_id", string(run.ID)), slog.Any("error", err))
			continue
		}
		if snap == nil || len(snap.LongTerm) == 0 {
			continue
		}
		logger.Debug("carry over long-term memory", slog.String("from_run", string(run.ID)))
		return snap.LongTerm
	}
	return nil
}
