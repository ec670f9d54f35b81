package research

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m-mizutani/ferret/pkg/memory"
	"github.com/m-mizutani/ferret/pkg/model"
	"github.com/m-mizutani/ferret/pkg/report"
	"github.com/m-mizutani/ferret/pkg/utils/logging"
)

// synthesize assembles the structured report from the gathered information and the
// analysis kept in memory. It does nothing when either is missing or assembly is off.
func synthesize(ctx context.Context, store *memory.Store, assembler *report.Assembler, query string, enabled bool) {
	logger := logging.From(ctx)
	if !enabled {
		logger.Debug("report assembly disabled")
		return
	}

	gathered, ok := shortTerm[*model.GatheredInfo](store, memory.KeyGatheredInfo)
	if !ok {
		logger.Warn("gathered information missing from memory, skipping assembly")
		return
	}
	analysis, ok := shortTerm[*model.AnalysisResult](store, memory.KeyAnalysisResults)
	if !ok {
		logger.Warn("analysis results missing from memory, skipping assembly")
		return
	}

	r := assembler.Assemble(query, gathered, analysis)
	store.StoreShortTerm(memory.KeyCompletedReport, r, nil)

	store.ShareData(memory.AgentSynthesizer, &model.AgentStatus{
		Role:   model.RoleSynthesizer,
		Status: model.AgentCompleted,
		Detail: fmt.Sprintf("%d words", r.Metadata.WordCount),
	}, model.PriorityNormal)

	logger.Info("report assembled", slog.String("title", r.Title), slog.Int("words", r.Metadata.WordCount))
}

// recoverReport prefers the structured report in memory and falls back to parsing the
// synthesis output.
func recoverReport(store *memory.Store, query, output string) model.ResearchReport {
	if r, ok := shortTerm[*model.Report](store, memory.KeyCompletedReport); ok {
		return r
	}
	return report.ParseSections(query, output)
}

func shortTerm[T model.MemoryValue](store *memory.Store, key string) (T, bool) {
	var zero T
	v, ok := store.GetShortTerm(key)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}
