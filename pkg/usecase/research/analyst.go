package research

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/ferret/pkg/analyzer"
	"github.com/m-mizutani/ferret/pkg/memory"
	"github.com/m-mizutani/ferret/pkg/model"
	"github.com/m-mizutani/ferret/pkg/utils/logging"
)

// analyze runs the heuristic analyzers over the gathered information and keeps the
// summary as topic knowledge for later runs.
func analyze(ctx context.Context, store *memory.Store, query string, info *model.GatheredInfo) (*model.AnalysisResult, error) {
	result := analyzer.Analyze(info)
	store.StoreShortTerm(memory.KeyAnalysisResults, result, nil)

	if err := store.StoreLongTerm(memory.CategoryTopicKnowledge, model.Entries{
		query: model.TextValue(result.Summary),
	}, memory.OpUpdate); err != nil {
		return nil, err
	}

	store.ShareData(memory.AgentAnalyst, &model.AgentStatus{
		Role:   model.RoleAnalyst,
		Status: model.AgentCompleted,
		Detail: result.Summary,
	}, model.PriorityNormal)

	logging.From(ctx).Info("analysis completed",
		slog.Int("patterns", len(result.Patterns)),
		slog.Int("insights", len(result.Insights)),
		slog.Int("contradictions", len(result.Contradictions)),
		slog.Float64("confidence", result.Confidence.Overall))

	return result, nil
}
