package interfaces

import (
	"context"

	"github.com/m-mizutani/ferret/pkg/model"
	"github.com/m-mizutani/ferret/pkg/tool"
)

// AgentExecutor runs one task through an LLM-driven agent and returns its text output.
// The agent may call the functions in tools; the task's dependencies carry the outputs
// of earlier stages.
type AgentExecutor interface {
	Execute(ctx context.Context, task *model.Task, tools *tool.Registry) (string, error)
}

// SourceAnalyzer inspects the content of one source.
type SourceAnalyzer interface {
	Analyze(ctx context.Context, url, title, content string) (*model.SourceAnalysis, error)
}

// RunObserver receives timing of stages and whole runs.
type RunObserver interface {
	ObserveStage(stage model.Stage, seconds float64, err error)
	ObserveRun(result *model.RunResult)
}
