// Package research runs the four-stage research pipeline: plan, gather, analyze and
// synthesize. Agent reasoning is delegated to an interfaces.AgentExecutor; everything
// between the stages is deterministic.
package research

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m-mizutani/ferret/pkg/interfaces"
	"github.com/m-mizutani/ferret/pkg/memory"
	"github.com/m-mizutani/ferret/pkg/model"
	"github.com/m-mizutani/ferret/pkg/report"
	"github.com/m-mizutani/ferret/pkg/source"
	"github.com/m-mizutani/ferret/pkg/tool"
	memtool "github.com/m-mizutani/ferret/pkg/tool/memory"
	"github.com/m-mizutani/ferret/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Crew owns the collaborators shared by research runs. Each run gets its own memory
// store and tool registry, so runs may execute concurrently.
type Crew struct {
	executor interfaces.AgentExecutor
	tools    *tool.Registry
	config   *Config
	analyzer interfaces.SourceAnalyzer
	gate     source.Gate
	observer interfaces.RunObserver
	now      func() time.Time
}

type Option func(*Crew)

func WithConfig(cfg *Config) Option {
	return func(c *Crew) {
		if cfg != nil {
			c.config = cfg
		}
	}
}

// WithTools sets the tools shared by all runs. Memory tools are added per run.
func WithTools(tools *tool.Registry) Option {
	return func(c *Crew) {
		if tools != nil {
			c.tools = tools
		}
	}
}

// WithSourceAnalyzer enriches gathered sources that carry content.
func WithSourceAnalyzer(analyzer interfaces.SourceAnalyzer) Option {
	return func(c *Crew) {
		c.analyzer = analyzer
	}
}

// WithGate replaces the built-in source reliability gate.
func WithGate(gate source.Gate) Option {
	return func(c *Crew) {
		c.gate = gate
	}
}

func WithObserver(observer interfaces.RunObserver) Option {
	return func(c *Crew) {
		c.observer = observer
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Crew) {
		c.now = now
	}
}

func New(executor interfaces.AgentExecutor, opts ...Option) *Crew {
	c := &Crew{
		executor: executor,
		tools:    tool.New(),
		config:   DefaultConfig(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if cfg, err := c.config.withDefaults(); err == nil {
		c.config = cfg
	}
	return c
}

type runOptions struct {
	longTerm model.Categories
}

type RunOption func(*runOptions)

// WithLongTermMemory seeds the run's long-term memory, typically from an earlier run.
func WithLongTermMemory(categories model.Categories) RunOption {
	return func(o *runOptions) {
		o.longTerm = categories
	}
}

// Run executes one research run. It never returns nil; every failure, including a
// panic, is reported as an unsuccessful result without report content.
func (c *Crew) Run(ctx context.Context, query string, opts ...RunOption) (result *model.RunResult) {
	var options runOptions
	for _, opt := range opts {
		opt(&options)
	}

	runID := model.NewRunID()
	start := c.now()
	logger := logging.From(ctx).With(slog.String("run_id", string(runID)))
	ctx = logging.With(ctx, logger)

	defer func() {
		if r := recover(); r != nil {
			result = c.failure(ctx, runID, query, start, goerr.New("panic during research run", goerr.V("panic", fmt.Sprint(r))))
		}
		if c.observer != nil {
			c.observer.ObserveRun(result)
		}
	}()

	if strings.TrimSpace(query) == "" {
		return c.failure(ctx, runID, query, start, goerr.Wrap(model.ErrMalformedInput, "query is empty"))
	}

	logger.Info("research started", slog.String("query", query))

	ctx, cancel := context.WithTimeout(ctx, c.config.RunTimeout)
	defer cancel()

	store := memory.New(memory.WithClock(c.now))
	if options.longTerm != nil {
		store.Import(&model.MemorySnapshot{LongTerm: options.longTerm})
	}

	researchReport, tasks, err := c.execute(ctx, store, query, start)
	if err != nil {
		return c.failure(ctx, runID, query, start, err)
	}

	end := c.now()
	logger.Info("research completed",
		slog.Duration("elapsed", end.Sub(start)),
		slog.String("report_kind", string(researchReport.ReportKind())))

	return &model.RunResult{
		Success:       true,
		Query:         query,
		ReportKind:    researchReport.ReportKind(),
		Report:        researchReport,
		ExecutionTime: end.Sub(start),
		Metadata: &model.RunMetadata{
			RunID:          runID,
			StartTime:      start,
			EndTime:        end,
			AgentsUsed:     len(model.AllRoles()),
			TasksCompleted: len(tasks),
			MemoryStats:    store.Stats(),
			Progress:       MonitorProgress(store),
		},
		Snapshot: store.Export(),
	}
}

func (c *Crew) execute(ctx context.Context, store *memory.Store, query string, start time.Time) (model.ResearchReport, []*model.Task, error) {
	store.StoreShortTerm(memory.KeyResearchQuery, model.TextValue(query), nil)
	store.StoreShortTerm(memory.KeyStartTime, model.TextValue(start.Format(time.RFC3339)), nil)

	plan := PlanResearch(query, c.now())
	storePlan(store, plan)

	strategy := PrepareSearchStrategy(query, plan, c.now())
	store.StoreShortTerm(memory.KeySearchStrategy, strategy, nil)

	evaluatorOpts := []source.EvaluatorOption{
		source.WithDecayCurve(*c.config.DecayCurve),
		source.WithClock(c.now),
	}
	if c.gate != nil {
		evaluatorOpts = append(evaluatorOpts, source.WithGate(c.gate))
	}
	g := &gatherer{
		evaluator:  source.NewEvaluator(evaluatorOpts...),
		analyzer:   c.analyzer,
		topSources: c.config.TopSources,
	}
	assembler := report.NewAssembler(report.WithClock(c.now))

	registry := c.tools.With(memtool.New(store)...)
	tasks := buildTasks(query, plan, strategy)

	var gathered *model.GatheredInfo
	for _, task := range tasks {
		err := c.runStage(ctx, store, registry, task, func(ctx context.Context) error {
			switch task.Stage {
			case model.StageGather:
				info, err := g.process(ctx, store, query, task.Output, strategy)
				if err != nil {
					return err
				}
				gathered = info
			case model.StageAnalyze:
				if _, err := analyze(ctx, store, query, gathered); err != nil {
					return err
				}
			case model.StageSynthesize:
				synthesize(ctx, store, assembler, query, c.config.Assemble())
			}
			return nil
		})
		if err != nil {
			return nil, nil, err
		}

		logging.From(ctx).Debug("progress", slog.Any("progress", MonitorProgress(store)))
	}

	return recoverReport(store, query, tasks[len(tasks)-1].Output), tasks, nil
}

// runStage hands one task to the executor, then post-processes its output.
func (c *Crew) runStage(ctx context.Context, store *memory.Store, registry *tool.Registry, task *model.Task, post func(context.Context) error) (err error) {
	started := c.now()
	logger := logging.From(ctx).With(slog.String("stage", string(task.Stage)))
	ctx = logging.With(ctx, logger)

	defer func() {
		if c.observer != nil {
			c.observer.ObserveStage(task.Stage, c.now().Sub(started).Seconds(), err)
		}
	}()

	agentID := string(task.Role)
	if task.Role != model.RoleCoordinator {
		store.ShareData(agentID, &model.AgentStatus{Role: task.Role, Status: model.AgentWorking}, model.PriorityNormal)
	}
	logger.Info("stage started", slog.String("role", string(task.Role)))

	stageCtx, cancel := context.WithTimeout(ctx, c.config.StageTimeout)
	defer cancel()

	output, err := c.executor.Execute(stageCtx, task, registry.ForRole(c.config.RoleTools, task.Role))
	if err != nil {
		timedOut := errors.Is(stageCtx.Err(), context.DeadlineExceeded)
		if task.Role != model.RoleCoordinator {
			store.ShareData(agentID, &model.AgentStatus{Role: task.Role, Status: model.AgentError, Error: err.Error()}, model.PriorityHigh)
		}
		return goerr.Wrap(model.ErrExternalExecution, "agent execution failed: "+err.Error(),
			goerr.V("stage", task.Stage),
			goerr.V("timeout", timedOut))
	}

	task.Output = output
	store.StoreShortTerm(memory.KeyStageOutput+string(task.Stage), model.TextValue(output), map[string]string{
		"role":    string(task.Role),
		"task_id": string(task.ID),
	})

	if err := post(ctx); err != nil {
		return goerr.Wrap(err, "failed to process stage output", goerr.V("stage", task.Stage))
	}

	logger.Info("stage completed", slog.Duration("elapsed", c.now().Sub(started)))
	return nil
}

func (c *Crew) failure(ctx context.Context, runID model.RunID, query string, start time.Time, err error) *model.RunResult {
	end := c.now()
	logging.From(ctx).Error("research failed",
		slog.String("query", query),
		slog.Any("error", err))

	return &model.RunResult{
		Success:       false,
		Query:         query,
		Error:         err.Error(),
		ExecutionTime: end.Sub(start),
		Metadata: &model.RunMetadata{
			RunID:     runID,
			StartTime: start,
			EndTime:   end,
		},
		Err: err,
	}
}
