package cli

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/m-mizutani/ferret/pkg/adapter"
	"github.com/m-mizutani/ferret/pkg/agent"
	"github.com/m-mizutani/ferret/pkg/interfaces"
	"github.com/m-mizutani/ferret/pkg/policy"
	"github.com/m-mizutani/ferret/pkg/repository"
	"github.com/m-mizutani/ferret/pkg/service/mcp"
	"github.com/m-mizutani/ferret/pkg/source"
	"github.com/m-mizutani/ferret/pkg/tool"
	"github.com/m-mizutani/ferret/pkg/tool/academic"
	"github.com/m-mizutani/ferret/pkg/usecase/research"
	"github.com/m-mizutani/ferret/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// config holds configuration values
type config struct {
	// Logging
	logLevel  string
	logFormat string

	// Repository
	project    string
	database   string
	sqlitePath string

	// Adapters
	geminiProject  string
	geminiLocation string
	geminiModel    string
	bucket         string
	bucketPrefix   string

	// Research
	researchConfig string
	mcpConfig      string
	policyDir      string
	stageTimeout   time.Duration
	maxIterations  int64
	noAssemble     bool

	// Built-in tools, created with the flags so their own flags can be bound
	analyzer *source.AcademicAnalyzer
	academic *academic.Tool
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Aliases:     []string{"l"},
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("FERRET_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (console, json)",
			Value:       "console",
			Sources:     cli.EnvVars("FERRET_LOG_FORMAT"),
			Destination: &cfg.logFormat,
		},
	}
}

// repositoryFlags returns flags selecting where run snapshots are kept
func repositoryFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "project",
			Aliases:     []string{"p"},
			Usage:       "Google Cloud project ID of Firestore",
			Sources:     cli.EnvVars("FERRET_FIRESTORE_PROJECT", "GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.project,
		},
		&cli.StringFlag{
			Name:        "database",
			Aliases:     []string{"d"},
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("FERRET_FIRESTORE_DATABASE_ID"),
			Destination: &cfg.database,
		},
		&cli.StringFlag{
			Name:        "sqlite",
			Usage:       "Path of a local SQLite database, used when no Firestore project is set",
			Sources:     cli.EnvVars("FERRET_SQLITE_PATH"),
			Destination: &cfg.sqlitePath,
		},
	}
}

// llmFlags returns flags for LLM-related configuration with destination config
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini",
			Sources:     cli.EnvVars("FERRET_GEMINI_PROJECT", "GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("FERRET_GEMINI_LOCATION", "GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "gemini-model",
			Usage:       "Gemini model used by the agents",
			Value:       adapter.DefaultGenerativeModel,
			Sources:     cli.EnvVars("FERRET_GEMINI_MODEL"),
			Destination: &cfg.geminiModel,
		},
	}
}

// storageFlags returns flags for report export to Cloud Storage
func storageFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "bucket",
			Usage:       "Cloud Storage bucket to export reports to",
			Sources:     cli.EnvVars("FERRET_BUCKET"),
			Destination: &cfg.bucket,
		},
		&cli.StringFlag{
			Name:        "bucket-prefix",
			Usage:       "Object prefix of exported reports",
			Sources:     cli.EnvVars("FERRET_BUCKET_PREFIX"),
			Destination: &cfg.bucketPrefix,
		},
	}
}

// researchFlags returns flags tuning research runs
func researchFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to research config YAML file",
			Sources:     cli.EnvVars("FERRET_CONFIG"),
			Destination: &cfg.researchConfig,
		},
		&cli.StringFlag{
			Name:        "mcp-config",
			Usage:       "Path to MCP server config YAML file",
			Sources:     cli.EnvVars("FERRET_MCP_CONFIG"),
			Destination: &cfg.mcpConfig,
		},
		&cli.StringFlag{
			Name:        "policy-dir",
			Usage:       "Directory of Rego policies deciding source reliability",
			Sources:     cli.EnvVars("FERRET_POLICY_DIR"),
			Destination: &cfg.policyDir,
		},
		&cli.DurationFlag{
			Name:        "stage-timeout",
			Usage:       "Timeout of one agent stage, overrides the config file",
			Sources:     cli.EnvVars("FERRET_STAGE_TIMEOUT"),
			Destination: &cfg.stageTimeout,
		},
		&cli.IntFlag{
			Name:        "max-iterations",
			Usage:       "Maximum tool-calling iterations per agent, overrides the config file",
			Sources:     cli.EnvVars("FERRET_MAX_ITERATIONS"),
			Destination: &cfg.maxIterations,
		},
		&cli.BoolFlag{
			Name:        "no-assemble",
			Usage:       "Parse the synthesizer output instead of assembling a structured report",
			Sources:     cli.EnvVars("FERRET_NO_ASSEMBLE"),
			Destination: &cfg.noAssemble,
		},
	}
}

// toolFlags creates the built-in tools and returns their flags
func toolFlags(cfg *config) []cli.Flag {
	cfg.analyzer = source.NewAcademicAnalyzer()
	cfg.academic = academic.New(cfg.analyzer)
	return tool.New(cfg.academic).Flags()
}

// setupLogger installs the configured logger as default and into the context
func (cfg *config) setupLogger(ctx context.Context) (context.Context, error) {
	format, err := logging.ParseFormat(cfg.logFormat)
	if err != nil {
		return ctx, err
	}
	logger := logging.New(cfg.logLevel, os.Stderr, logging.WithFormat(format))
	logging.SetDefault(logger)
	return logging.With(ctx, logger), nil
}

// newRepository opens Firestore when a project is set, otherwise SQLite when a path is
// set. It returns a nil repository when neither is configured.
func (cfg *config) newRepository(ctx context.Context) (interfaces.RunRepository, func(), error) {
	switch {
	case cfg.project != "":
		if cfg.database == "" {
			return nil, nil, goerr.New("database is required")
		}
		repo, err := repository.New(ctx, cfg.project, cfg.database)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to create repository")
		}
		return repo, closer(ctx, repo.Close), nil

	case cfg.sqlitePath != "":
		repo, err := repository.NewSQLite(cfg.sqlitePath)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to create repository")
		}
		return repo, closer(ctx, repo.Close), nil

	default:
		return nil, func() {}, nil
	}
}

// requireRepository is newRepository for commands that cannot work without one
func (cfg *config) requireRepository(ctx context.Context) (interfaces.RunRepository, func(), error) {
	repo, closeFn, err := cfg.newRepository(ctx)
	if err != nil {
		return nil, nil, err
	}
	if repo == nil {
		return nil, nil, goerr.New("project or sqlite is required")
	}
	return repo, closeFn, nil
}

// newGemini creates a new Gemini adapter instance
func (cfg *config) newGemini(ctx context.Context) (adapter.Gemini, error) {
	if cfg.geminiProject == "" {
		return nil, goerr.New("gemini-project is required")
	}
	if cfg.geminiLocation == "" {
		return nil, goerr.New("gemini-location is required")
	}
	gemini, err := adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation,
		adapter.WithGenerativeModel(cfg.geminiModel))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create gemini client")
	}
	return gemini, nil
}

// newExporter creates a Cloud Storage exporter, nil when no bucket is set
func (cfg *config) newExporter(ctx context.Context) (interfaces.ReportExporter, error) {
	if cfg.bucket == "" {
		return nil, nil
	}
	storage, err := adapter.NewStorage(ctx, cfg.bucket, adapter.WithPrefix(cfg.bucketPrefix))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage")
	}
	return storage, nil
}

// newResearchConfig loads the config file and applies flag overrides
func (cfg *config) newResearchConfig() (*research.Config, error) {
	rc, err := research.LoadConfig(cfg.researchConfig)
	if err != nil {
		return nil, err
	}
	if cfg.stageTimeout > 0 {
		rc.StageTimeout = cfg.stageTimeout
	}
	if cfg.maxIterations > 0 {
		rc.MaxToolIterations = int(cfg.maxIterations)
	}
	if cfg.noAssemble {
		assemble := false
		rc.AssembleReport = &assemble
	}
	return rc, nil
}

// newTools registers the built-in academic analyzer and tools of configured MCP servers
func (cfg *config) newTools(ctx context.Context) (*tool.Registry, func(), error) {
	if cfg.academic == nil {
		toolFlags(cfg)
	}
	tools := []tool.Tool{cfg.academic}
	closeFn := func() {}

	provider, err := mcp.LoadAndConnect(ctx, cfg.mcpConfig)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to load MCP servers")
	}
	if provider != nil {
		tools = append(tools, provider)
		closeFn = closer(ctx, provider.Close)
	}

	registry, err := tool.Setup(ctx, tools...)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return registry, closeFn, nil
}

// newCrew wires the research crew from flags. The returned function releases tool
// connections.
func (cfg *config) newCrew(ctx context.Context, opts ...research.Option) (*research.Crew, func(), error) {
	rc, err := cfg.newResearchConfig()
	if err != nil {
		return nil, nil, err
	}

	gemini, err := cfg.newGemini(ctx)
	if err != nil {
		return nil, nil, err
	}

	registry, closeFn, err := cfg.newTools(ctx)
	if err != nil {
		return nil, nil, err
	}
	if missing := registry.Unequipped(rc.RoleTools); len(missing) > 0 {
		logging.From(ctx).Warn("some agents have no tool available", slog.Any("roles", missing))
	}

	crewOpts := []research.Option{
		research.WithConfig(rc),
		research.WithTools(registry),
		research.WithSourceAnalyzer(cfg.analyzer),
	}

	gate, err := policy.NewGate(ctx, cfg.policyDir)
	if err != nil {
		closeFn()
		return nil, nil, goerr.Wrap(err, "failed to load reliability policy")
	}
	if gate != nil {
		crewOpts = append(crewOpts, research.WithGate(gate))
	}

	executor := agent.New(gemini, agent.WithMaxIterations(rc.MaxToolIterations))
	crew := research.New(executor, append(crewOpts, opts...)...)
	return crew, closeFn, nil
}

func closer(ctx context.Context, fn func() error) func() {
	return func() {
		if err := fn(); err != nil {
			logging.From(ctx).Warn("failed to close", slog.Any("error", err))
		}
	}
}
