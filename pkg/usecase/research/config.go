package research

import (
	"os"
	"time"

	"github.com/m-mizutani/ferret/pkg/source"
	"github.com/m-mizutani/ferret/pkg/tool"
	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

const (
	DefaultStageTimeout      = 5 * time.Minute
	DefaultRunTimeout        = 20 * time.Minute
	DefaultMaxToolIterations = 8
	DefaultTopSources        = 5
	DefaultExtractSources    = 10
)

// Config tunes a research run. It is loaded from YAML; zero fields take defaults.
//
//	stage_timeout: 3m
//	run_timeout: 15m
//	assemble_report: true
//	max_tool_iterations: 8
//	top_sources: 5
//	decay_curve:
//	  steps: [1.0, 0.9, 0.7, 0.5]
//	  floor: 0.3
//	role_tools:
//	  content_synthesizer: [file_read, notes_search]
type Config struct {
	StageTimeout      time.Duration      `yaml:"stage_timeout"`
	RunTimeout        time.Duration      `yaml:"run_timeout"`
	AssembleReport    *bool              `yaml:"assemble_report"`
	MaxToolIterations int                `yaml:"max_tool_iterations"`
	TopSources        int                `yaml:"top_sources"`
	DecayCurve        *source.DecayCurve `yaml:"decay_curve"`
	RoleTools         tool.RoleTools     `yaml:"role_tools"`
}

// DefaultConfig returns a config with every field set.
func DefaultConfig() *Config {
	assemble := true
	curve := source.DefaultDecayCurve()
	return &Config{
		StageTimeout:      DefaultStageTimeout,
		RunTimeout:        DefaultRunTimeout,
		AssembleReport:    &assemble,
		MaxToolIterations: DefaultMaxToolIterations,
		TopSources:        DefaultTopSources,
		DecayCurve:        &curve,
		RoleTools:         tool.DefaultRoleTools(),
	}
}

// LoadConfig reads a YAML config. An empty path returns the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read research config", goerr.V("path", path))
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, goerr.Wrap(err, "failed to parse research config", goerr.V("path", path))
	}

	return cfg.withDefaults()
}

func (x *Config) withDefaults() (*Config, error) {
	def := DefaultConfig()
	out := *x

	if out.StageTimeout <= 0 {
		out.StageTimeout = def.StageTimeout
	}
	if out.RunTimeout <= 0 {
		out.RunTimeout = def.RunTimeout
	}
	if out.AssembleReport == nil {
		out.AssembleReport = def.AssembleReport
	}
	if out.MaxToolIterations <= 0 {
		out.MaxToolIterations = def.MaxToolIterations
	}
	if out.TopSources <= 0 {
		out.TopSources = def.TopSources
	}
	if out.DecayCurve == nil {
		out.DecayCurve = def.DecayCurve
	} else if len(out.DecayCurve.Steps) == 0 {
		return nil, goerr.New("decay curve needs at least one step")
	}
	if err := out.RoleTools.Validate(); err != nil {
		return nil, err
	}
	out.RoleTools = def.RoleTools.Merge(out.RoleTools)

	return &out, nil
}

// Assemble reports whether the structured report assembler is enabled.
func (x *Config) Assemble() bool {
	return x.AssembleReport == nil || *x.AssembleReport
}
