package tool_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/ferret/pkg/model"
	"github.com/m-mizutani/ferret/pkg/tool"
	"github.com/m-mizutani/gt"
	"github.com/urfave/cli/v3"
	"google.golang.org/genai"
)

type fakeTool struct {
	names   []string
	prompt  string
	enabled bool
	initErr error
	calls   []string
}

func (x *fakeTool) Spec() *genai.Tool {
	decls := make([]*genai.FunctionDeclaration, len(x.names))
	for i, name := range x.names {
		decls[i] = &genai.FunctionDeclaration{Name: name, Description: name}
	}
	return &genai.Tool{FunctionDeclarations: decls}
}

func (x *fakeTool) Execute(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	x.calls = append(x.calls, fc.Name)
	return &genai.FunctionResponse{Name: fc.Name, Response: map[string]any{"result": "ok"}}, nil
}

func (x *fakeTool) Prompt(ctx context.Context) string { return x.prompt }

func (x *fakeTool) Flags() []cli.Flag {
	return []cli.Flag{&cli.StringFlag{Name: "fake-" + x.names[0]}}
}

type initTool struct {
	fakeTool
}

func (x *initTool) Init(ctx context.Context) (bool, error) {
	return x.enabled, x.initErr
}

func TestRegistryExecute(t *testing.T) {
	ctx := context.Background()
	search := &fakeTool{names: []string{tool.NameWebSearch, tool.NameScrapeWebsite}}
	r := tool.New(search)

	resp, err := r.Execute(ctx, genai.FunctionCall{Name: tool.NameScrapeWebsite})
	gt.NoError(t, err)
	gt.Equal(t, resp.Response["result"], any("ok"))
	gt.Equal(t, search.calls, []string{tool.NameScrapeWebsite})

	_, err = r.Execute(ctx, genai.FunctionCall{Name: "unknown"})
	gt.Error(t, err)
}

func TestRegistrySpecsAreMergedAndSorted(t *testing.T) {
	r := tool.New(
		&fakeTool{names: []string{"web_search"}},
		&fakeTool{names: []string{"file_read", "analyze_academic_source"}},
	)

	specs := r.Specs()
	gt.A(t, specs).Length(1)
	gt.A(t, specs[0].FunctionDeclarations).Length(3)
	gt.Equal(t, specs[0].FunctionDeclarations[0].Name, "analyze_academic_source")
	gt.Equal(t, specs[0].FunctionDeclarations[2].Name, "web_search")

	gt.V(t, tool.New().Specs()).Nil()
}

func TestRegistryWith(t *testing.T) {
	base := tool.New(&fakeTool{names: []string{"web_search"}})
	derived := base.With(&fakeTool{names: []string{"share_progress"}})

	gt.Equal(t, base.Names(), []string{"web_search"})
	gt.Equal(t, derived.Names(), []string{"share_progress", "web_search"})
	gt.A(t, derived.Flags()).Length(2)
}

func TestSetup(t *testing.T) {
	ctx := context.Background()

	enabled := &initTool{fakeTool{names: []string{"file_read"}, enabled: true}}
	disabled := &initTool{fakeTool{names: []string{"web_search"}}}
	plain := &fakeTool{names: []string{"share_progress"}}

	r, err := tool.Setup(ctx, enabled, disabled, plain)
	gt.NoError(t, err)
	gt.Equal(t, r.Names(), []string{"file_read", "share_progress"})

	broken := &initTool{fakeTool{names: []string{"x"}, initErr: errors.New("boom")}}
	_, err = tool.Setup(ctx, broken)
	gt.Error(t, err)
}

func TestForRole(t *testing.T) {
	ctx := context.Background()
	search := &fakeTool{names: []string{tool.NameWebSearch, tool.NameFileRead}, prompt: "search prompt"}
	mem := &fakeTool{names: []string{tool.NameShareProgress, tool.NameReliableSources}, prompt: "memory prompt"}
	r := tool.New(search, mem)
	roles := tool.DefaultRoleTools()

	gatherer := r.ForRole(roles, model.RoleGatherer)
	gt.Equal(t, gatherer.Names(), []string{tool.NameReliableSources, tool.NameShareProgress, tool.NameWebSearch})
	gt.S(t, gatherer.Prompts(ctx)).Contains("search prompt")

	coordinator := r.ForRole(roles, model.RoleCoordinator)
	gt.Equal(t, coordinator.Names(), []string{tool.NameReliableSources, tool.NameShareProgress})
	gt.S(t, coordinator.Prompts(ctx)).NotContains("search prompt")

	_, err := coordinator.Execute(ctx, genai.FunctionCall{Name: tool.NameWebSearch})
	gt.Error(t, err)
}

func TestStatus(t *testing.T) {
	r := tool.New(&fakeTool{names: []string{tool.NameFileRead}})
	roles := tool.DefaultRoleTools()

	statuses := r.Status(roles)
	gt.A(t, statuses).Length(4)
	gt.Equal(t, statuses[0].Role, model.RoleCoordinator)
	gt.A(t, statuses[0].Available).Length(0)
	gt.A(t, statuses[0].Missing).Length(0)

	gt.Equal(t, statuses[1].Role, model.RoleGatherer)
	gt.A(t, statuses[1].Missing).Length(4)

	gt.Equal(t, statuses[2].Available, []string{tool.NameFileRead})
	gt.Equal(t, statuses[2].Missing, []string{tool.NameAcademicSource})

	gt.Equal(t, r.Unequipped(roles), []model.AgentRole{model.RoleGatherer})
}

func TestRoleToolsMerge(t *testing.T) {
	defaults := tool.DefaultRoleTools()
	merged := defaults.Merge(tool.RoleTools{model.RoleSynthesizer: {"notes_search"}})

	gt.Equal(t, merged[model.RoleSynthesizer], []string{"notes_search"})
	gt.Equal(t, merged[model.RoleAnalyst], defaults[model.RoleAnalyst])
	gt.Equal(t, defaults[model.RoleSynthesizer], []string{tool.NameFileRead})

	gt.NoError(t, merged.Validate())
	gt.Error(t, tool.RoleTools{"janitor": {"x"}}.Validate())
}
