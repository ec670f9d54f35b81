package agent_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/ferret/pkg/adapter"
	"github.com/m-mizutani/ferret/pkg/agent"
	"github.com/m-mizutani/ferret/pkg/model"
	"github.com/m-mizutani/ferret/pkg/tool"
	"github.com/m-mizutani/gt"
	"github.com/urfave/cli/v3"
	"google.golang.org/genai"
)

type mockGemini struct {
	adapter.Gemini
	generateFunc func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

func (m *mockGemini) GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return m.generateFunc(ctx, contents, config)
}

type echoTool struct {
	calls []map[string]any
	err   error
}

func (x *echoTool) Spec() *genai.Tool {
	return tool.Declaration("echo", "Echo the input", map[string]*genai.Schema{
		"text": {Type: genai.TypeString},
	}, "text")
}

func (x *echoTool) Execute(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	x.calls = append(x.calls, fc.Args)
	if x.err != nil {
		return nil, x.err
	}
	return &genai.FunctionResponse{Name: fc.Name, Response: map[string]any{"result": fc.Args["text"]}}, nil
}

func (x *echoTool) Prompt(ctx context.Context) string { return "Echo repeats text." }
func (x *echoTool) Flags() []cli.Flag                 { return nil }

func textResponse(texts ...string) *genai.GenerateContentResponse {
	parts := make([]*genai.Part, len(texts))
	for i, text := range texts {
		parts[i] = &genai.Part{Text: text}
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Role: genai.RoleModel, Parts: parts}}},
	}
}

func callResponse(text string, args map[string]any) *genai.GenerateContentResponse {
	parts := []*genai.Part{{FunctionCall: &genai.FunctionCall{Name: "echo", Args: args}}}
	if text != "" {
		parts = append([]*genai.Part{{Text: text}}, parts...)
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Role: genai.RoleModel, Parts: parts}}},
	}
}

func newTask() *model.Task {
	plan := &model.Task{
		ID:     "plan",
		Stage:  model.StagePlan,
		Role:   model.RoleCoordinator,
		Output: "Objective: explain the topic",
	}
	return &model.Task{
		ID:             "gather",
		Stage:          model.StageGather,
		Role:           model.RoleGatherer,
		Description:    "Gather sources about Go generics",
		ExpectedOutput: "JSON with sources",
		Dependencies:   []*model.Task{plan},
	}
}

func TestExecuteWithoutToolCall(t *testing.T) {
	var gotConfig *genai.GenerateContentConfig
	var gotContents []*genai.Content
	gemini := &mockGemini{
		generateFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			gotConfig = config
			gotContents = contents
			return textResponse(`{"sources": [], `, `"findings": []}`), nil
		},
	}

	exec := agent.New(gemini)
	out, err := exec.Execute(context.Background(), newTask(), tool.New(&echoTool{}))
	gt.NoError(t, err)
	gt.Equal(t, out, `{"sources": [], "findings": []}`)

	gt.A(t, gotContents).Length(1)
	gt.S(t, gotContents[0].Parts[0].Text).Contains("Gather sources about Go generics")

	prompt := gotConfig.SystemInstruction.Parts[0].Text
	gt.S(t, prompt).Contains("Information Gatherer")
	gt.S(t, prompt).Contains("JSON with sources")
	gt.S(t, prompt).Contains("Objective: explain the topic")
	gt.S(t, prompt).Contains("`echo`")
	gt.S(t, prompt).Contains("Echo repeats text.")
	gt.S(t, prompt).Contains("iteration 1/8")

	gt.A(t, gotConfig.Tools).Length(1)
	gt.Equal(t, gotConfig.Tools[0].FunctionDeclarations[0].Name, "echo")
}

func TestExecuteWithToolCall(t *testing.T) {
	echo := &echoTool{}
	var turns int
	var lastContents []*genai.Content
	gemini := &mockGemini{
		generateFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			turns++
			lastContents = contents
			if turns == 1 {
				return callResponse("Let me check.", map[string]any{"text": "hello"}), nil
			}
			return textResponse("Final answer"), nil
		},
	}

	out, err := agent.New(gemini).Execute(context.Background(), newTask(), tool.New(echo))
	gt.NoError(t, err)
	gt.Equal(t, out, "Final answer")
	gt.Equal(t, turns, 2)
	gt.A(t, echo.calls).Length(1)
	gt.Equal(t, echo.calls[0]["text"], any("hello"))

	// user, model (call), user (function response)
	gt.A(t, lastContents).Length(3)
	resp := lastContents[2].Parts[0].FunctionResponse
	gt.V(t, resp).NotNil()
	gt.Equal(t, resp.Name, "echo")
	gt.Equal(t, resp.Response["result"], any("hello"))
}

func TestExecuteToolErrorIsReturnedToModel(t *testing.T) {
	echo := &echoTool{err: errors.New("backend down")}
	var turns int
	var errResponse map[string]any
	gemini := &mockGemini{
		generateFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			turns++
			if turns == 1 {
				return callResponse("", map[string]any{"text": "x"}), nil
			}
			errResponse = contents[len(contents)-1].Parts[0].FunctionResponse.Response
			return textResponse("Could not use the tool"), nil
		},
	}

	out, err := agent.New(gemini).Execute(context.Background(), newTask(), tool.New(echo))
	gt.NoError(t, err)
	gt.Equal(t, out, "Could not use the tool")
	gt.S(t, errResponse["error"].(string)).Contains("backend down")
}

func TestExecuteUnknownTool(t *testing.T) {
	var turns int
	var errResponse map[string]any
	gemini := &mockGemini{
		generateFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			turns++
			if turns == 1 {
				return callResponse("", map[string]any{"text": "x"}), nil
			}
			errResponse = contents[len(contents)-1].Parts[0].FunctionResponse.Response
			return textResponse("done"), nil
		},
	}

	out, err := agent.New(gemini).Execute(context.Background(), newTask(), tool.New())
	gt.NoError(t, err)
	gt.Equal(t, out, "done")
	_, ok := errResponse["error"]
	gt.True(t, ok)
}

func TestExecuteIterationLimit(t *testing.T) {
	echo := &echoTool{}
	var turns int
	gemini := &mockGemini{
		generateFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			turns++
			return callResponse("step", map[string]any{"text": "again"}), nil
		},
	}

	out, err := agent.New(gemini, agent.WithMaxIterations(3)).Execute(context.Background(), newTask(), tool.New(echo))
	gt.NoError(t, err)
	gt.Equal(t, turns, 3)
	gt.A(t, echo.calls).Length(3)
	gt.Equal(t, out, "step\nstep\nstep")
}

func TestExecuteIterationLimitWithoutText(t *testing.T) {
	gemini := &mockGemini{
		generateFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return callResponse("", map[string]any{"text": "again"}), nil
		},
	}

	_, err := agent.New(gemini, agent.WithMaxIterations(2)).Execute(context.Background(), newTask(), tool.New(&echoTool{}))
	gt.Error(t, err)
}

func TestExecuteGenerateError(t *testing.T) {
	gemini := &mockGemini{
		generateFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return nil, errors.New("quota exceeded")
		},
	}

	_, err := agent.New(gemini).Execute(context.Background(), newTask(), nil)
	gt.Error(t, err)
	gt.S(t, err.Error()).Contains("failed to generate content")
}

func TestExecuteEmptyResponse(t *testing.T) {
	gemini := &mockGemini{
		generateFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return &genai.GenerateContentResponse{}, nil
		},
	}

	_, err := agent.New(gemini).Execute(context.Background(), newTask(), nil)
	gt.Error(t, err)
}

func TestExecuteWithoutTools(t *testing.T) {
	var gotConfig *genai.GenerateContentConfig
	gemini := &mockGemini{
		generateFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			gotConfig = config
			return textResponse("plan"), nil
		},
	}

	task := &model.Task{ID: "p", Stage: model.StagePlan, Role: model.RoleCoordinator, Description: "Plan"}
	out, err := agent.New(gemini).Execute(context.Background(), task, tool.New())
	gt.NoError(t, err)
	gt.Equal(t, out, "plan")
	gt.A(t, gotConfig.Tools).Length(0)
	gt.S(t, gotConfig.SystemInstruction.Parts[0].Text).Contains("No tool is available")
}
