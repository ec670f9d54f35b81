// Package agent executes research tasks with Gemini. Each task runs a function-calling
// loop over the tools granted to the task's role.
package agent

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/m-mizutani/ferret/pkg/adapter"
	"github.com/m-mizutani/ferret/pkg/model"
	"github.com/m-mizutani/ferret/pkg/tool"
	"github.com/m-mizutani/ferret/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

//go:embed prompt/agent.md
var agentPromptRaw string

var agentPromptTmpl = template.Must(template.New("agent").Parse(agentPromptRaw))

const DefaultMaxIterations = 8

// Executor implements interfaces.AgentExecutor on top of Gemini.
type Executor struct {
	gemini        adapter.Gemini
	maxIterations int
}

type Option func(*Executor)

// WithMaxIterations limits the number of model turns per task.
func WithMaxIterations(n int) Option {
	return func(x *Executor) {
		if n > 0 {
			x.maxIterations = n
		}
	}
}

func New(gemini adapter.Gemini, opts ...Option) *Executor {
	x := &Executor{
		gemini:        gemini,
		maxIterations: DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

type contextEntry struct {
	Stage  model.Stage
	Role   model.AgentRole
	Output string
}

func (x *Executor) systemPrompt(ctx context.Context, task *model.Task, tools *tool.Registry) (string, error) {
	p := personaOf(task.Role)

	var deps []contextEntry
	for _, dep := range task.Dependencies {
		if dep == nil || dep.Output == "" {
			continue
		}
		deps = append(deps, contextEntry{Stage: dep.Stage, Role: dep.Role, Output: dep.Output})
	}

	var names []string
	var toolPrompts string
	if tools != nil {
		names = tools.Names()
		toolPrompts = tools.Prompts(ctx)
	}

	var buf bytes.Buffer
	if err := agentPromptTmpl.Execute(&buf, map[string]any{
		"Name":           p.Name,
		"Goal":           p.Goal,
		"Backstory":      p.Backstory,
		"Description":    task.Description,
		"ExpectedOutput": task.ExpectedOutput,
		"Context":        deps,
		"Tools":          names,
		"ToolPrompts":    toolPrompts,
		"MaxIterations":  x.maxIterations,
	}); err != nil {
		return "", goerr.Wrap(err, "failed to execute agent prompt template")
	}
	return buf.String(), nil
}

// Execute runs the task and returns the text of the model's final answer. When the
// iteration limit is hit while the model still calls tools, all text produced so far
// is returned instead.
func (x *Executor) Execute(ctx context.Context, task *model.Task, tools *tool.Registry) (string, error) {
	if task == nil {
		return "", goerr.Wrap(model.ErrMalformedInput, "task is nil")
	}

	logger := logging.From(ctx).With(slog.String("role", string(task.Role)))

	prompt, err := x.systemPrompt(ctx, task, tools)
	if err != nil {
		return "", err
	}

	thinkingBudget := int32(0)
	config := &genai.GenerateContentConfig{
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  &thinkingBudget,
		},
	}
	if tools != nil {
		config.Tools = tools.Specs()
	}

	contents := []*genai.Content{
		genai.NewContentFromText("Execute this task: "+task.Description, genai.RoleUser),
	}

	var transcript strings.Builder
	for i := 0; i < x.maxIterations; i++ {
		config.SystemInstruction = genai.NewContentFromText(
			fmt.Sprintf("%s\n\n**Current Status**: iteration %d/%d", prompt, i+1, x.maxIterations), "")

		resp, compacted, err := x.generate(ctx, logger, contents, config)
		contents = compacted
		if err != nil {
			return "", goerr.Wrap(err, "failed to generate content",
				goerr.V("task_id", task.ID),
				goerr.V("iteration", i+1))
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return "", goerr.New("empty response from Gemini", goerr.V("task_id", task.ID))
		}

		candidate := resp.Candidates[0]
		contents = append(contents, candidate.Content)

		var answer strings.Builder
		var functionResponses []*genai.Part
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				answer.WriteString(part.Text)
			}
			if part.FunctionCall != nil {
				functionResponses = append(functionResponses, &genai.Part{
					FunctionResponse: x.callTool(ctx, logger, tools, *part.FunctionCall),
				})
			}
		}

		if answer.Len() > 0 {
			transcript.WriteString(answer.String())
			transcript.WriteString("\n")
		}

		if len(functionResponses) == 0 {
			if answer.Len() == 0 {
				return "", goerr.New("model returned no answer", goerr.V("task_id", task.ID))
			}
			return answer.String(), nil
		}

		contents = append(contents, &genai.Content{
			Role:  genai.RoleUser,
			Parts: functionResponses,
		})
	}

	logger.Warn("tool call limit reached", slog.Int("max_iterations", x.maxIterations))
	if transcript.Len() == 0 {
		return "", goerr.New("tool call limit reached without an answer",
			goerr.V("task_id", task.ID),
			goerr.V("max_iterations", x.maxIterations))
	}
	return strings.TrimSpace(transcript.String()), nil
}

// generate calls Gemini once. When the conversation exceeds the model's token limit the
// history is compressed and the call retried with the compressed history.
func (x *Executor) generate(ctx context.Context, logger *slog.Logger, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, []*genai.Content, error) {
	resp, err := x.gemini.GenerateContent(ctx, contents, config)
	if !isTokenLimitError(err) {
		return resp, contents, err
	}

	logger.Warn("token limit exceeded, compressing history", slog.Int("contents", len(contents)))
	compressed, cerr := compressHistory(ctx, x.gemini, contents)
	if cerr != nil {
		return nil, contents, goerr.Wrap(err, "token limit exceeded", goerr.V("compress_error", cerr.Error()))
	}

	resp, err = x.gemini.GenerateContent(ctx, compressed, config)
	return resp, compressed, err
}

// callTool executes one function call. Failures are reported back to the model as an
// error response so that it can recover.
func (x *Executor) callTool(ctx context.Context, logger *slog.Logger, tools *tool.Registry, fc genai.FunctionCall) *genai.FunctionResponse {
	logger.Debug("tool call", slog.String("name", fc.Name), slog.Any("args", fc.Args))

	if tools == nil {
		return &genai.FunctionResponse{
			Name:     fc.Name,
			Response: map[string]any{"error": "no tool is available"},
		}
	}

	resp, err := tools.Execute(ctx, fc)
	if err != nil {
		logger.Warn("tool call failed", slog.String("name", fc.Name), slog.Any("error", err))
		return &genai.FunctionResponse{
			Name:     fc.Name,
			Response: map[string]any{"error": err.Error()},
		}
	}
	if resp.Name == "" {
		resp.Name = fc.Name
	}
	return resp
}
