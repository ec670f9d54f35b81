package tool

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/m-mizutani/ferret/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"google.golang.org/genai"
)

var errToolNotFound = goerr.New("tool not found")

// Registry manages available tools for the LLM. A registry is never mutated after
// construction; With and ForRole derive new ones.
type Registry struct {
	tools    map[string]Tool
	decls    map[string]*genai.FunctionDeclaration
	allTools []Tool
}

// New creates a new tool registry with the given tools
func New(tools ...Tool) *Registry {
	r := &Registry{
		tools: make(map[string]Tool),
		decls: make(map[string]*genai.FunctionDeclaration),
	}
	r.add(tools...)
	return r
}

func (r *Registry) add(tools ...Tool) {
	for _, t := range tools {
		r.allTools = append(r.allTools, t)
		spec := t.Spec()
		if spec == nil {
			continue
		}
		for _, fd := range spec.FunctionDeclarations {
			r.tools[fd.Name] = t
			r.decls[fd.Name] = fd
		}
	}
}

// Setup initializes tools implementing Initializer and registers the enabled ones.
func Setup(ctx context.Context, tools ...Tool) (*Registry, error) {
	enabled := make([]Tool, 0, len(tools))
	for _, t := range tools {
		if initializer, ok := t.(Initializer); ok {
			ok, err := initializer.Init(ctx)
			if err != nil {
				return nil, goerr.Wrap(err, "failed to initialize tool")
			}
			if !ok {
				continue
			}
		}
		enabled = append(enabled, t)
	}

	r := New(enabled...)
	logging.From(ctx).Debug("tools registered", slog.Any("names", r.Names()))
	return r, nil
}

// With returns a new registry holding r's tools plus the given ones.
func (r *Registry) With(tools ...Tool) *Registry {
	derived := New(r.allTools...)
	derived.add(tools...)
	return derived
}

// Names returns the function names of all registered tools, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.decls))
	for name := range r.decls {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether a function with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.decls[name]
	return ok
}

// Specs returns all tool specifications for Gemini function calling. Declarations are
// merged into a single tool in name order. It returns nil when no tool is registered.
func (r *Registry) Specs() []*genai.Tool {
	if len(r.decls) == 0 {
		return nil
	}

	names := r.Names()
	decls := make([]*genai.FunctionDeclaration, len(names))
	for i, name := range names {
		decls[i] = r.decls[name]
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// Prompts returns all tool prompts concatenated
func (r *Registry) Prompts(ctx context.Context) string {
	var prompts []string
	for _, t := range r.allTools {
		if prompt := t.Prompt(ctx); prompt != "" {
			prompts = append(prompts, prompt)
		}
	}
	return strings.Join(prompts, "\n\n")
}

// Flags returns all tool flags combined
func (r *Registry) Flags() []cli.Flag {
	var flags []cli.Flag
	for _, t := range r.allTools {
		if toolFlags := t.Flags(); toolFlags != nil {
			flags = append(flags, toolFlags...)
		}
	}
	return flags
}

// Execute runs the tool with the given function call
func (r *Registry) Execute(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	tool, ok := r.tools[fc.Name]
	if !ok {
		return nil, goerr.Wrap(errToolNotFound, "tool not found", goerr.V("name", fc.Name))
	}

	return tool.Execute(ctx, fc)
}
