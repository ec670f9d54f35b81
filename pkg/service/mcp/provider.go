package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/ferret/pkg/tool"
	"github.com/m-mizutani/ferret/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/urfave/cli/v3"
	"google.golang.org/genai"
)

var (
	_ tool.Tool        = (*Provider)(nil)
	_ tool.Initializer = (*Provider)(nil)
)

// Provider implements tool.Tool interface for MCP tools
type Provider struct {
	client *Client
	tools  []*mcpTool
}

type mcpTool struct {
	serverName string
	mcpTool    *mcp.Tool
	funcDecl   *genai.FunctionDeclaration
}

// NewProvider creates a new MCP tool provider
func NewProvider(client *Client) *Provider {
	return &Provider{
		client: client,
		tools:  make([]*mcpTool, 0),
	}
}

// Close disconnects from every MCP server.
func (p *Provider) Close() error {
	if p.client == nil {
		return nil
	}
	return p.client.Close()
}

func (p *Provider) Flags() []cli.Flag {
	return nil // MCP config is loaded separately
}

// Init registers the tools of every connected server. Calling it again rebuilds the list.
// When two servers expose the same function name the first server wins.
func (p *Provider) Init(ctx context.Context) (bool, error) {
	p.tools = make([]*mcpTool, 0)
	if p.client == nil {
		return false, nil
	}

	logger := logging.From(ctx)
	seen := map[string]string{}

	for _, serverName := range p.client.GetAllServers() {
		tools, err := p.client.GetTools(serverName)
		if err != nil {
			return false, goerr.Wrap(err, "failed to get tools from server",
				goerr.V("server", serverName))
		}
		cfg, _ := p.client.ServerConfig(serverName)

		for _, t := range tools {
			funcDecl, err := p.convertToFunctionDeclaration(t)
			if err != nil {
				return false, goerr.Wrap(err, "failed to convert tool",
					goerr.V("server", serverName),
					goerr.V("tool", t.Name))
			}
			funcDecl.Name = cfg.FunctionName(t.Name)

			if owner, dup := seen[funcDecl.Name]; dup {
				logger.Warn("duplicated MCP function, ignored",
					slog.String("name", funcDecl.Name),
					slog.String("server", serverName),
					slog.String("kept", owner))
				continue
			}
			seen[funcDecl.Name] = serverName

			p.tools = append(p.tools, &mcpTool{
				serverName: serverName,
				mcpTool:    t,
				funcDecl:   funcDecl,
			})
		}
	}

	return len(p.tools) > 0, nil
}

// convertToFunctionDeclaration converts MCP tool to Gemini FunctionDeclaration
func (p *Provider) convertToFunctionDeclaration(t *mcp.Tool) (*genai.FunctionDeclaration, error) {
	funcDecl := &genai.FunctionDeclaration{
		Name:        t.Name,
		Description: t.Description,
	}

	if t.InputSchema != nil {
		// InputSchema is any, so go through JSON to get a jsonschema.Schema
		schemaJSON, err := json.Marshal(t.InputSchema)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to marshal input schema")
		}

		var jsSchema jsonschema.Schema
		if err := json.Unmarshal(schemaJSON, &jsSchema); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal input schema")
		}

		schema, err := toGenaiSchema(&jsSchema)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to convert input schema")
		}
		funcDecl.Parameters = schema
	}

	return funcDecl, nil
}

func (p *Provider) Spec() *genai.Tool {
	if len(p.tools) == 0 {
		return nil
	}

	funcDecls := make([]*genai.FunctionDeclaration, len(p.tools))
	for i, t := range p.tools {
		funcDecls[i] = t.funcDecl
	}

	return &genai.Tool{
		FunctionDeclarations: funcDecls,
	}
}

func (p *Provider) Prompt(ctx context.Context) string {
	if len(p.tools) == 0 {
		return ""
	}

	return "Search, website and file tools are served by external MCP servers. Their results are raw text; cite the URL or file each finding comes from."
}

// Execute calls the MCP tool behind the function name and returns its text content.
func (p *Provider) Execute(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	var target *mcpTool
	for _, t := range p.tools {
		if t.funcDecl.Name == fc.Name {
			target = t
			break
		}
	}
	if target == nil {
		return nil, goerr.New("tool not found", goerr.V("name", fc.Name))
	}

	result, err := p.client.CallTool(ctx, target.serverName, target.mcpTool.Name, fc.Args)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to call MCP tool")
	}

	text, err := resultText(result)
	if err != nil {
		return nil, err
	}
	if result.IsError {
		return nil, goerr.New("MCP tool returned an error",
			goerr.V("server", target.serverName),
			goerr.V("tool", target.mcpTool.Name),
			goerr.V("message", text))
	}

	return &genai.FunctionResponse{
		Name:     fc.Name,
		Response: map[string]any{"result": text},
	}, nil
}

// resultText joins the text contents of a result. Results without text content are
// returned as JSON.
func resultText(result *mcp.CallToolResult) (string, error) {
	var texts []string
	for _, c := range result.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			texts = append(texts, tc.Text)
		}
	}
	if len(texts) > 0 {
		return strings.Join(texts, "\n"), nil
	}

	raw, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", goerr.Wrap(err, "failed to marshal result")
	}
	return string(raw), nil
}
