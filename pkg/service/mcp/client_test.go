package mcp_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/ferret/pkg/service/mcp"
	"github.com/m-mizutani/gt"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func TestStdioTransport(t *testing.T) {
	ctx := context.Background()

	client := mcp.NewClient()
	err := client.Connect(ctx, mcp.ServerConfig{
		Name:      "test-stdio",
		Transport: "stdio",
		Command:   []string{"go", "run", "./testdata/stdio/main.go"},
	})
	gt.NoError(t, err)
	defer client.Close()

	servers := client.GetAllServers()
	gt.A(t, servers).Length(1)
	gt.Equal(t, servers[0], "test-stdio")

	tools, err := client.GetTools("test-stdio")
	gt.NoError(t, err)
	gt.A(t, tools).Length(1)
	gt.Equal(t, tools[0].Name, "search")

	result, err := client.CallTool(ctx, "test-stdio", "search", map[string]any{
		"query": "ferrets",
	})
	gt.NoError(t, err)
	gt.V(t, result).NotNil()
	gt.A(t, result.Content).Length(1)

	textContent, ok := result.Content[0].(*mcpsdk.TextContent)
	gt.True(t, ok)
	gt.Equal(t, textContent.Text, "1. ferrets overview - https://example.edu/ferrets")
}

func newEchoServer(t *testing.T, toolName string) *httptest.Server {
	t.Helper()

	server := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    "test-http-server",
		Version: "1.0.0",
	}, nil)

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        toolName,
		Description: "Echo back the message",
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest, params *struct {
		Message string `json:"message" jsonschema:"Message to echo"`
	}) (*mcpsdk.CallToolResult, any, error) {
		return &mcpsdk.CallToolResult{
			Content: []mcpsdk.Content{
				&mcpsdk.TextContent{Text: params.Message},
			},
		}, nil, nil
	})

	handler := mcpsdk.NewStreamableHTTPHandler(func(r *http.Request) *mcpsdk.Server {
		return server
	}, nil)

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return ts
}

func TestHTTPStreamableTransport(t *testing.T) {
	ctx := context.Background()
	ts := newEchoServer(t, "echo")

	client := mcp.NewClient()
	err := client.Connect(ctx, mcp.ServerConfig{
		Name:      "test-http",
		Transport: "http",
		URL:       ts.URL,
	})
	gt.NoError(t, err)
	defer client.Close()

	tools, err := client.GetTools("test-http")
	gt.NoError(t, err)
	gt.A(t, tools).Length(1)
	gt.Equal(t, tools[0].Name, "echo")

	result, err := client.CallTool(ctx, "test-http", "echo", map[string]any{
		"message": "Hello from HTTP!",
	})
	gt.NoError(t, err)
	gt.A(t, result.Content).Length(1)

	textContent, ok := result.Content[0].(*mcpsdk.TextContent)
	gt.True(t, ok)
	gt.Equal(t, textContent.Text, "Hello from HTTP!")
}

func TestConnectErrors(t *testing.T) {
	ctx := context.Background()
	client := mcp.NewClient()

	gt.Error(t, client.Connect(ctx, mcp.ServerConfig{Name: "x", Transport: "grpc"}))
	gt.Error(t, client.Connect(ctx, mcp.ServerConfig{Name: "x", Transport: "stdio"}))
	gt.Error(t, client.Connect(ctx, mcp.ServerConfig{Name: "x", Transport: "http"}))

	_, err := client.GetTools("x")
	gt.Error(t, err)
	_, err = client.CallTool(ctx, "x", "echo", nil)
	gt.Error(t, err)
}

func TestServerConfigFunctionName(t *testing.T) {
	cfg := mcp.ServerConfig{Rename: map[string]string{"brave_web_search": "web_search"}}
	gt.Equal(t, cfg.FunctionName("brave_web_search"), "web_search")
	gt.Equal(t, cfg.FunctionName("fetch"), "fetch")
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcp.yaml")
	gt.NoError(t, os.WriteFile(path, []byte(`
servers:
  - name: search
    transport: stdio
    command: ["npx", "-y", "@modelcontextprotocol/server-brave-search"]
    env:
      BRAVE_API_KEY: dummy
    rename:
      brave_web_search: web_search
  - name: fetch
    transport: http
    url: http://localhost:8080/mcp
`), 0600))

	cfg, err := mcp.LoadConfig(path)
	gt.NoError(t, err)
	gt.A(t, cfg.Servers).Length(2)
	gt.Equal(t, cfg.Servers[0].Command, []string{"npx", "-y", "@modelcontextprotocol/server-brave-search"})
	gt.Equal(t, cfg.Servers[0].Env["BRAVE_API_KEY"], "dummy")
	gt.Equal(t, cfg.Servers[0].FunctionName("brave_web_search"), "web_search")
	gt.Equal(t, cfg.Servers[1].URL, "http://localhost:8080/mcp")
}

func TestLoadAndConnect(t *testing.T) {
	ctx := context.Background()

	t.Run("no config", func(t *testing.T) {
		p, err := mcp.LoadAndConnect(ctx, "")
		gt.NoError(t, err)
		gt.V(t, p).Nil()
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := mcp.LoadAndConnect(ctx, filepath.Join(t.TempDir(), "none.yaml"))
		gt.Error(t, err)
	})

	t.Run("unreachable servers are skipped", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "mcp.yaml")
		gt.NoError(t, os.WriteFile(path, []byte("servers:\n  - name: broken\n    transport: http\n"), 0600))

		p, err := mcp.LoadAndConnect(ctx, path)
		gt.NoError(t, err)
		gt.V(t, p).Nil()
	})

	t.Run("connected", func(t *testing.T) {
		ts := newEchoServer(t, "fetch_page")
		path := filepath.Join(t.TempDir(), "mcp.yaml")
		gt.NoError(t, os.WriteFile(path, []byte("servers:\n  - name: web\n    transport: http\n    url: "+ts.URL+"\n    rename:\n      fetch_page: scrape_website\n"), 0600))

		p, err := mcp.LoadAndConnect(ctx, path)
		gt.NoError(t, err)
		gt.V(t, p).NotNil()
		defer p.Close()

		ok, err := p.Init(ctx)
		gt.NoError(t, err)
		gt.True(t, ok)
		gt.Equal(t, p.Spec().FunctionDeclarations[0].Name, "scrape_website")
	})
}
