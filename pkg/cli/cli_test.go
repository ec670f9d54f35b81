package cli_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/ferret/pkg/cli"
	"github.com/m-mizutani/gt"
)

func run(args ...string) *cli.Error {
	return cli.Run(context.Background(), append([]string{"ferret"}, args...))
}

func TestRunRequiresQuery(t *testing.T) {
	err := run("run")
	gt.V(t, err).NotNil()
	gt.Equal(t, err.Code, 1)
	gt.S(t, err.Message).Contains("query is required")
}

func TestRunRejectsUnknownFormat(t *testing.T) {
	err := run("run", "--format", "xml", "remote work")
	gt.V(t, err).NotNil()
	gt.S(t, err.Message).Contains("invalid format")
}

func TestRunRequiresGeminiProject(t *testing.T) {
	t.Setenv("FERRET_GEMINI_PROJECT", "")
	t.Setenv("GEMINI_PROJECT_ID", "")
	err := run("run", "--quiet", "remote work")
	gt.V(t, err).NotNil()
	gt.S(t, err.Message).Contains("gemini-project is required")
}

func TestRunRejectsUnknownLogFormat(t *testing.T) {
	err := run("run", "--log-format", "xml", "remote work")
	gt.V(t, err).NotNil()
	gt.S(t, err.Message).Contains("invalid log format")
}

func TestRunsListNeedsRepository(t *testing.T) {
	t.Setenv("FERRET_FIRESTORE_PROJECT", "")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "")
	t.Setenv("FERRET_SQLITE_PATH", "")
	err := run("runs", "list")
	gt.V(t, err).NotNil()
	gt.S(t, err.Message).Contains("project or sqlite is required")
}

func TestRunsWithSQLite(t *testing.T) {
	t.Setenv("FERRET_FIRESTORE_PROJECT", "")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "")
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	gt.True(t, run("runs", "list", "--sqlite", dbPath) == nil)

	err := run("runs", "show", "--sqlite", dbPath, "--run-id", "missing")
	gt.V(t, err).NotNil()
	gt.S(t, err.Message).Contains("failed to get run")
}

func TestAnalyzeSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paper.txt")
	gt.NoError(t, os.WriteFile(path, []byte("Abstract. This peer-reviewed study by Jane Smith (2024) found a 20% increase."), 0o600))

	gt.True(t, run("analyze-source", "--url", "https://example.edu/paper", path) == nil)

	err := run("analyze-source")
	gt.V(t, err).NotNil()
	gt.S(t, err.Message).Contains("file path is required")

	err = run("analyze-source", filepath.Join(t.TempDir(), "absent.txt"))
	gt.V(t, err).NotNil()
	gt.S(t, err.Message).Contains("failed to read source")
}

func TestTools(t *testing.T) {
	t.Setenv("FERRET_MCP_CONFIG", "")
	gt.True(t, run("tools") == nil)
}
