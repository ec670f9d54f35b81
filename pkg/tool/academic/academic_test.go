package academic_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/m-mizutani/ferret/pkg/model"
	"github.com/m-mizutani/ferret/pkg/source"
	"github.com/m-mizutani/ferret/pkg/tool"
	"github.com/m-mizutani/ferret/pkg/tool/academic"
	"github.com/m-mizutani/gt"
	"github.com/urfave/cli/v3"
	"google.golang.org/genai"
)

func TestExecute(t *testing.T) {
	ctx := context.Background()
	r := tool.New(academic.New(source.NewAcademicAnalyzer()))
	gt.Equal(t, r.Names(), []string{tool.NameAcademicSource})

	resp, err := r.Execute(ctx, genai.FunctionCall{
		Name: tool.NameAcademicSource,
		Args: map[string]any{
			"url":     "https://cs.example.edu/paper",
			"title":   "Peer Review at Scale",
			"content": "A peer-reviewed journal article. Authors: Ann Lee.\nThe study found that reviews improve quality markedly.",
		},
	})
	gt.NoError(t, err)

	result, ok := resp.Response["result"].(string)
	gt.True(t, ok)

	var analysis model.SourceAnalysis
	gt.NoError(t, json.Unmarshal([]byte(result), &analysis))
	gt.Equal(t, analysis.SourceType, source.TypeAcademic)
	gt.Equal(t, analysis.Metadata.Authors, []string{"Ann Lee"})
	gt.S(t, analysis.Citation.APA).Contains("Ann Lee")
}

func TestExecuteRequiresContent(t *testing.T) {
	r := tool.New(academic.New(source.NewAcademicAnalyzer()))
	_, err := r.Execute(context.Background(), genai.FunctionCall{
		Name: tool.NameAcademicSource,
		Args: map[string]any{"url": "https://example.com"},
	})
	gt.Error(t, err)
}

type contentRecorder struct {
	content string
}

func (x *contentRecorder) Analyze(ctx context.Context, url, title, content string) (*model.SourceAnalysis, error) {
	x.content = content
	return &model.SourceAnalysis{SourceType: source.TypeOther}, nil
}

func TestExecuteCutsLongContent(t *testing.T) {
	rec := &contentRecorder{}
	x := academic.New(rec)

	flags := x.Flags()
	gt.A(t, flags).Length(1)
	maxFlag, ok := flags[0].(*cli.IntFlag)
	gt.True(t, ok)
	gt.Equal(t, maxFlag.Name, "max-source-content")
	*maxFlag.Destination = 10

	_, err := x.Execute(context.Background(), genai.FunctionCall{
		Name: tool.NameAcademicSource,
		Args: map[string]any{"url": "https://example.com", "content": "0123456789abcdef"},
	})
	gt.NoError(t, err)
	gt.Equal(t, rec.content, "0123456789")
}
