// Package academic exposes the source analyzer to agents as a function call.
package academic

import (
	"context"
	"encoding/json"

	"github.com/m-mizutani/ferret/pkg/interfaces"
	"github.com/m-mizutani/ferret/pkg/tool"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"google.golang.org/genai"
)

const DefaultMaxContentLength = 20000

type analyzeInput struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

type Tool struct {
	analyzer   interfaces.SourceAnalyzer
	maxContent int64
}

func New(analyzer interfaces.SourceAnalyzer) *Tool {
	return &Tool{analyzer: analyzer, maxContent: DefaultMaxContentLength}
}

func (x *Tool) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:        "max-source-content",
			Usage:       "Bytes of source content analyzed by analyze_academic_source, longer content is cut",
			Value:       DefaultMaxContentLength,
			Sources:     cli.EnvVars("FERRET_MAX_SOURCE_CONTENT"),
			Destination: &x.maxContent,
		},
	}
}

func (x *Tool) Prompt(ctx context.Context) string {
	return `When you have the text of a source, call analyze_academic_source to classify it, score its credibility and quality, detect bias and get ready-made citations.`
}

func (x *Tool) Spec() *genai.Tool {
	return tool.Declaration(tool.NameAcademicSource,
		"Analyze a source's content: source type, credibility and quality scores, bias indicators, key findings, metadata and citations (APA, MLA, Chicago, BibTeX)",
		map[string]*genai.Schema{
			"url": {
				Type:        genai.TypeString,
				Description: "URL of the source",
			},
			"title": {
				Type:        genai.TypeString,
				Description: "Title of the source",
			},
			"content": {
				Type:        genai.TypeString,
				Description: "Text content of the source",
			},
		},
		"url", "content",
	)
}

func (x *Tool) Execute(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	paramsJSON, err := json.Marshal(fc.Args)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal function arguments")
	}

	var input analyzeInput
	if err := json.Unmarshal(paramsJSON, &input); err != nil {
		return nil, goerr.Wrap(err, "failed to parse input parameters")
	}
	if input.Content == "" {
		return nil, goerr.New("content is required", goerr.V("url", input.URL))
	}
	if x.maxContent > 0 && int64(len(input.Content)) > x.maxContent {
		input.Content = input.Content[:x.maxContent]
	}

	analysis, err := x.analyzer.Analyze(ctx, input.URL, input.Title, input.Content)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to analyze source", goerr.V("url", input.URL))
	}

	resultJSON, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal result")
	}

	return &genai.FunctionResponse{
		Name:     fc.Name,
		Response: map[string]any{"result": string(resultJSON)},
	}, nil
}
