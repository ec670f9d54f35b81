package agent

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"slices"
	"strings"

	"github.com/m-mizutani/ferret/pkg/adapter"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

// compressionRatio is the share of the history, by byte size, replaced by a summary.
const compressionRatio = 0.7

//go:embed prompt/summarize.md
var summarizePromptRaw string

// isTokenLimitError checks if the error is due to token limit exceeded
func isTokenLimitError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return false
	}

	// Example: "The input token count (2500030) exceeds the maximum number of tokens allowed (1048576)."
	return apiErr.Code == 400 &&
		apiErr.Status == "INVALID_ARGUMENT" &&
		strings.HasPrefix(apiErr.Message, "The input token count (") &&
		strings.Contains(apiErr.Message, ") exceeds the maximum number of tokens allowed (")
}

// contentSize calculates the byte size of a content by JSON marshaling
func contentSize(content *genai.Content) int {
	data, err := json.Marshal(content)
	if err != nil {
		return 0
	}
	return len(data)
}

// compressHistory replaces the older part of a task conversation with a summary. The
// first content holds the task and is kept; the summary is appended to it. The kept
// tail starts at a model turn so that no function response loses its call.
func compressHistory(ctx context.Context, gemini adapter.Gemini, contents []*genai.Content) ([]*genai.Content, error) {
	if len(contents) == 0 {
		return nil, goerr.New("history is empty")
	}

	totalBytes := 0
	byteSizes := make([]int, len(contents))
	for i, content := range contents[1:] {
		byteSizes[i+1] = contentSize(content)
		totalBytes += byteSizes[i+1]
	}
	threshold := int(float64(totalBytes) * compressionRatio)

	// cut at the last model turn preceded by no more than threshold bytes
	cut := 0
	cumulative := 0
	for i := 1; i < len(contents); i++ {
		if i > 1 && contents[i].Role == genai.RoleModel && cumulative <= threshold {
			cut = i
		}
		cumulative += byteSizes[i]
	}
	if cut == 0 {
		return nil, goerr.New("insufficient content to compress")
	}

	summary, err := summarizeContents(ctx, gemini, contents[:cut])
	if err != nil {
		return nil, goerr.Wrap(err, "failed to summarize contents")
	}

	task := &genai.Content{
		Role: genai.RoleUser,
		Parts: append(slices.Clone(contents[0].Parts),
			&genai.Part{Text: "=== Progress Summary ===\n\n" + summary}),
	}

	return append([]*genai.Content{task}, contents[cut:]...), nil
}

// summarizeContents generates a summary of the given conversation contents
func summarizeContents(ctx context.Context, gemini adapter.Gemini, contents []*genai.Content) (string, error) {
	contentsWithPrompt := append(slices.Clone(contents), genai.NewContentFromText(summarizePromptRaw, genai.RoleUser))

	thinkingBudget := int32(0)
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText("You are an assistant for a research team.", ""),
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  &thinkingBudget,
		},
	}

	resp, err := gemini.GenerateContent(ctx, contentsWithPrompt, config)
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate summary")
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", goerr.New("no summary generated")
	}

	var summary strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			summary.WriteString(part.Text)
		}
	}

	if summary.Len() == 0 {
		return "", goerr.New("empty summary generated")
	}

	return summary.String(), nil
}
