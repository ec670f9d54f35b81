package adapter_test

import (
	"context"
	"os"
	"testing"

	"github.com/m-mizutani/ferret/pkg/adapter"
	"github.com/m-mizutani/gt"
	"google.golang.org/genai"
)

func TestGenerateContent(t *testing.T) {
	projectID := os.Getenv("TEST_GEMINI_PROJECT")
	if projectID == "" {
		t.Skip("TEST_GEMINI_PROJECT is not set")
	}
	location := os.Getenv("TEST_GEMINI_LOCATION")
	if location == "" {
		location = "us-central1"
	}

	ctx := context.Background()
	client, err := adapter.NewGemini(ctx, projectID, location, adapter.WithGenerativeModel(os.Getenv("TEST_GEMINI_MODEL")))
	gt.NoError(t, err)

	contents := []*genai.Content{
		genai.NewContentFromText("List two kinds of sources a researcher should trust for labor statistics. Answer in one line.", genai.RoleUser),
	}
	resp, err := client.GenerateContent(ctx, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText("You are an information gatherer.", ""),
	})
	gt.NoError(t, err)
	gt.V(t, resp).NotNil()
	gt.True(t, len(resp.Candidates) > 0)
	gt.V(t, resp.Candidates[0].Content).NotNil()

	text := resp.Text()
	gt.True(t, text != "")
	t.Log("response:", text)
}
