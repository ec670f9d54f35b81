package report_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/ferret/pkg/model"
	"github.com/m-mizutani/ferret/pkg/report"
	"github.com/m-mizutani/gt"
)

const agentOutput = `# AI Overview

## Executive Summary
AI is a broad field.
It keeps growing.

**Key Findings:**
- Models learn from data
- Compute keeps getting cheaper

Our analysis shows steady growth.

3. Conclusion
AI adoption will continue.

### Sources
[1] https://example.edu/ai
`

func TestParseSections(t *testing.T) {
	parsed := report.ParseSections("what is ai", agentOutput)

	gt.Equal(t, parsed.ReportKind(), model.ReportParsed)
	gt.Equal(t, parsed.Title, "AI Overview")
	gt.Equal(t, parsed.Raw, agentOutput)
	gt.A(t, parsed.Sections).Length(4)

	summary, ok := parsed.Section(model.SectionExecutiveSummary)
	gt.True(t, ok)
	gt.Equal(t, summary, "AI is a broad field.\nIt keeps growing.")

	findings, ok := parsed.Section(model.SectionFindings)
	gt.True(t, ok)
	gt.Equal(t, findings, "- Models learn from data\n- Compute keeps getting cheaper\n\nOur analysis shows steady growth.")

	conclusions, ok := parsed.Section(model.SectionConclusions)
	gt.True(t, ok)
	gt.Equal(t, conclusions, "AI adoption will continue.")

	refs, ok := parsed.Section(model.SectionReferences)
	gt.True(t, ok)
	gt.Equal(t, refs, "[1] https://example.edu/ai")

	_, ok = parsed.Section(model.SectionMethodology)
	gt.False(t, ok)
}

func TestParseSectionsWithoutHeaders(t *testing.T) {
	parsed := report.ParseSections("What is AI?", "  AI is software that learns.\nThat is all.  ")

	gt.Equal(t, parsed.Title, "Research Report: What Is AI")
	gt.A(t, parsed.Sections).Length(1)
	gt.Equal(t, parsed.Sections[0], model.ParsedSection{
		Name: model.SectionExecutiveSummary,
		Body: "AI is software that learns.\nThat is all.",
	})
}

func TestParseSectionsHeaderVariants(t *testing.T) {
	testCases := map[string]struct {
		header string
		want   model.SectionName
	}{
		"markdown":   {header: "## Introduction", want: model.SectionIntroduction},
		"bold colon": {header: "**Methodology:**", want: model.SectionMethodology},
		"plain":      {header: "ANALYSIS", want: model.SectionAnalysis},
		"colon":      {header: "Recommendations:", want: model.SectionRecommendations},
		"numbered":   {header: "1. Executive Summary", want: model.SectionExecutiveSummary},
		"singular":   {header: "# Conclusion", want: model.SectionConclusions},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			parsed := report.ParseSections("q", tc.header+"\nbody text")
			gt.A(t, parsed.Sections).Length(1)
			gt.Equal(t, parsed.Sections[0].Name, tc.want)
			gt.Equal(t, parsed.Sections[0].Body, "body text")
		})
	}
}

func TestMarkdown(t *testing.T) {
	gathered, analysis := singleSourceInput()
	r := newAssembler().Assemble("What is AI?", gathered, analysis)

	md := report.Markdown(r)
	gt.S(t, md).Contains("# Research Report: What Is AI\n")
	gt.S(t, md).Contains("## Executive Summary\n\n")
	gt.S(t, md).Contains("### Additional Findings (individual)")
	gt.S(t, md).Contains("- AI systems learn patterns from data (Intro to AI)")
	gt.S(t, md).Contains("Overall confidence: 50%")
	gt.S(t, md).Contains("[1] Intro to AI <https://ai.example.edu/intro> (reliability 90%)")

	parsed := report.ParseSections("what is ai", agentOutput)
	md = report.Markdown(parsed)
	gt.S(t, md).Contains("# AI Overview\n")
	gt.S(t, md).Contains("## Key Findings\n\n- Models learn from data")
	gt.S(t, md).Contains("## References\n\n[1] https://example.edu/ai")
}

func TestCreateSummary(t *testing.T) {
	gathered, analysis := singleSourceInput()
	r := report.NewAssembler(report.WithClock(func() time.Time { return fixedTime })).
		Assemble("What is AI?", gathered, analysis)

	summary := report.CreateSummary(r, 0)
	gt.S(t, summary).Contains("Research Report: What Is AI")
	gt.S(t, summary).Contains("1 sources and 1 key findings")
	gt.S(t, summary).Contains("Key conclusions: This research provides valuable insights")
	gt.S(t, summary).Contains("Primary recommendation: Conduct additional research to address data gaps")

	gt.Equal(t, report.CreateSummary(r, 3), "Research Report: What...")

	parsed := report.ParseSections("what is ai", agentOutput)
	gt.Equal(t, report.CreateSummary(parsed, 0), "AI Overview AI is a broad field.\nIt keeps growing.")
}
