package report_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/m-mizutani/ferret/pkg/model"
	"github.com/m-mizutani/ferret/pkg/report"
	"github.com/m-mizutani/gt"
)

var fixedTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newAssembler() *report.Assembler {
	return report.NewAssembler(report.WithClock(func() time.Time { return fixedTime }))
}

func singleSourceInput() (*model.GatheredInfo, *model.AnalysisResult) {
	gathered := &model.GatheredInfo{
		MainFindings: []model.Finding{
			{Text: "AI systems learn patterns from data", Source: model.SourceRef{Title: "Intro to AI", URL: "https://ai.example.edu/intro"}},
		},
		SourcesUsed: []*model.Source{
			{URL: "https://ai.example.edu/intro", Title: "Intro to AI", Reliability: 0.9},
		},
	}
	analysis := &model.AnalysisResult{
		Confidence: model.ConfidenceLevels{
			SourceReliability: 0.9,
			DataCompleteness:  0.1,
			Consistency:       0.5,
			Overall:           0.5,
		},
	}
	return gathered, analysis
}

func TestTitle(t *testing.T) {
	testCases := map[string]struct {
		query string
		want  string
	}{
		"acronym":       {query: "What is AI?", want: "Research Report: What Is AI"},
		"lower acronym": {query: "how do nlp api tools work", want: "Research Report: How Do NLP API Tools Work"},
		"mixed case":    {query: "rUST memory SAFETY", want: "Research Report: Rust Memory Safety"},
		"extra spaces":  {query: "  climate   change ", want: "Research Report: Climate Change"},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			gt.Equal(t, report.Title(tc.query), tc.want)
		})
	}
}

func TestAssembleSingleSource(t *testing.T) {
	gathered, analysis := singleSourceInput()
	r := newAssembler().Assemble("What is AI?", gathered, analysis)

	gt.Equal(t, r.Title, "Research Report: What Is AI")
	gt.S(t, r.ExecutiveSummary).Contains("This report addresses the research query: 'What is AI?'")
	gt.S(t, r.ExecutiveSummary).Contains("1 sources and 1 key findings")
	gt.S(t, r.ExecutiveSummary).Contains("The findings show moderate reliability with some variations.")
	gt.S(t, r.ExecutiveSummary).NotContains("high-confidence")

	gt.S(t, r.Introduction).Contains("The research encompasses academic sources")
	gt.S(t, r.Methodology).Contains("2. Source Evaluation: 1 sources were evaluated")

	gt.A(t, r.Findings).Length(1)
	gt.Equal(t, r.Findings[0].Theme, model.AdditionalFindingsTheme)
	gt.Equal(t, r.Findings[0].PatternStrength, "individual")

	gt.A(t, r.References).Length(1)
	gt.Equal(t, r.References[0], model.Reference{
		ID:          "[1]",
		Title:       "Intro to AI",
		URL:         "https://ai.example.edu/intro",
		Reliability: "90%",
	})

	gt.A(t, r.Conclusions).Length(1)
	gt.A(t, r.Recommendations).Length(1)
	gt.Equal(t, r.Recommendations[0].Recommendation, "Conduct additional research to address data gaps")

	gt.V(t, r.Analysis.Patterns).Nil()
	gt.V(t, r.Analysis.Insights).Nil()
	gt.V(t, r.Analysis.Contradictions).Nil()
	gt.Equal(t, r.Analysis.Confidence.Overall, 0.5)

	gt.Equal(t, r.Metadata.CreatedAt, fixedTime)
	gt.Equal(t, r.Metadata.Query, "What is AI?")
	gt.Equal(t, r.Metadata.ConfidenceScore, 0.5)
	gt.True(t, r.Metadata.WordCount > 0)
	gt.Equal(t, r.Metadata.WordCount, report.WordCount(r))
}

func TestAssembleConfidenceTiers(t *testing.T) {
	testCases := map[string]struct {
		overall    float64
		summary    string
		conclusion string
	}{
		"high":     {overall: 0.8, summary: "high reliability and consistency", conclusion: "well-supported by reliable sources"},
		"moderate": {overall: 0.6, summary: "moderate reliability", conclusion: ""},
		"low":      {overall: 0.3, summary: "Additional research is recommended", conclusion: "evidence base is limited"},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			analysis := &model.AnalysisResult{Confidence: model.ConfidenceLevels{Overall: tc.overall, DataCompleteness: 1}}
			r := newAssembler().Assemble("q", &model.GatheredInfo{}, analysis)
			gt.S(t, r.ExecutiveSummary).Contains(tc.summary)

			if tc.conclusion == "" {
				gt.A(t, r.Conclusions).Length(1)
			} else {
				gt.A(t, r.Conclusions).Length(2)
				gt.S(t, r.Conclusions[0]).Contains(tc.conclusion)
			}
		})
	}
}

func TestAssembleGroupsFindingsByTheme(t *testing.T) {
	gathered := &model.GatheredInfo{
		MainFindings: []model.Finding{
			{Text: "Sales Increase in Q1"},
			{Text: "Costs increase in Q2"},
			{Text: "Traffic increase in Q3"},
			{Text: "Headcount was flat"},
		},
	}
	analysis := &model.AnalysisResult{
		Patterns: []model.Pattern{
			{Type: "trend", Theme: "increase", Frequency: 3, Strength: model.PatternStrong},
			{Type: "trend", Theme: "decline", Frequency: 2, Strength: model.PatternModerate},
		},
		Insights: []model.Insight{
			{Type: model.InsightPatternBased, Content: "Strong increase pattern detected across 3 sources", Confidence: 0.8},
			{Type: model.InsightLimitation, Content: "Limited data available", Confidence: 0.5},
		},
		Contradictions: []model.Contradiction{
			{Type: "opposing_claims", Source1: "A", Source2: "B", Conflict: "increase vs decrease"},
		},
		Confidence: model.ConfidenceLevels{Overall: 0.75, DataCompleteness: 0.4, SourceReliability: 0.9},
	}

	r := newAssembler().Assemble("sales trends", gathered, analysis)

	gt.A(t, r.Findings).Length(2)
	gt.Equal(t, r.Findings[0].Theme, "Increase")
	gt.Equal(t, r.Findings[0].PatternStrength, "strong")
	gt.A(t, r.Findings[0].Findings).Length(3)
	gt.Equal(t, r.Findings[1].Theme, model.AdditionalFindingsTheme)
	gt.A(t, r.Findings[1].Findings).Length(1)
	gt.Equal(t, r.Findings[1].Findings[0].Text, "Headcount was flat")

	gt.S(t, r.ExecutiveSummary).Contains("The analysis revealed 1 high-confidence insights.")
	gt.S(t, r.ExecutiveSummary).Contains("Strong patterns identified in: increase.")

	gt.V(t, r.Analysis.Patterns).NotNil()
	gt.Equal(t, r.Analysis.Patterns.Items, []string{"Increase trend (strong strength)", "Decline trend (moderate strength)"})
	gt.V(t, r.Analysis.Insights).NotNil()
	gt.A(t, r.Analysis.Insights.Items).Length(2)
	gt.V(t, r.Analysis.Contradictions).NotNil()
	gt.Equal(t, r.Analysis.Contradictions.Items, []string{"A vs B: increase vs decrease"})

	gt.Equal(t, r.Conclusions, []string{
		"The research identifies 1 strong patterns, indicating clear trends in the data.",
		"Analysis reveals 1 high-confidence insights that provide actionable understanding.",
		"The findings are well-supported by reliable sources and consistent data.",
		"This research provides valuable insights into the topic, though continued monitoring and analysis are advised.",
	})

	gt.A(t, r.Recommendations).Length(3)
	gt.Equal(t, r.Recommendations[0], model.Recommendation{
		Priority:       model.PriorityMedium,
		Recommendation: "Based on pattern-based analysis: Strong increase pattern detected across 3 sources",
		Rationale:      "Confidence level: 80%",
	})
	gt.Equal(t, r.Recommendations[1].Recommendation, "Conduct additional research to address data gaps")
	gt.Equal(t, r.Recommendations[2].Recommendation, "Investigate and resolve conflicting information")
}

func TestAssembleHighPriorityRecommendation(t *testing.T) {
	analysis := &model.AnalysisResult{
		Insights: []model.Insight{
			{Type: model.InsightCoverage, Content: "Comprehensive coverage", Confidence: 0.9},
		},
		Confidence: model.ConfidenceLevels{DataCompleteness: 1},
	}
	r := newAssembler().Assemble("q", nil, analysis)

	gt.A(t, r.Recommendations).Length(1)
	gt.Equal(t, r.Recommendations[0].Priority, model.PriorityHigh)
	gt.Equal(t, r.Recommendations[0].Rationale, "Confidence level: 90%")
}

func TestAssembleIsIdempotent(t *testing.T) {
	gathered, analysis := singleSourceInput()
	a := newAssembler()

	first, err := json.Marshal(a.Assemble("What is AI?", gathered, analysis))
	gt.NoError(t, err)
	second, err := json.Marshal(a.Assemble("What is AI?", gathered, analysis))
	gt.NoError(t, err)

	gt.Equal(t, string(first), string(second))
}

func TestAssembleReferencesKeepInputOrder(t *testing.T) {
	gathered := &model.GatheredInfo{
		SourcesUsed: []*model.Source{
			{URL: "https://b.gov", Title: "B", Reliability: 0.8},
			{URL: "https://a.com", Reliability: 0.456},
		},
	}
	r := newAssembler().Assemble("q", gathered, nil)

	gt.A(t, r.References).Length(2)
	gt.Equal(t, r.References[0].ID, "[1]")
	gt.Equal(t, r.References[0].Title, "B")
	gt.Equal(t, r.References[1].ID, "[2]")
	gt.Equal(t, r.References[1].Title, model.DefaultSourceTitle)
	gt.Equal(t, r.References[1].Reliability, "46%")
	gt.S(t, r.Introduction).Contains("government, general sources")
}
