// Package analyzer holds the deterministic analysis run over gathered information:
// pattern detection, insight generation, source comparison, contradiction detection
// and confidence scoring. Every function is pure.
package analyzer

import (
	"fmt"
	"strings"

	"github.com/m-mizutani/ferret/pkg/model"
)

// Thresholds of the analysis heuristics.
const (
	MinPatternFrequency    = 2
	StrongPatternFrequency = 3
	CoverageFindingCount   = 5
	LimitedFindingCount    = 2
	CompletenessTarget     = 10
	BaselineConsistency    = 0.8
	HighConfidence         = 0.7
	ModerateConfidence     = 0.5
)

// PatternKeywords are the trend themes searched for in findings.
var PatternKeywords = []string{"increase", "decrease", "growth", "decline", "improvement", "impact"}

// OpposingTerms are the antonym pairs used for contradiction detection.
var OpposingTerms = [][2]string{
	{"increase", "decrease"},
	{"positive", "negative"},
	{"growth", "decline"},
	{"improvement", "deterioration"},
}

// Analyze runs every analyzer over the gathered information.
func Analyze(info *model.GatheredInfo) *model.AnalysisResult {
	var findings []model.Finding
	var sources []*model.Source
	if info != nil {
		findings = info.MainFindings
		sources = info.SourcesUsed
	}

	patterns := DetectPatterns(findings)
	insights := GenerateInsights(patterns, findings)
	contradictions := FindContradictions(findings)
	confidence := CalculateConfidence(sources, findings)

	return &model.AnalysisResult{
		Patterns:       patterns,
		Insights:       insights,
		Comparisons:    CompareSources(sources),
		Contradictions: contradictions,
		Confidence:     confidence,
		Summary:        Summarize(patterns, insights, confidence),
	}
}

// DetectPatterns counts, for each keyword, the findings that mention it. Keywords seen
// in at least two findings become patterns, ordered by the finding that first mentions
// them.
func DetectPatterns(findings []model.Finding) []model.Pattern {
	var themes []string
	freq := map[string]int{}
	for _, f := range findings {
		text := strings.ToLower(f.Text)
		for _, keyword := range PatternKeywords {
			if !strings.Contains(text, keyword) {
				continue
			}
			if freq[keyword] == 0 {
				themes = append(themes, keyword)
			}
			freq[keyword]++
		}
	}

	patterns := []model.Pattern{}
	for _, theme := range themes {
		n := freq[theme]
		if n < MinPatternFrequency {
			continue
		}

		strength := model.PatternModerate
		if n >= StrongPatternFrequency {
			strength = model.PatternStrong
		}
		patterns = append(patterns, model.Pattern{
			Type:      "trend",
			Theme:     theme,
			Frequency: n,
			Strength:  strength,
		})
	}
	return patterns
}

// GenerateInsights emits one insight per strong pattern plus a coverage or limitation
// insight depending on the number of findings.
func GenerateInsights(patterns []model.Pattern, findings []model.Finding) []model.Insight {
	insights := []model.Insight{}
	for _, p := range patterns {
		if p.Strength != model.PatternStrong {
			continue
		}
		insights = append(insights, model.Insight{
			Type:               model.InsightPatternBased,
			Content:            fmt.Sprintf("Strong %s trend observed across multiple sources", p.Theme),
			Confidence:         0.8,
			SupportingEvidence: p.Frequency,
		})
	}

	switch {
	case len(findings) > CoverageFindingCount:
		insights = append(insights, model.Insight{
			Type:               model.InsightCoverage,
			Content:            "Comprehensive coverage with multiple corroborating sources",
			Confidence:         0.9,
			SupportingEvidence: len(findings),
		})
	case len(findings) < LimitedFindingCount:
		insights = append(insights, model.Insight{
			Type:               model.InsightLimitation,
			Content:            "Limited data available, additional research recommended",
			Confidence:         0.5,
			SupportingEvidence: len(findings),
		})
	}

	return insights
}

// FindContradictions flags every unordered pair of findings where one contains a term
// and the other its antonym. One record is emitted per matching opposing pair.
func FindContradictions(findings []model.Finding) []model.Contradiction {
	lowered := lowerTexts(findings)

	contradictions := []model.Contradiction{}
	for i := 0; i < len(findings); i++ {
		for j := i + 1; j < len(findings); j++ {
			for _, pair := range opposingPairs(lowered[i], lowered[j]) {
				contradictions = append(contradictions, model.Contradiction{
					Type:     "opposing_claims",
					Source1:  sourceTitle(findings[i]),
					Source2:  sourceTitle(findings[j]),
					Conflict: pair[0] + " vs " + pair[1],
				})
			}
		}
	}
	return contradictions
}

func opposingPairs(a, b string) [][2]string {
	var matched [][2]string
	for _, pair := range OpposingTerms {
		forward := strings.Contains(a, pair[0]) && strings.Contains(b, pair[1])
		backward := strings.Contains(a, pair[1]) && strings.Contains(b, pair[0])
		if forward || backward {
			matched = append(matched, pair)
		}
	}
	return matched
}

func lowerTexts(findings []model.Finding) []string {
	lowered := make([]string, len(findings))
	for i, f := range findings {
		lowered[i] = strings.ToLower(f.Text)
	}
	return lowered
}

func sourceTitle(f model.Finding) string {
	if f.Source.Title == "" {
		return "Unknown"
	}
	return f.Source.Title
}

// CalculateConfidence scores reliability, completeness and consistency and averages
// them into Overall. Consistency is the share of finding pairs without contradiction;
// below two findings there are no pairs and the baseline applies.
func CalculateConfidence(sources []*model.Source, findings []model.Finding) model.ConfidenceLevels {
	var reliability float64
	if len(sources) > 0 {
		var sum float64
		for _, s := range sources {
			sum += sourceReliability(s)
		}
		reliability = sum / float64(len(sources))
	}

	completeness := min(float64(len(findings))/CompletenessTarget, 1.0)

	consistency := Consistency(findings)

	return model.ConfidenceLevels{
		SourceReliability: reliability,
		DataCompleteness:  completeness,
		Consistency:       consistency,
		Overall:           (reliability + completeness + consistency) / 3,
	}
}

// Consistency returns the share of finding pairs that carry no opposing terms, or the
// baseline when fewer than two findings exist.
func Consistency(findings []model.Finding) float64 {
	if len(findings) < 2 {
		return BaselineConsistency
	}

	lowered := lowerTexts(findings)
	pairs, conflicting := 0, 0
	for i := 0; i < len(lowered); i++ {
		for j := i + 1; j < len(lowered); j++ {
			pairs++
			if len(opposingPairs(lowered[i], lowered[j])) > 0 {
				conflicting++
			}
		}
	}
	return 1 - float64(conflicting)/float64(pairs)
}

// sourceReliability takes the score as given. Sources without a score get one from
// Source.Normalize when they are gathered.
func sourceReliability(s *model.Source) float64 {
	if s == nil {
		return model.DefaultSourceReliability
	}
	return s.Reliability
}

// Summarize renders the textual analysis summary.
func Summarize(patterns []model.Pattern, insights []model.Insight, confidence model.ConfidenceLevels) string {
	var parts []string
	if len(patterns) > 0 {
		parts = append(parts, fmt.Sprintf("Identified %d significant patterns", len(patterns)))
	}

	high := 0
	for _, in := range insights {
		if in.Confidence > HighConfidence {
			high++
		}
	}
	if high > 0 {
		parts = append(parts, fmt.Sprintf("%d high-confidence insights generated", high))
	}

	switch {
	case confidence.Overall > HighConfidence:
		parts = append(parts, "High overall confidence in analysis")
	case confidence.Overall > ModerateConfidence:
		parts = append(parts, "Moderate confidence in analysis")
	default:
		parts = append(parts, "Low confidence - additional data recommended")
	}

	return strings.Join(parts, ". ")
}
