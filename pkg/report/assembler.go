// Package report turns gathered information and analysis results into a research report.
//
// The Assembler builds the structured variant from fixed templates. ParseSections is the
// fallback that recovers a report from free-text agent output.
package report

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/m-mizutani/ferret/pkg/model"
)

const (
	titlePrefix = "Research Report: "

	// HighConfidence and ModerateConfidence are the overall confidence tiers used by
	// the executive summary. Moderate is inclusive.
	HighConfidence     = 0.7
	ModerateConfidence = 0.5

	recommendInsightConfidence = 0.6
	highPriorityConfidence     = 0.8
	completenessFloor          = 0.5
	maxInsightRecommendations  = 3
	individualStrength         = "individual"
)

var acronyms = map[string]struct{}{
	"AI": {}, "ML": {}, "NLP": {}, "API": {}, "URL": {}, "PDF": {}, "CSV": {},
}

// Assembler builds structured reports. The clock only stamps Metadata.CreatedAt.
type Assembler struct {
	now func() time.Time
}

type Option func(*Assembler)

func WithClock(now func() time.Time) Option {
	return func(a *Assembler) {
		a.now = now
	}
}

func NewAssembler(opts ...Option) *Assembler {
	a := &Assembler{now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble builds a report. Nil inputs are treated as empty.
func (a *Assembler) Assemble(query string, gathered *model.GatheredInfo, analysis *model.AnalysisResult) *model.Report {
	if gathered == nil {
		gathered = &model.GatheredInfo{}
	}
	if analysis == nil {
		analysis = &model.AnalysisResult{}
	}

	r := &model.Report{
		Title:            Title(query),
		ExecutiveSummary: executiveSummary(query, gathered, analysis),
		Introduction:     introduction(query, gathered.SourcesUsed),
		Methodology:      methodology(len(gathered.SourcesUsed)),
		Findings:         organizeFindings(gathered.MainFindings, analysis.Patterns),
		Analysis:         analysisSection(analysis),
		Conclusions:      conclusions(analysis),
		Recommendations:  recommendations(analysis),
		References:       references(gathered.SourcesUsed),
		Metadata: model.ReportMetadata{
			CreatedAt:       a.now(),
			Query:           query,
			ConfidenceScore: analysis.Confidence.Overall,
		},
	}
	r.Metadata.WordCount = WordCount(r)
	return r
}

// Title capitalizes each query word, upper-casing known acronyms.
func Title(query string) string {
	words := strings.Fields(strings.Trim(query, "?"))
	for i, w := range words {
		if _, ok := acronyms[strings.ToUpper(w)]; ok {
			words[i] = strings.ToUpper(w)
		} else {
			words[i] = capitalize(w)
		}
	}
	return titlePrefix + strings.Join(words, " ")
}

func capitalize(s string) string {
	runes := []rune(strings.ToLower(s))
	if len(runes) == 0 {
		return s
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func executiveSummary(query string, gathered *model.GatheredInfo, analysis *model.AnalysisResult) string {
	parts := []string{
		fmt.Sprintf("This report addresses the research query: '%s'", query),
		fmt.Sprintf("Based on analysis of %d sources and %d key findings:",
			len(gathered.SourcesUsed), len(gathered.MainFindings)),
	}

	if n := countHighConfidence(analysis.Insights, HighConfidence); n > 0 {
		parts = append(parts, fmt.Sprintf("The analysis revealed %d high-confidence insights.", n))
	}

	if themes := strongThemes(analysis.Patterns); len(themes) > 0 {
		parts = append(parts, fmt.Sprintf("Strong patterns identified in: %s.", strings.Join(themes, ", ")))
	}

	switch overall := analysis.Confidence.Overall; {
	case overall > HighConfidence:
		parts = append(parts, "The findings demonstrate high reliability and consistency.")
	case overall >= ModerateConfidence:
		parts = append(parts, "The findings show moderate reliability with some variations.")
	default:
		parts = append(parts, "Additional research is recommended to strengthen conclusions.")
	}

	return strings.Join(parts, " ")
}

func introduction(query string, sources []*model.Source) string {
	parts := []string{fmt.Sprintf("This research report explores: %s", query)}

	var kinds []string
	seen := map[string]struct{}{}
	for _, s := range sources {
		if s == nil || s.URL == "" {
			continue
		}
		kind := "general"
		switch {
		case strings.Contains(s.URL, ".edu"):
			kind = "academic"
		case strings.Contains(s.URL, ".gov"):
			kind = "government"
		}
		if _, ok := seen[kind]; !ok {
			seen[kind] = struct{}{}
			kinds = append(kinds, kind)
		}
	}
	if len(kinds) > 0 {
		parts = append(parts, fmt.Sprintf(
			"The research encompasses %s sources to provide a comprehensive perspective.",
			strings.Join(kinds, ", ")))
	}

	parts = append(parts, "The objectives of this report are to: "+
		"1) Gather relevant information, "+
		"2) Analyze key patterns and insights, "+
		"3) Provide actionable conclusions and recommendations.")

	return strings.Join(parts, " ")
}

func methodology(sourceCount int) string {
	return strings.Join([]string{
		"This research employed a systematic approach:",
		"1. Information Gathering: Comprehensive search across multiple sources using targeted queries and academic databases.",
		fmt.Sprintf("2. Source Evaluation: %d sources were evaluated for credibility, relevance, and recency.", sourceCount),
		"3. Data Analysis: Pattern identification, comparative analysis, and insight generation using systematic analytical methods.",
		"4. Synthesis: Integration of findings into coherent conclusions and actionable recommendations.",
	}, " ")
}

// organizeFindings groups findings under each pattern theme they mention. A finding may
// belong to several groups; findings claimed by none go to the additional bucket.
func organizeFindings(findings []model.Finding, patterns []model.Pattern) []model.FindingGroup {
	var groups []model.FindingGroup
	claimed := map[string]struct{}{}

	for _, p := range patterns {
		theme := strings.ToLower(p.Theme)
		var related []model.Finding
		for _, f := range findings {
			if strings.Contains(strings.ToLower(f.Text), theme) {
				related = append(related, f)
			}
		}
		if len(related) == 0 {
			continue
		}

		strength := string(p.Strength)
		if strength == "" {
			strength = string(model.PatternModerate)
		}
		groups = append(groups, model.FindingGroup{
			Theme:           capitalizeWords(p.Theme),
			Findings:        related,
			PatternStrength: strength,
		})
		for _, f := range related {
			claimed[f.Text] = struct{}{}
		}
	}

	var rest []model.Finding
	for _, f := range findings {
		if _, ok := claimed[f.Text]; !ok {
			rest = append(rest, f)
		}
	}
	if len(rest) > 0 {
		groups = append(groups, model.FindingGroup{
			Theme:           model.AdditionalFindingsTheme,
			Findings:        rest,
			PatternStrength: individualStrength,
		})
	}

	return groups
}

func capitalizeWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = capitalize(w)
	}
	return strings.Join(words, " ")
}

func analysisSection(analysis *model.AnalysisResult) model.AnalysisSection {
	var section model.AnalysisSection

	if len(analysis.Patterns) > 0 {
		items := make([]string, len(analysis.Patterns))
		for i, p := range analysis.Patterns {
			items[i] = fmt.Sprintf("%s trend (%s strength)", capitalizeWords(p.Theme), p.Strength)
		}
		section.Patterns = &model.PatternAnalysis{
			Description: "The following patterns emerged from the data:",
			Items:       items,
		}
	}

	if len(analysis.Insights) > 0 {
		items := make([]model.InsightItem, len(analysis.Insights))
		for i, in := range analysis.Insights {
			items[i] = model.InsightItem{
				Content:    in.Content,
				Confidence: in.Confidence,
				Type:       in.Type,
			}
		}
		section.Insights = &model.InsightAnalysis{
			Description: "Key insights from the analysis:",
			Items:       items,
		}
	}

	if len(analysis.Contradictions) > 0 {
		items := make([]string, len(analysis.Contradictions))
		for i, c := range analysis.Contradictions {
			items[i] = fmt.Sprintf("%s vs %s: %s", c.Source1, c.Source2, c.Conflict)
		}
		section.Contradictions = &model.ContradictionAnalysis{
			Description: "Conflicting information was identified:",
			Items:       items,
		}
	}

	section.Confidence = model.ConfidenceSummary{
		Overall:           analysis.Confidence.Overall,
		SourceReliability: analysis.Confidence.SourceReliability,
		DataCompleteness:  analysis.Confidence.DataCompleteness,
	}

	return section
}

func conclusions(analysis *model.AnalysisResult) []string {
	var out []string

	if n := len(strongThemes(analysis.Patterns)); n > 0 {
		out = append(out, fmt.Sprintf(
			"The research identifies %d strong patterns, indicating clear trends in the data.", n))
	}

	if n := countHighConfidence(analysis.Insights, HighConfidence); n > 0 {
		out = append(out, fmt.Sprintf(
			"Analysis reveals %d high-confidence insights that provide actionable understanding.", n))
	}

	switch overall := analysis.Confidence.Overall; {
	case overall > HighConfidence:
		out = append(out, "The findings are well-supported by reliable sources and consistent data.")
	case overall < ModerateConfidence:
		out = append(out, "The current evidence base is limited; additional research is recommended.")
	}

	return append(out,
		"This research provides valuable insights into the topic, though continued monitoring and analysis are advised.")
}

func recommendations(analysis *model.AnalysisResult) []model.Recommendation {
	var out []model.Recommendation

	insights := analysis.Insights
	if len(insights) > maxInsightRecommendations {
		insights = insights[:maxInsightRecommendations]
	}
	for _, in := range insights {
		if in.Confidence <= recommendInsightConfidence {
			continue
		}
		priority := model.PriorityMedium
		if in.Confidence > highPriorityConfidence {
			priority = model.PriorityHigh
		}
		out = append(out, model.Recommendation{
			Priority:       priority,
			Recommendation: fmt.Sprintf("Based on %s analysis: %s", in.Type, in.Content),
			Rationale:      fmt.Sprintf("Confidence level: %s", percent(in.Confidence)),
		})
	}

	if analysis.Confidence.DataCompleteness < completenessFloor {
		out = append(out, model.Recommendation{
			Priority:       model.PriorityMedium,
			Recommendation: "Conduct additional research to address data gaps",
			Rationale:      "Current data completeness is below optimal levels",
		})
	}

	if len(analysis.Contradictions) > 0 {
		out = append(out, model.Recommendation{
			Priority:       model.PriorityMedium,
			Recommendation: "Investigate and resolve conflicting information",
			Rationale:      "Multiple contradictions identified in sources",
		})
	}

	return out
}

func references(sources []*model.Source) []model.Reference {
	refs := make([]model.Reference, 0, len(sources))
	for i, s := range sources {
		if s == nil {
			continue
		}
		title := s.Title
		if title == "" {
			title = model.DefaultSourceTitle
		}
		refs = append(refs, model.Reference{
			ID:          fmt.Sprintf("[%d]", i+1),
			Title:       title,
			URL:         s.URL,
			Reliability: percent(s.Reliability),
		})
	}
	return refs
}

func percent(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}

func countHighConfidence(insights []model.Insight, threshold float64) int {
	var n int
	for _, in := range insights {
		if in.Confidence > threshold {
			n++
		}
	}
	return n
}

func strongThemes(patterns []model.Pattern) []string {
	var themes []string
	for _, p := range patterns {
		if p.Strength == model.PatternStrong {
			themes = append(themes, p.Theme)
		}
	}
	return themes
}

// WordCount estimates the words in the report's prose fields, conclusions and the string
// fields of finding groups, recommendations and references.
func WordCount(r *model.Report) int {
	n := countWords(r.Title, r.ExecutiveSummary, r.Introduction, r.Methodology)
	n += countWords(r.Conclusions...)
	for _, g := range r.Findings {
		n += countWords(g.Theme, g.PatternStrength)
	}
	for _, rec := range r.Recommendations {
		n += countWords(string(rec.Priority), rec.Recommendation, rec.Rationale)
	}
	for _, ref := range r.References {
		n += countWords(ref.ID, ref.Title, ref.URL, ref.Reliability)
	}
	return n
}

func countWords(texts ...string) int {
	var n int
	for _, t := range texts {
		n += len(strings.Fields(t))
	}
	return n
}
