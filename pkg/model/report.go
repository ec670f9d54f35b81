package model

import "time"

type ReportKind string

const (
	// ReportStructured is assembled from gathered information and analysis results.
	ReportStructured ReportKind = "structured"
	// ReportParsed is recovered from free-text agent output by section parsing.
	ReportParsed ReportKind = "parsed"
)

// ResearchReport is either a *Report or a *ParsedReport.
type ResearchReport interface {
	ReportKind() ReportKind
	ReportTitle() string
}

// Report is the natively structured research report.
type Report struct {
	Title            string           `json:"title"`
	ExecutiveSummary string           `json:"executive_summary"`
	Introduction     string           `json:"introduction"`
	Methodology      string           `json:"methodology"`
	Findings         []FindingGroup   `json:"findings"`
	Analysis         AnalysisSection  `json:"analysis"`
	Conclusions      []string         `json:"conclusions"`
	Recommendations  []Recommendation `json:"recommendations"`
	References       []Reference      `json:"references"`
	Metadata         ReportMetadata   `json:"metadata"`
}

func (x *Report) ReportKind() ReportKind { return ReportStructured }
func (x *Report) ReportTitle() string    { return x.Title }

// FindingGroup collects findings that mention a pattern theme.
type FindingGroup struct {
	Theme           string    `json:"theme"`
	Findings        []Finding `json:"findings"`
	PatternStrength string    `json:"pattern_strength"`
}

const AdditionalFindingsTheme = "Additional Findings"

type AnalysisSection struct {
	Patterns       *PatternAnalysis       `json:"patterns,omitempty"`
	Insights       *InsightAnalysis       `json:"insights,omitempty"`
	Contradictions *ContradictionAnalysis `json:"contradictions,omitempty"`
	Confidence     ConfidenceSummary      `json:"confidence"`
}

type PatternAnalysis struct {
	Description string   `json:"description"`
	Items       []string `json:"items"`
}

type InsightAnalysis struct {
	Description string        `json:"description"`
	Items       []InsightItem `json:"items"`
}

type InsightItem struct {
	Content    string      `json:"content"`
	Confidence float64     `json:"confidence"`
	Type       InsightType `json:"type"`
}

type ContradictionAnalysis struct {
	Description string   `json:"description"`
	Items       []string `json:"items"`
}

type ConfidenceSummary struct {
	Overall           float64 `json:"overall"`
	SourceReliability float64 `json:"source_reliability"`
	DataCompleteness  float64 `json:"data_completeness"`
}

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

type Recommendation struct {
	Priority       Priority `json:"priority"`
	Recommendation string   `json:"recommendation"`
	Rationale      string   `json:"rationale"`
}

type Reference struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Reliability string `json:"reliability"`
}

type ReportMetadata struct {
	CreatedAt       time.Time `json:"created_at"`
	Query           string    `json:"query"`
	ConfidenceScore float64   `json:"confidence_score"`
	WordCount       int       `json:"word_count"`
}

// SectionName identifies a report section recognized by the text parser.
type SectionName string

const (
	SectionExecutiveSummary SectionName = "executive_summary"
	SectionIntroduction     SectionName = "introduction"
	SectionMethodology      SectionName = "methodology"
	SectionFindings         SectionName = "findings"
	SectionAnalysis         SectionName = "analysis"
	SectionConclusions      SectionName = "conclusions"
	SectionRecommendations  SectionName = "recommendations"
	SectionReferences       SectionName = "references"
)

type ParsedSection struct {
	Name SectionName `json:"name"`
	Body string      `json:"body"`
}

// ParsedReport is a report recovered from free-text agent output.
type ParsedReport struct {
	Title    string          `json:"title"`
	Sections []ParsedSection `json:"sections"`
	Raw      string          `json:"raw"`
}

func (x *ParsedReport) ReportKind() ReportKind { return ReportParsed }
func (x *ParsedReport) ReportTitle() string    { return x.Title }

// Section returns the body of the first section with the given name.
func (x *ParsedReport) Section(name SectionName) (string, bool) {
	for _, s := range x.Sections {
		if s.Name == name {
			return s.Body, true
		}
	}
	return "", false
}
