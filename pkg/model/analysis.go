package model

// PatternStrength grades how often a pattern recurs across findings.
type PatternStrength string

const (
	PatternStrong   PatternStrength = "strong"
	PatternModerate PatternStrength = "moderate"
)

// Pattern is a recurring keyword theme detected across multiple findings.
type Pattern struct {
	Type      string          `json:"type"`
	Theme     string          `json:"theme"`
	Frequency int             `json:"frequency"`
	Strength  PatternStrength `json:"strength"`
}

type InsightType string

const (
	InsightPatternBased InsightType = "pattern-based"
	InsightCoverage     InsightType = "coverage"
	InsightLimitation   InsightType = "limitation"
)

// Insight is a conclusion drawn from the detected patterns and finding volume.
type Insight struct {
	Type               InsightType `json:"type"`
	Content            string      `json:"content"`
	Confidence         float64     `json:"confidence"`
	SupportingEvidence int         `json:"supporting_evidence,omitempty"`
}

// SourceComparison aggregates reliability for one class of sources.
type SourceComparison struct {
	SourceType     string  `json:"source_type"`
	Count          int     `json:"count"`
	AvgReliability float64 `json:"avg_reliability"`
	Assessment     string  `json:"assessment"`
}

// Contradiction is a pair of findings carrying opposing terms.
type Contradiction struct {
	Type     string `json:"type"`
	Source1  string `json:"source1"`
	Source2  string `json:"source2"`
	Conflict string `json:"conflict"`
}

// ConfidenceLevels holds the confidence components; Overall is the unweighted mean of
// the other three.
type ConfidenceLevels struct {
	SourceReliability float64 `json:"source_reliability"`
	DataCompleteness  float64 `json:"data_completeness"`
	Consistency       float64 `json:"consistency"`
	Overall           float64 `json:"overall"`
}

// AnalysisResult is the deterministic analysis over gathered information.
type AnalysisResult struct {
	Patterns       []Pattern          `json:"patterns"`
	Insights       []Insight          `json:"insights"`
	Comparisons    []SourceComparison `json:"comparisons"`
	Contradictions []Contradiction    `json:"contradictions"`
	Confidence     ConfidenceLevels   `json:"confidence_levels"`
	Summary        string             `json:"summary"`
}
