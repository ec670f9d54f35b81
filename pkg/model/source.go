package model

import (
	"strings"
)

// Source is a single piece of evidence collected by the gathering stage.
// Scores are on a 0..1 scale; Normalize folds legacy 0..10 values into it.
type Source struct {
	URL              string   `json:"url"`
	Title            string   `json:"title"`
	Authors          []string `json:"authors"`
	Date             string   `json:"date"`
	Type             string   `json:"type"`
	Description      string   `json:"description,omitempty"`
	Content          string   `json:"content,omitempty"`
	CredibilityScore float64  `json:"credibility_score"`
	RelevanceScore   float64  `json:"relevance_score"`
	Reliability      float64  `json:"reliability"`
	Recency          float64  `json:"recency,omitempty"`
	OverallScore     float64  `json:"overall_score,omitempty"`
	Summary          string   `json:"summary"`
	KeyFindings      []string `json:"key_findings"`
	BiasIndicators   []string `json:"bias_indicators"`
}

const (
	DefaultSourceTitle       = "Untitled"
	DefaultSourceType        = "general"
	DefaultSourceReliability = 0.5
)

// Normalize guarantees every field is present and every score lies in 0..1.
func (x *Source) Normalize() {
	if x.Title == "" {
		x.Title = DefaultSourceTitle
	}
	if x.Type == "" {
		x.Type = DefaultSourceType
	}
	if x.Authors == nil {
		x.Authors = []string{}
	}
	if x.KeyFindings == nil {
		x.KeyFindings = []string{}
	}
	if x.BiasIndicators == nil {
		x.BiasIndicators = []string{}
	}

	x.CredibilityScore = NormalizeScore(x.CredibilityScore)
	x.RelevanceScore = NormalizeScore(x.RelevanceScore)
	x.Reliability = NormalizeScore(x.Reliability)

	if x.Reliability == 0 {
		if x.CredibilityScore > 0 {
			x.Reliability = x.CredibilityScore
		} else {
			x.Reliability = DefaultSourceReliability
		}
	}
}

// Domain returns the lower-cased URL without scheme, used for domain heuristics.
func (x *Source) Domain() string {
	u := strings.ToLower(x.URL)
	u = strings.TrimPrefix(u, "https://")
	u = strings.TrimPrefix(u, "http://")
	if idx := strings.IndexAny(u, "/?#"); idx >= 0 {
		u = u[:idx]
	}
	return u
}

// Ref returns the attribution reference of the source.
func (x *Source) Ref() SourceRef {
	return SourceRef{Title: x.Title, URL: x.URL}
}

// NormalizeScore maps a score given on a 0..10 scale onto 0..1 and clamps the result.
func NormalizeScore(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1 && v <= 10:
		return v / 10
	case v > 10:
		return 1
	default:
		return v
	}
}

// SourceRef identifies the source a finding is attributed to.
type SourceRef struct {
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

// Finding is a single extracted textual claim attributed to a source.
type Finding struct {
	Text   string    `json:"finding"`
	Source SourceRef `json:"source"`
}

// GatheredInfo is the normalized output of the gathering stage.
type GatheredInfo struct {
	MainFindings       []Finding   `json:"main_findings"`
	SourcesUsed        []*Source   `json:"sources_used"`
	SupportingEvidence []SourceRef `json:"supporting_evidence"`
	Gaps               []string    `json:"gaps"`
}

// SourceAnalysis is the result of analyzing one source's content.
type SourceAnalysis struct {
	URL              string          `json:"url"`
	Title            string          `json:"title"`
	SourceType       string          `json:"source_type"`
	TypeConfidence   float64         `json:"type_confidence"`
	CredibilityScore float64         `json:"credibility_score"`
	QualityScore     float64         `json:"quality_score"`
	BiasIndicators   []string        `json:"bias_indicators"`
	KeyFindings      []string        `json:"key_findings"`
	Metadata         SourceMetadata  `json:"metadata"`
	Citation         CitationFormats `json:"citation_data"`
}

// SourceMetadata is bibliographic data extracted from source content.
type SourceMetadata struct {
	Authors       []string `json:"authors"`
	PublishedDate string   `json:"published_date,omitempty"`
	CitationCount int      `json:"citation_count"`
	WordCount     int      `json:"word_count"`
	Domain        string   `json:"domain"`
}

// CitationFormats holds a source rendered in common citation styles.
type CitationFormats struct {
	APA     string `json:"apa"`
	MLA     string `json:"mla"`
	Chicago string `json:"chicago"`
	BibTeX  string `json:"bibtex"`
}
