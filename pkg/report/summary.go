package report

import (
	"strings"

	"github.com/m-mizutani/ferret/pkg/model"
)

const DefaultSummaryLength = 500

// CreateSummary condenses a report into at most maxWords words, followed by "..." when
// truncated. A non-positive maxWords selects DefaultSummaryLength.
func CreateSummary(r model.ResearchReport, maxWords int) string {
	if maxWords <= 0 {
		maxWords = DefaultSummaryLength
	}

	var parts []string
	switch v := r.(type) {
	case *model.Report:
		parts = structuredSummary(v, maxWords)
	case *model.ParsedReport:
		parts = []string{v.Title}
		if body, ok := v.Section(model.SectionExecutiveSummary); ok && body != "" {
			parts = append(parts, body)
		}
	default:
		return ""
	}

	summary := strings.Join(parts, " ")
	if words := strings.Fields(summary); len(words) > maxWords {
		return strings.Join(words[:maxWords], " ") + "..."
	}
	return summary
}

func structuredSummary(r *model.Report, maxWords int) []string {
	title := r.Title
	if title == "" {
		title = "Research Report"
	}
	parts := []string{title}

	if r.ExecutiveSummary != "" && float64(len(strings.Fields(r.ExecutiveSummary))) < float64(maxWords)/2 {
		parts = append(parts, r.ExecutiveSummary)
	}

	if len(r.Conclusions) > 0 {
		parts = append(parts, "Key conclusions: "+r.Conclusions[0])
	}

	if len(r.Recommendations) > 0 {
		top := r.Recommendations[0]
		for _, rec := range r.Recommendations {
			if rec.Priority == model.PriorityHigh {
				top = rec
				break
			}
		}
		parts = append(parts, "Primary recommendation: "+top.Recommendation)
	}

	return parts
}
