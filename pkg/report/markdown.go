package report

import (
	"fmt"
	"strings"

	"github.com/m-mizutani/ferret/pkg/model"
)

var sectionHeadings = map[model.SectionName]string{
	model.SectionExecutiveSummary: "Executive Summary",
	model.SectionIntroduction:     "Introduction",
	model.SectionMethodology:      "Methodology",
	model.SectionFindings:         "Key Findings",
	model.SectionAnalysis:         "Analysis",
	model.SectionConclusions:      "Conclusions",
	model.SectionRecommendations:  "Recommendations",
	model.SectionReferences:       "References",
}

// Markdown renders either report variant.
func Markdown(r model.ResearchReport) string {
	switch v := r.(type) {
	case *model.Report:
		return structuredMarkdown(v)
	case *model.ParsedReport:
		return parsedMarkdown(v)
	default:
		return ""
	}
}

func structuredMarkdown(r *model.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", r.Title)
	writeSection(&b, "Executive Summary", r.ExecutiveSummary)
	writeSection(&b, "Introduction", r.Introduction)
	writeSection(&b, "Methodology", r.Methodology)

	if len(r.Findings) > 0 {
		b.WriteString("## Key Findings\n\n")
		for _, g := range r.Findings {
			fmt.Fprintf(&b, "### %s (%s)\n\n", g.Theme, g.PatternStrength)
			for _, f := range g.Findings {
				if f.Source.Title != "" {
					fmt.Fprintf(&b, "- %s (%s)\n", f.Text, f.Source.Title)
				} else {
					fmt.Fprintf(&b, "- %s\n", f.Text)
				}
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("## Analysis\n\n")
	if p := r.Analysis.Patterns; p != nil {
		writeList(&b, p.Description, p.Items)
	}
	if in := r.Analysis.Insights; in != nil {
		items := make([]string, len(in.Items))
		for i, item := range in.Items {
			items[i] = fmt.Sprintf("%s (%s, confidence %s)", item.Content, item.Type, percent(item.Confidence))
		}
		writeList(&b, in.Description, items)
	}
	if c := r.Analysis.Contradictions; c != nil {
		writeList(&b, c.Description, c.Items)
	}
	conf := r.Analysis.Confidence
	fmt.Fprintf(&b, "Overall confidence: %s (source reliability %s, data completeness %s)\n\n",
		percent(conf.Overall), percent(conf.SourceReliability), percent(conf.DataCompleteness))

	if len(r.Conclusions) > 0 {
		b.WriteString("## Conclusions\n\n")
		for _, c := range r.Conclusions {
			fmt.Fprintf(&b, "- %s\n", c)
		}
		b.WriteString("\n")
	}

	if len(r.Recommendations) > 0 {
		b.WriteString("## Recommendations\n\n")
		for _, rec := range r.Recommendations {
			fmt.Fprintf(&b, "- **[%s]** %s: %s\n", rec.Priority, rec.Recommendation, rec.Rationale)
		}
		b.WriteString("\n")
	}

	if len(r.References) > 0 {
		b.WriteString("## References\n\n")
		for _, ref := range r.References {
			if ref.URL != "" {
				fmt.Fprintf(&b, "%s %s <%s> (reliability %s)\n", ref.ID, ref.Title, ref.URL, ref.Reliability)
			} else {
				fmt.Fprintf(&b, "%s %s (reliability %s)\n", ref.ID, ref.Title, ref.Reliability)
			}
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func parsedMarkdown(r *model.ParsedReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", r.Title)
	for _, s := range r.Sections {
		heading, ok := sectionHeadings[s.Name]
		if !ok {
			heading = string(s.Name)
		}
		writeSection(&b, heading, s.Body)
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func writeSection(b *strings.Builder, heading, body string) {
	if body == "" {
		return
	}
	fmt.Fprintf(b, "## %s\n\n%s\n\n", heading, body)
}

func writeList(b *strings.Builder, description string, items []string) {
	fmt.Fprintf(b, "%s\n\n", description)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}
