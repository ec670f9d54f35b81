package report

import (
	"regexp"
	"strings"

	"github.com/m-mizutani/ferret/pkg/model"
)

// A header is a line holding only a known section name, optionally decorated as a
// markdown heading, bold text, a numbered item or with a trailing colon. The section
// body runs until the next header.
var (
	sectionHeader = regexp.MustCompile(`(?i)^\s*(?:#{1,6}\s*)?(?:\d+\.\s*)?(?:\*\*)?\s*(executive summary|introduction|methodology|key findings|findings|analysis|conclusions?|recommendations|references|sources)\s*(?:\*\*)?\s*:?\s*(?:\*\*)?\s*$`)
	titleHeading  = regexp.MustCompile(`^\s*#\s+(.+?)\s*$`)
)

var sectionNames = map[string]model.SectionName{
	"executive summary": model.SectionExecutiveSummary,
	"introduction":      model.SectionIntroduction,
	"methodology":       model.SectionMethodology,
	"key findings":      model.SectionFindings,
	"findings":          model.SectionFindings,
	"analysis":          model.SectionAnalysis,
	"conclusion":        model.SectionConclusions,
	"conclusions":       model.SectionConclusions,
	"recommendations":   model.SectionRecommendations,
	"references":        model.SectionReferences,
	"sources":           model.SectionReferences,
}

// ParseSections recovers a report from free-text output. When no header matches, the
// whole text becomes the executive summary. The title is the first top-level markdown
// heading that is not a section header, else derived from the query.
func ParseSections(query, text string) *model.ParsedReport {
	parsed := &model.ParsedReport{
		Title: Title(query),
		Raw:   text,
	}

	var (
		current *model.ParsedSection
		body    []string
		titled  bool
	)
	flush := func() {
		if current == nil {
			return
		}
		current.Body = strings.TrimSpace(strings.Join(body, "\n"))
		parsed.Sections = append(parsed.Sections, *current)
		body = nil
	}

	for _, line := range strings.Split(text, "\n") {
		if m := sectionHeader.FindStringSubmatch(line); m != nil {
			flush()
			current = &model.ParsedSection{Name: sectionNames[strings.ToLower(m[1])]}
			continue
		}
		if !titled && current == nil {
			if m := titleHeading.FindStringSubmatch(line); m != nil {
				parsed.Title = strings.Trim(m[1], "* ")
				titled = true
				continue
			}
		}
		if current != nil {
			body = append(body, line)
		}
	}
	flush()

	if len(parsed.Sections) == 0 {
		parsed.Sections = []model.ParsedSection{
			{Name: model.SectionExecutiveSummary, Body: strings.TrimSpace(text)},
		}
	}

	return parsed
}
