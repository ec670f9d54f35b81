package research

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/m-mizutani/ferret/pkg/interfaces"
	"github.com/m-mizutani/ferret/pkg/memory"
	"github.com/m-mizutani/ferret/pkg/model"
	"github.com/m-mizutani/ferret/pkg/source"
	"github.com/m-mizutani/ferret/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

const (
	maxSearchQueries     = 3
	findingExcerptLength = 200
	agentOutputSource    = "Agent output"

	DefaultSourceType        = "synthesis"
	DefaultSourceCredibility = 0.85
)

var (
	codeFence      = regexp.MustCompile("(?s)^\\s*```[a-zA-Z]*\\s*\n(.*?)\n?\\s*```\\s*$")
	listMarker     = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+`)
	findingSignals = []string{"found", "discovered", "revealed"}
)

// PrepareSearchStrategy derives search depth, source types and query variants.
func PrepareSearchStrategy(query string, plan *model.ResearchPlan, now time.Time) *model.SearchStrategy {
	lower := strings.ToLower(query)

	strategy := &model.SearchStrategy{
		Query:           query,
		Depth:           model.SearchStandard,
		SearchQueries:   searchQueries(query, now.Year()),
		FallbackQueries: fallbackQueries(query),
	}

	if plan != nil {
		switch plan.Complexity {
		case model.ComplexityHigh:
			strategy.Depth = model.SearchComprehensive
		case model.ComplexityLow:
			strategy.Depth = model.SearchQuick
		}
	}

	if strings.Contains(lower, "research") || strings.Contains(lower, "study") {
		strategy.SourceTypes = append(strategy.SourceTypes, "academic")
	}
	if strings.Contains(lower, "news") || strings.Contains(lower, "current") || strings.Contains(lower, "latest") {
		strategy.SourceTypes = append(strategy.SourceTypes, "news")
	}
	if strings.Contains(lower, "how to") || strings.Contains(lower, "guide") {
		strategy.SourceTypes = append(strategy.SourceTypes, "tutorial")
	}
	if len(strategy.SourceTypes) == 0 {
		strategy.SourceTypes = []string{"general"}
	}

	return strategy
}

func searchQueries(query string, year int) []string {
	lower := strings.ToLower(query)
	queries := []string{query}

	if !strings.Contains(query, `"`) {
		queries = append(queries, `"`+query+`"`)
	}
	if !strings.Contains(lower, "research") {
		queries = append(queries, query+" research study")
	}

	recent := false
	for _, word := range []string{"recent", "latest", fmt.Sprint(year), fmt.Sprint(year - 1)} {
		if strings.Contains(lower, word) {
			recent = true
			break
		}
	}
	if !recent {
		queries = append(queries, fmt.Sprintf("%s %d", query, year-1))
	}

	if len(queries) > maxSearchQueries {
		queries = queries[:maxSearchQueries]
	}
	return queries
}

// fallbackQueries keeps words that are long or capitalized and joins them into one
// simplified query when at least two remain.
func fallbackQueries(query string) []string {
	var keys []string
	for _, w := range strings.Fields(query) {
		r := []rune(w)
		if len(r) > 4 || unicode.IsUpper(r[0]) {
			keys = append(keys, w)
		}
	}
	if len(keys) < 2 {
		return []string{}
	}
	return []string{strings.Join(keys, " ")}
}

// GatherOutput is the gathering stage's output after parsing.
type GatherOutput struct {
	Sources  []*model.Source `json:"sources"`
	Findings []GatherFinding `json:"findings"`
	Gaps     []string        `json:"gaps"`
}

// GatherFinding accepts either a bare string or an object naming its source.
type GatherFinding struct {
	Text        string
	SourceURL   string
	SourceTitle string
}

func (x *GatherFinding) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		x.Text = text
		return nil
	}

	var obj struct {
		Finding   string          `json:"finding"`
		Text      string          `json:"text"`
		SourceURL string          `json:"source_url"`
		Source    json.RawMessage `json:"source"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return goerr.Wrap(err, "invalid finding", goerr.V("data", string(data)))
	}

	x.Text = obj.Finding
	if x.Text == "" {
		x.Text = obj.Text
	}
	x.SourceURL = obj.SourceURL

	if len(obj.Source) > 0 {
		var title string
		if err := json.Unmarshal(obj.Source, &title); err == nil {
			x.SourceTitle = title
		} else {
			var ref model.SourceRef
			if err := json.Unmarshal(obj.Source, &ref); err == nil {
				x.SourceTitle = ref.Title
				if x.SourceURL == "" {
					x.SourceURL = ref.URL
				}
			}
		}
	}
	return nil
}

// ParseGatherOutput reads the gatherer's JSON, tolerating a surrounding code fence or
// prose. Output that holds no JSON object yields one finding per non-empty line.
func ParseGatherOutput(output string) *GatherOutput {
	if raw := cleanJSON(output); raw != "" {
		var parsed GatherOutput
		if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
			return &parsed
		}
	}

	parsed := &GatherOutput{}
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "```") {
			continue
		}
		parsed.Findings = append(parsed.Findings, GatherFinding{Text: line, SourceTitle: agentOutputSource})
	}
	return parsed
}

func cleanJSON(output string) string {
	text := strings.TrimSpace(output)
	if m := codeFence.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	candidate := text[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(candidate)); err != nil {
		return ""
	}
	return buf.String()
}

func defaultSource(query string) *model.Source {
	return &model.Source{
		Title:            "Research synthesis: " + query,
		Type:             DefaultSourceType,
		Description:      "No external source was returned; findings come from the agents' own synthesis",
		CredibilityScore: DefaultSourceCredibility,
	}
}

type gatherer struct {
	evaluator  *source.Evaluator
	analyzer   interfaces.SourceAnalyzer
	topSources int
}

// process turns the gathering stage output into normalized, evaluated information and
// records it in memory.
func (g *gatherer) process(ctx context.Context, store *memory.Store, query, output string, strategy *model.SearchStrategy) (*model.GatheredInfo, error) {
	logger := logging.From(ctx)
	parsed := ParseGatherOutput(output)

	sources := make([]*model.Source, 0, len(parsed.Sources))
	for _, s := range parsed.Sources {
		if s == nil {
			continue
		}
		if g.analyzer != nil && s.Content != "" {
			analysis, err := g.analyzer.Analyze(ctx, s.URL, s.Title, s.Content)
			if err != nil {
				logger.Warn("failed to analyze source", slog.String("url", s.URL), slog.Any("error", err))
			} else {
				source.Enrich(s, analysis)
			}
		}
		s.Normalize()
		sources = append(sources, s)
	}
	if len(sources) == 0 {
		logger.Info("no source gathered, using default source")
		s := defaultSource(query)
		s.Normalize()
		sources = append(sources, s)
	}

	evals, err := g.evaluator.Evaluate(ctx, sources)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to evaluate sources")
	}

	top := evals
	if len(top) > g.topSources {
		top = top[:g.topSources]
	}
	topSources := make(model.SourceList, len(top))
	for i, ev := range top {
		topSources[i] = ev.Source
		if ev.Reliable {
			if err := store.StoreLongTerm(memory.CategoryReliableSources, ev.Ranking(), memory.OpAppend); err != nil {
				return nil, err
			}
		}
	}
	store.StoreShortTerm(memory.KeyTopSources, topSources, nil)

	info := extractKeyInformation(evals, parsed)
	store.StoreShortTerm(memory.KeyGatheredInfo, info, nil)

	if err := store.StoreLongTerm(memory.CategorySearchPatterns, model.Entries{
		"query":         model.TextValue(query),
		"depth":         model.TextValue(strategy.Depth),
		"sources_found": model.NumberValue(len(sources)),
	}, memory.OpAppend); err != nil {
		return nil, err
	}

	scores := model.Entries{}
	for _, ev := range evals {
		if ev.Source.URL != "" {
			scores[ev.Source.URL] = model.NumberValue(ev.Overall)
		}
	}
	if err := store.StoreLongTerm(memory.CategoryQualityScores, scores, memory.OpUpdate); err != nil {
		return nil, err
	}

	store.ShareData(memory.AgentGatherer, &model.AgentStatus{
		Role:   model.RoleGatherer,
		Status: model.AgentCompleted,
		Detail: fmt.Sprintf("%d sources, %d findings", len(info.SourcesUsed), len(info.MainFindings)),
	}, model.PriorityNormal)

	logger.Info("information gathered",
		slog.Int("sources", len(info.SourcesUsed)),
		slog.Int("findings", len(info.MainFindings)),
		slog.Int("gaps", len(info.Gaps)))

	return info, nil
}

// extractKeyInformation combines the reported findings with findings read from the
// content of the best sources.
func extractKeyInformation(evals []*source.Evaluation, parsed *GatherOutput) *model.GatheredInfo {
	info := &model.GatheredInfo{
		MainFindings:       []model.Finding{},
		SourcesUsed:        []*model.Source{},
		SupportingEvidence: []model.SourceRef{},
		Gaps:               parsed.Gaps,
	}
	if info.Gaps == nil {
		info.Gaps = []string{}
	}

	byURL := map[string]*model.Source{}
	for _, ev := range evals {
		if ev.Source.URL != "" {
			byURL[ev.Source.URL] = ev.Source
		}
	}

	seen := map[string]bool{}
	for _, f := range parsed.Findings {
		text := strings.TrimSpace(f.Text)
		if text == "" || seen[text] {
			continue
		}
		seen[text] = true

		ref := model.SourceRef{Title: f.SourceTitle, URL: f.SourceURL}
		if s, ok := byURL[f.SourceURL]; ok {
			ref = s.Ref()
		}
		info.MainFindings = append(info.MainFindings, model.Finding{Text: text, Source: ref})
	}

	limit := min(len(evals), DefaultExtractSources)
	for _, ev := range evals[:limit] {
		s := ev.Source
		info.SourcesUsed = append(info.SourcesUsed, s)
		if s.Content == "" {
			continue
		}

		info.SupportingEvidence = append(info.SupportingEvidence, s.Ref())
		lower := strings.ToLower(s.Content)
		for _, signal := range findingSignals {
			if strings.Contains(lower, signal) {
				text := excerpt(s.Content)
				if !seen[text] {
					seen[text] = true
					info.MainFindings = append(info.MainFindings, model.Finding{Text: text, Source: s.Ref()})
				}
				break
			}
		}
	}

	return info
}

func excerpt(content string) string {
	runes := []rune(content)
	if len(runes) <= findingExcerptLength {
		return content
	}
	return string(runes[:findingExcerptLength]) + "..."
}
