package source

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/m-mizutani/ferret/pkg/model"
)

// Source classes produced by AcademicAnalyzer.
const (
	TypeAcademic = "academic"
	TypeNews     = "news"
	TypeBlog     = "blog"
	TypeOther    = "other"
)

var (
	academicIndicators = compileAll(`journal`, `university`, `\.edu`, `research`, `study`,
		`peer[\s-]?review`, `academic`, `scholar`, `thesis`, `dissertation`, `conference`, `proceedings`)
	newsIndicators = compileAll(`news`, `times`, `post`, `guardian`, `reuters`, `bbc`, `cnn`,
		`press`, `daily`, `herald`, `breaking`)
	blogIndicators = compileAll(`blog`, `medium\.com`, `wordpress`, `personal`, `opinion`,
		`thoughts`, `my\s+view`)

	biasWords = []string{"obviously", "clearly", "everyone knows", "nobody believes", "always",
		"never", "completely", "totally", "undoubtedly", "definitely", "surely", "of course", "naturally"}
	biasPatterns = compileWords(biasWords)

	qualityPatterns = compileWords([]string{"methodology", "results", "conclusion", "abstract",
		"references", "data", "analysis", "findings", "evidence", "statistical", "empirical", "systematic"})

	authorPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:Authors?:)\s*([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*(?:,\s*[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)*)`),
		regexp.MustCompile(`(?:By|by)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)`),
		regexp.MustCompile(`([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)\s+et\s+al\.`),
		regexp.MustCompile(`([A-Z]\.\s*[A-Z][a-z]+)`),
	}
	authorStopWords = []string{"research", "article", "study", "journal", "university"}
	capitalizedWord = regexp.MustCompile(`[A-Z][a-z]+`)

	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:published|posted|updated|dated?)\s*:?\s*(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`),
		regexp.MustCompile(`(?i)(?:published|posted|updated|dated?)\s*:?\s*(\w+\s+\d{1,2},?\s+\d{4})`),
		regexp.MustCompile(`(?i)(\d{4}[/-]\d{1,2}[/-]\d{1,2})`),
		regexp.MustCompile(`(?i)(?:©|copyright)\s*(\d{4})`),
	}

	citationPattern = regexp.MustCompile(`\[\d+\]|\(\w+,?\s+\d{4}\)`)
	fourDigits      = regexp.MustCompile(`\d{4}`)

	findingPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?im)(?:key\s+)?findings?:?\s*([^.]+\.)`),
		regexp.MustCompile(`(?im)(?:main\s+)?results?:?\s*([^.]+\.)`),
		regexp.MustCompile(`(?im)(?:in\s+)?conclusions?:?\s*([^.]+\.)`),
		regexp.MustCompile(`(?im)the\s+study\s+(?:found|showed|demonstrated)\s+(?:that\s+)?([^.]+\.)`),
		regexp.MustCompile(`(?im)our\s+(?:research|analysis)\s+(?:indicates|suggests|shows)\s+(?:that\s+)?([^.]+\.)`),
	}
	bulletPattern = regexp.MustCompile(`(?:^|\n)\s*[•·▪▫◦‣⁃]\s*([^•·▪▫◦‣⁃\n]+)`)
)

const (
	typeSniffLength    = 1000
	authorSniffLength  = 2000
	balancedMinLength  = 500
	maxAuthors         = 5
	maxKeyFindings     = 5
	minKeyFindingChars = 20
)

var typeWeights = map[string]float64{
	TypeAcademic: 0.4,
	TypeNews:     0.25,
	TypeBlog:     0.1,
	TypeOther:    0.15,
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}

func compileWords(words []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(words))
	for i, w := range words {
		out[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(w) + `\b`)
	}
	return out
}

// AcademicAnalyzer evaluates a source's content for type, credibility, bias and quality.
type AcademicAnalyzer struct {
	now func() time.Time
}

type AcademicOption func(*AcademicAnalyzer)

func WithAcademicClock(now func() time.Time) AcademicOption {
	return func(a *AcademicAnalyzer) {
		a.now = now
	}
}

func NewAcademicAnalyzer(opts ...AcademicOption) *AcademicAnalyzer {
	a := &AcademicAnalyzer{now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze implements the source analysis collaborator.
func (a *AcademicAnalyzer) Analyze(_ context.Context, url, title, content string) (*model.SourceAnalysis, error) {
	sourceType, confidence := IdentifySourceType(url, content)
	authors := ExtractAuthors(content)
	date := ExtractPublicationDate(content)
	citations := len(citationPattern.FindAllString(content, -1))
	bias := DetectBias(content)

	credibility := CredibilityScore(sourceType, confidence, len(authors), date != "", citations)
	quality := QualityScore(content, credibility, len(bias))

	meta := model.SourceMetadata{
		Authors:       authors,
		PublishedDate: date,
		CitationCount: citations,
		WordCount:     len(strings.Fields(content)),
		Domain:        (&model.Source{URL: url}).Domain(),
	}

	return &model.SourceAnalysis{
		URL:              url,
		Title:            title,
		SourceType:       sourceType,
		TypeConfidence:   confidence,
		CredibilityScore: credibility,
		QualityScore:     quality,
		BiasIndicators:   bias,
		KeyFindings:      ExtractKeyFindings(content),
		Metadata:         meta,
		Citation:         Cite(title, url, sourceType, authors, date, a.now()),
	}, nil
}

// IdentifySourceType counts the indicator families matching the URL and the head of
// the content. The family with the most hits wins; ties go to academic, then news.
func IdentifySourceType(url, content string) (string, float64) {
	text := strings.ToLower(url) + " " + strings.ToLower(truncate(content, typeSniffLength))

	scores := []struct {
		name  string
		count int
	}{
		{TypeAcademic, countMatches(academicIndicators, text)},
		{TypeNews, countMatches(newsIndicators, text)},
		{TypeBlog, countMatches(blogIndicators, text)},
	}

	best, total := 0, 0
	for i, s := range scores {
		total += s.count
		if s.count > scores[best].count {
			best = i
		}
	}
	if total == 0 {
		return TypeOther, 0.5
	}
	return scores[best].name, float64(scores[best].count) / float64(total)
}

func countMatches(patterns []*regexp.Regexp, text string) int {
	n := 0
	for _, p := range patterns {
		if p.MatchString(text) {
			n++
		}
	}
	return n
}

// ExtractAuthors returns up to five distinct author names in order of appearance.
func ExtractAuthors(content string) []string {
	head := truncate(content, authorSniffLength)

	var candidates []string
	for _, p := range authorPatterns {
		for _, m := range p.FindAllStringSubmatch(head, -1) {
			for _, name := range strings.Split(m[1], ",") {
				candidates = append(candidates, strings.TrimSpace(name))
			}
		}
	}

	seen := map[string]bool{}
	authors := []string{}
	for _, name := range candidates {
		if len(name) <= 3 || seen[name] || isStopWord(name) || !capitalizedWord.MatchString(name) {
			continue
		}
		seen[name] = true
		authors = append(authors, name)
		if len(authors) == maxAuthors {
			break
		}
	}
	return authors
}

func isStopWord(name string) bool {
	lower := strings.ToLower(name)
	for _, w := range authorStopWords {
		if lower == w {
			return true
		}
	}
	return false
}

// ExtractPublicationDate returns the first date found, or an empty string.
func ExtractPublicationDate(content string) string {
	for _, p := range datePatterns {
		if m := p.FindStringSubmatch(content); m != nil {
			return m[1]
		}
	}
	return ""
}

const unbalancedIndicator = "lack of balanced perspective"

// DetectBias lists the loaded words found in content. Long content that never offers a
// counterpoint is flagged as unbalanced.
func DetectBias(content string) []string {
	found := []string{}
	for i, p := range biasPatterns {
		if p.MatchString(content) {
			found = append(found, biasWords[i])
		}
	}

	lower := strings.ToLower(content)
	if !strings.Contains(lower, "however") && !strings.Contains(lower, "although") && len(content) > balancedMinLength {
		found = append(found, unbalancedIndicator)
	}
	return found
}

// CredibilityScore combines type weight, authorship, dating and citations into 0..1.
func CredibilityScore(sourceType string, typeConfidence float64, authors int, hasDate bool, citations int) float64 {
	weight, ok := typeWeights[sourceType]
	if !ok {
		weight = 0.1
	}
	score := weight * typeConfidence

	if authors > 0 {
		score += min(0.2, float64(authors)*0.05)
	}
	if hasDate {
		score += 0.1
	}
	if citations > 0 {
		score += min(0.3, float64(citations)*0.03)
	}
	return min(1.0, score)
}

// QualityScore combines quality vocabulary, length, structure, credibility and a bias
// penalty into 0..1.
func QualityScore(content string, credibility float64, biasCount int) float64 {
	score := min(0.4, float64(countMatches(qualityPatterns, content))*0.05)

	if len(content) > 1000 {
		score += 0.1
	}
	if strings.Count(content, "\n\n") > 3 {
		score += 0.1
	}

	score += credibility * 0.2
	score += 0.2 - min(0.2, float64(biasCount)*0.04)

	return min(1.0, score)
}

// ExtractKeyFindings returns up to five distinct finding sentences longer than twenty
// characters, from finding phrases first and bullet items second.
func ExtractKeyFindings(content string) []string {
	var candidates []string
	for _, p := range findingPatterns {
		for _, m := range p.FindAllStringSubmatch(content, -1) {
			candidates = append(candidates, strings.TrimSpace(m[1]))
		}
	}
	for _, m := range bulletPattern.FindAllStringSubmatch(content, -1) {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}

	seen := map[string]bool{}
	findings := []string{}
	for _, c := range candidates {
		if len(c) <= minKeyFindingChars || seen[c] {
			continue
		}
		seen[c] = true
		findings = append(findings, c)
		if len(findings) == maxKeyFindings {
			break
		}
	}
	return findings
}

// Cite renders the source in APA, MLA, Chicago and BibTeX styles.
func Cite(title, url, sourceType string, authors []string, date string, accessed time.Time) model.CitationFormats {
	authorStr := "Unknown Author"
	if len(authors) > 0 {
		authorStr = strings.Join(authors, ", ")
	}

	year := "n.d."
	if y := fourDigits.FindString(date); y != "" {
		year = y
	} else if fields := strings.Fields(date); len(fields) > 0 {
		year = fields[len(fields)-1]
	}

	c := model.CitationFormats{
		APA:     fmt.Sprintf("%s (%s). %s.", authorStr, year, title),
		MLA:     fmt.Sprintf("%s. \"%s.\" %s.", authorStr, title, year),
		Chicago: fmt.Sprintf("%s. \"%s.\" Accessed %s.", authorStr, title, accessed.Format("January 02, 2006")),
	}
	if url != "" {
		c.APA += " Retrieved from " + url
		c.MLA += " Web. <" + url + ">"
	}

	entryType := "@misc"
	if sourceType == TypeAcademic {
		entryType = "@article"
	}
	key := "ref" + year
	if fields := strings.Fields(title); len(fields) > 0 {
		key = strings.ToLower(fields[0]) + year
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s{%s,\n", entryType, key)
	fmt.Fprintf(&b, "  author = {%s},\n", authorStr)
	fmt.Fprintf(&b, "  title = {%s},\n", title)
	fmt.Fprintf(&b, "  year = {%s}", year)
	if url != "" {
		fmt.Fprintf(&b, ",\n  url = {%s}", url)
	}
	b.WriteString("\n}")
	c.BibTeX = b.String()

	return c
}

// Enrich applies an analysis result onto the source it was computed for. Fields already
// set on the source win except for the credibility score, which the analysis refines
// when the source has none.
func Enrich(s *model.Source, a *model.SourceAnalysis) {
	if a == nil {
		return
	}
	if s.CredibilityScore == 0 {
		s.CredibilityScore = a.CredibilityScore
	}
	if len(s.Authors) == 0 {
		s.Authors = a.Metadata.Authors
	}
	if s.Date == "" {
		s.Date = a.Metadata.PublishedDate
	}
	if len(s.KeyFindings) == 0 {
		s.KeyFindings = a.KeyFindings
	}
	if len(s.BiasIndicators) == 0 {
		s.BiasIndicators = a.BiasIndicators
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
