package source

import (
	"context"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/ferret/pkg/model"
)

const (
	baseReliability = 0.5
	defaultRelevant = 0.5

	weightReliability = 0.4
	weightRelevance   = 0.4
	weightRecency     = 0.2
)

var trustedNewsDomains = []string{"reuters", "bbc", "nytimes"}

// ReliabilityScore grades a source from its domain, type, authorship and dating.
func ReliabilityScore(s *model.Source) float64 {
	score := baseReliability
	url := strings.ToLower(s.URL)

	switch {
	case strings.Contains(url, ".edu"), strings.Contains(url, ".gov"):
		score += 0.3
	case strings.Contains(url, ".org"):
		score += 0.1
	}

	sourceType := strings.ToLower(s.Type)
	switch {
	case strings.Contains(sourceType, "academic"):
		score += 0.2
	case strings.Contains(sourceType, "news") && containsAny(url, trustedNewsDomains):
		score += 0.1
	}

	if len(s.Authors) > 0 {
		score += 0.1
	}
	if s.Date != "" {
		score += 0.1
	}

	return min(score, 1.0)
}

// DecayCurve maps the age of a publication in years to a recency score. Steps[i] is
// the score of a source published i years ago; older sources get Floor and sources
// dated in the future get Steps[0].
type DecayCurve struct {
	Steps []float64 `yaml:"steps" json:"steps"`
	Floor float64   `yaml:"floor" json:"floor"`
}

// DefaultDecayCurve scores the current year 1.0 and decays to 0.3 after four years.
func DefaultDecayCurve() DecayCurve {
	return DecayCurve{
		Steps: []float64{1.0, 0.9, 0.7, 0.5},
		Floor: 0.3,
	}
}

// Score returns the recency for a publication age in years.
func (c DecayCurve) Score(age int) float64 {
	if len(c.Steps) == 0 {
		return c.Floor
	}
	if age < 0 {
		return c.Steps[0]
	}
	if age < len(c.Steps) {
		return c.Steps[age]
	}
	return c.Floor
}

var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// PublicationYear extracts the first plausible year from a date string.
func PublicationYear(date string) (int, bool) {
	m := yearPattern.FindString(date)
	if m == "" {
		return 0, false
	}
	year, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return year, true
}

// Recency scores a date string against the current year. Undated sources get Floor.
func (c DecayCurve) Recency(date string, now time.Time) float64 {
	year, ok := PublicationYear(date)
	if !ok {
		return c.Floor
	}
	return c.Score(now.Year() - year)
}

// Gate decides whether a source counts as reliable.
type Gate interface {
	IsReliable(ctx context.Context, s *model.Source) (bool, error)
}

// HeuristicGate accepts a source when any single reliability indicator holds.
type HeuristicGate struct{}

func (HeuristicGate) IsReliable(_ context.Context, s *model.Source) (bool, error) {
	return IsReliable(s), nil
}

// IsReliable reports whether at least one of: .edu or .gov domain, "peer-reviewed"
// description, academic type, credibility above 0.7.
func IsReliable(s *model.Source) bool {
	url := strings.ToLower(s.URL)
	return strings.Contains(url, ".edu") ||
		strings.Contains(url, ".gov") ||
		strings.Contains(strings.ToLower(s.Description), "peer-reviewed") ||
		strings.Contains(strings.ToLower(s.Type), "academic") ||
		model.NormalizeScore(s.CredibilityScore) > 0.7
}

// Evaluation is the ranking record of one source.
type Evaluation struct {
	Source      *model.Source
	Reliability float64
	Relevance   float64
	Recency     float64
	Overall     float64
	Reliable    bool
}

// Ranking converts the evaluation into the value kept in long-term memory.
func (x *Evaluation) Ranking() *model.SourceRanking {
	return &model.SourceRanking{
		URL:          x.Source.URL,
		Title:        x.Source.Title,
		Reliability:  x.Reliability,
		Recency:      x.Recency,
		OverallScore: x.Overall,
	}
}

// Evaluator ranks sources by reliability, relevance and recency.
type Evaluator struct {
	curve DecayCurve
	gate  Gate
	now   func() time.Time
}

type EvaluatorOption func(*Evaluator)

func WithDecayCurve(curve DecayCurve) EvaluatorOption {
	return func(e *Evaluator) {
		e.curve = curve
	}
}

func WithGate(gate Gate) EvaluatorOption {
	return func(e *Evaluator) {
		if gate != nil {
			e.gate = gate
		}
	}
}

func WithClock(now func() time.Time) EvaluatorOption {
	return func(e *Evaluator) {
		e.now = now
	}
}

func NewEvaluator(opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		curve: DefaultDecayCurve(),
		gate:  HeuristicGate{},
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate scores every source, writes the scores back onto it and returns the
// evaluations sorted by overall score, highest first. Ties keep input order.
func (e *Evaluator) Evaluate(ctx context.Context, sources []*model.Source) ([]*Evaluation, error) {
	now := e.now()
	evals := make([]*Evaluation, 0, len(sources))

	for _, s := range sources {
		if s == nil {
			continue
		}

		reliable, err := e.gate.IsReliable(ctx, s)
		if err != nil {
			return nil, err
		}

		relevance := s.RelevanceScore
		if relevance == 0 {
			relevance = defaultRelevant
		}

		ev := &Evaluation{
			Source:      s,
			Reliability: ReliabilityScore(s),
			Relevance:   relevance,
			Recency:     e.curve.Recency(s.Date, now),
			Reliable:    reliable,
		}
		ev.Overall = ev.Reliability*weightReliability + ev.Relevance*weightRelevance + ev.Recency*weightRecency

		s.Reliability = ev.Reliability
		s.Recency = ev.Recency
		s.OverallScore = ev.Overall
		evals = append(evals, ev)
	}

	slices.SortStableFunc(evals, func(a, b *Evaluation) int {
		switch {
		case a.Overall > b.Overall:
			return -1
		case a.Overall < b.Overall:
			return 1
		default:
			return 0
		}
	})

	return evals, nil
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
