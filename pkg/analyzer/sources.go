package analyzer

import (
	"strings"

	"github.com/m-mizutani/ferret/pkg/model"
)

// Source classes used by CompareSources.
const (
	SourceAcademic   = "academic"
	SourceGovernment = "government"
	SourceNews       = "news"
	SourceOther      = "other"
)

var newsDomainKeywords = []string{"news", "times", "post"}

// CategorizeURL classifies a source URL into academic, government, news or other.
func CategorizeURL(url string) string {
	u := strings.ToLower(url)
	switch {
	case strings.Contains(u, ".edu"):
		return SourceAcademic
	case strings.Contains(u, ".gov"):
		return SourceGovernment
	}
	for _, kw := range newsDomainKeywords {
		if strings.Contains(u, kw) {
			return SourceNews
		}
	}
	return SourceOther
}

// CompareSources groups sources by URL class and grades the mean reliability of each
// group. Groups are returned in first-seen order.
func CompareSources(sources []*model.Source) []model.SourceComparison {
	type group struct {
		count int
		sum   float64
	}
	groups := map[string]*group{}
	var order []string

	for _, s := range sources {
		if s == nil {
			continue
		}
		class := CategorizeURL(s.URL)
		g, ok := groups[class]
		if !ok {
			g = &group{}
			groups[class] = g
			order = append(order, class)
		}
		g.count++
		g.sum += sourceReliability(s)
	}

	comparisons := make([]model.SourceComparison, 0, len(order))
	for _, class := range order {
		g := groups[class]
		avg := g.sum / float64(g.count)
		assessment := "moderate"
		if avg > HighConfidence {
			assessment = "high"
		}
		comparisons = append(comparisons, model.SourceComparison{
			SourceType:     class,
			Count:          g.count,
			AvgReliability: avg,
			Assessment:     assessment,
		})
	}
	return comparisons
}
