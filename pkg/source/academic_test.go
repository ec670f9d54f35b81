package source_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/ferret/pkg/model"
	"github.com/m-mizutani/ferret/pkg/source"
	"github.com/m-mizutani/gt"
)

func TestIdentifySourceType(t *testing.T) {
	kind, conf := source.IdentifySourceType("https://journal.example.edu", "A peer-reviewed study")
	gt.Equal(t, kind, source.TypeAcademic)
	gt.Equal(t, conf, 1.0)

	kind, _ = source.IdentifySourceType("https://medium.com/@someone", "my opinion on things")
	gt.Equal(t, kind, source.TypeBlog)

	kind, conf = source.IdentifySourceType("", "")
	gt.Equal(t, kind, source.TypeOther)
	gt.Equal(t, conf, 0.5)
}

func TestExtractAuthors(t *testing.T) {
	authors := source.ExtractAuthors("Authors: John Smith, Jane Doe\nthe text follows")
	gt.Equal(t, authors, []string{"John Smith", "Jane Doe"})

	gt.A(t, source.ExtractAuthors("no names here")).Length(0)
}

func TestExtractPublicationDate(t *testing.T) {
	gt.Equal(t, source.ExtractPublicationDate("Published: March 5, 2024"), "March 5, 2024")
	gt.Equal(t, source.ExtractPublicationDate("release 2023-11-02 notes"), "2023-11-02")
	gt.Equal(t, source.ExtractPublicationDate("Copyright 2021"), "2021")
	gt.Equal(t, source.ExtractPublicationDate("undated"), "")
}

func TestDetectBias(t *testing.T) {
	gt.Equal(t, source.DetectBias("This is obviously true"), []string{"obviously"})

	long := strings.Repeat("plain words ", 60)
	gt.Equal(t, source.DetectBias(long), []string{"lack of balanced perspective"})

	balanced := long + " however"
	gt.A(t, source.DetectBias(balanced)).Length(0)
}

func TestCredibilityAndQuality(t *testing.T) {
	approx(t, source.CredibilityScore(source.TypeAcademic, 1.0, 2, true, 3), 0.69)
	approx(t, source.CredibilityScore(source.TypeBlog, 0.5, 0, false, 0), 0.05)
	approx(t, source.CredibilityScore("unknown", 1.0, 10, true, 100), 0.7)

	approx(t, source.QualityScore("methodology and results", 0.5, 0), 0.4)
	approx(t, source.QualityScore("", 0, 10), 0.0)
}

func TestExtractKeyFindings(t *testing.T) {
	content := "The study found that sleep improves memory consolidation in adults. Short."
	findings := source.ExtractKeyFindings(content)
	gt.Equal(t, findings, []string{"sleep improves memory consolidation in adults."})

	bullets := "Intro\n• Exercise reduces the risk of heart disease\n• short"
	gt.Equal(t, source.ExtractKeyFindings(bullets), []string{"Exercise reduces the risk of heart disease"})
}

func TestCite(t *testing.T) {
	accessed := time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC)
	c := source.Cite("Deep Learning", "https://x.edu", source.TypeAcademic, []string{"Ann Lee"}, "May 2020", accessed)

	gt.Equal(t, c.APA, "Ann Lee (2020). Deep Learning. Retrieved from https://x.edu")
	gt.Equal(t, c.MLA, "Ann Lee. \"Deep Learning.\" 2020. Web. <https://x.edu>")
	gt.Equal(t, c.Chicago, "Ann Lee. \"Deep Learning.\" Accessed February 03, 2026.")
	gt.S(t, c.BibTeX).Contains("@article{deep2020,")
	gt.S(t, c.BibTeX).Contains("url = {https://x.edu}")

	anon := source.Cite("Notes", "", source.TypeOther, nil, "", accessed)
	gt.Equal(t, anon.APA, "Unknown Author (n.d.). Notes.")
	gt.S(t, anon.BibTeX).Contains("@misc{notesn.d.,")
}

func TestAcademicAnalyzer(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	analyzer := source.NewAcademicAnalyzer(source.WithAcademicClock(func() time.Time { return now }))

	content := "Journal of Research. By Maria Garcia. Published: 2024-01-15.\n" +
		"Our analysis shows that urban trees lower summer temperatures noticeably. See [1] and [2]."
	result, err := analyzer.Analyze(context.Background(), "https://uni.edu/paper", "Urban Trees", content)
	gt.NoError(t, err)

	gt.Equal(t, result.SourceType, source.TypeAcademic)
	gt.Equal(t, result.Metadata.CitationCount, 2)
	gt.Equal(t, result.Metadata.PublishedDate, "2024-01-15")
	gt.Equal(t, result.Metadata.Domain, "uni.edu")
	gt.A(t, result.Metadata.Authors).Length(1)
	gt.Equal(t, result.Metadata.Authors[0], "Maria Garcia")
	gt.True(t, result.CredibilityScore > 0.5)
	gt.A(t, result.KeyFindings).Length(1)
	gt.S(t, result.Citation.APA).Contains("Maria Garcia (2024)")

	s := &model.Source{URL: "https://uni.edu/paper"}
	source.Enrich(s, result)
	gt.Equal(t, s.Date, "2024-01-15")
	gt.Equal(t, s.CredibilityScore, result.CredibilityScore)
}
