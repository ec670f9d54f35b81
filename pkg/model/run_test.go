package model_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/m-mizutani/ferret/pkg/model"
	"github.com/m-mizutani/gt"
)

var createdAt = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func TestRunSnapshotStructured(t *testing.T) {
	result := &model.RunResult{
		Success:    true,
		Query:      "remote work",
		ReportKind: model.ReportStructured,
		Report: &model.Report{
			Title:       "Research Report: Remote Work",
			Conclusions: []string{"Remote work keeps growing"},
			References:  []model.Reference{{ID: "ref_1", Title: "Jobs Report", URL: "https://stats.example.gov", Reliability: "90%"}},
		},
		ExecutionTime: 1500 * time.Millisecond,
		Snapshot: &model.MemorySnapshot{
			LongTerm: model.Categories{
				"reliable_sources": model.ValueList{
					&model.SourceRanking{URL: "https://stats.example.gov", Title: "Jobs Report", OverallScore: 0.8},
				},
				"topic_knowledge": model.Entries{"remote work": model.TextValue("known")},
			},
		},
	}

	snap, err := model.NewRunSnapshot("run-1", result, createdAt)
	gt.NoError(t, err)
	gt.Equal(t, snap.ID, model.RunID("run-1"))
	gt.Equal(t, snap.ReportTitle, "Research Report: Remote Work")
	gt.True(t, snap.Success)

	var raw map[string]any
	gt.NoError(t, json.Unmarshal(snap.Result, &raw))
	gt.Equal(t, raw["execution_time"], any(1.5))

	r, err := snap.DecodeReport()
	gt.NoError(t, err)
	report, ok := r.(*model.Report)
	gt.True(t, ok)
	gt.Equal(t, report.Title, "Research Report: Remote Work")
	gt.Equal(t, report.Conclusions, []string{"Remote work keeps growing"})
	gt.Equal(t, report.References[0].Reliability, "90%")

	mem, err := snap.DecodeMemory()
	gt.NoError(t, err)
	gt.V(t, mem).NotNil()
	sources, ok := mem.LongTerm["reliable_sources"].(model.ValueList)
	gt.True(t, ok)
	gt.A(t, sources).Length(1)
	ranking, ok := sources[0].(*model.SourceRanking)
	gt.True(t, ok)
	gt.Equal(t, ranking.URL, "https://stats.example.gov")
	knowledge, ok := mem.LongTerm["topic_knowledge"].(model.Entries)
	gt.True(t, ok)
	gt.Equal(t, knowledge["remote work"], model.MemoryValue(model.TextValue("known")))
}

func TestRunSnapshotParsed(t *testing.T) {
	result := &model.RunResult{
		Success:    true,
		Query:      "remote work",
		ReportKind: model.ReportParsed,
		Report: &model.ParsedReport{
			Title:    "Research Report: Remote Work",
			Sections: []model.ParsedSection{{Name: model.SectionConclusions, Body: "Plan for hybrid offices."}},
			Raw:      "## Conclusions\nPlan for hybrid offices.",
		},
	}

	snap, err := model.NewRunSnapshot("run-2", result, createdAt)
	gt.NoError(t, err)

	r, err := snap.DecodeReport()
	gt.NoError(t, err)
	parsed, ok := r.(*model.ParsedReport)
	gt.True(t, ok)
	body, ok := parsed.Section(model.SectionConclusions)
	gt.True(t, ok)
	gt.Equal(t, body, "Plan for hybrid offices.")
}

func TestRunSnapshotFailed(t *testing.T) {
	result := &model.RunResult{
		Success: false,
		Query:   "remote work",
		Error:   "agent execution failed",
	}

	snap, err := model.NewRunSnapshot("run-3", result, createdAt)
	gt.NoError(t, err)
	gt.False(t, snap.Success)
	gt.Equal(t, snap.ReportTitle, "")

	r, err := snap.DecodeReport()
	gt.NoError(t, err)
	gt.True(t, r == nil)

	mem, err := snap.DecodeMemory()
	gt.NoError(t, err)
	gt.True(t, mem == nil)
}
