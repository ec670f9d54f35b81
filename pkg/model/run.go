package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

type RunID string

func NewRunID() RunID {
	return RunID(uuid.New().String())
}

type RunMetadata struct {
	RunID          RunID     `json:"run_id"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	AgentsUsed     int       `json:"agents_used"`
	TasksCompleted int       `json:"tasks_completed"`
	MemoryStats    Stats     `json:"memory_stats"`
	Progress       *Progress `json:"progress,omitempty"`
}

// RunResult is the outcome of one research run. A failed run carries no report.
type RunResult struct {
	Success       bool           `json:"success"`
	Query         string         `json:"query"`
	ReportKind    ReportKind     `json:"report_kind,omitempty"`
	Report        ResearchReport `json:"report,omitempty"`
	Error         string         `json:"error,omitempty"`
	ExecutionTime time.Duration  `json:"-"`
	Metadata      *RunMetadata   `json:"metadata,omitempty"`

	// Err keeps the original error for errors.Is checks by callers.
	Err error `json:"-"`
	// Snapshot is the run's memory at completion, nil on failure.
	Snapshot *MemorySnapshot `json:"-"`
}

// RunSnapshot is a persisted research run.
type RunSnapshot struct {
	ID          RunID           `json:"id"`
	Query       string          `json:"query"`
	Success     bool            `json:"success"`
	ReportTitle string          `json:"report_title"`
	Result      json.RawMessage `json:"result"`
	Memory      json.RawMessage `json:"memory"`
	CreatedAt   time.Time       `json:"created_at"`
}

// NewRunSnapshot serializes a finished run for persistence.
func NewRunSnapshot(id RunID, result *RunResult, createdAt time.Time) (*RunSnapshot, error) {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal run result", goerr.V("run_id", id))
	}

	snap := &RunSnapshot{
		ID:        id,
		Query:     result.Query,
		Success:   result.Success,
		Result:    resultJSON,
		CreatedAt: createdAt,
	}
	if result.Report != nil {
		snap.ReportTitle = result.Report.ReportTitle()
	}
	if result.Snapshot != nil {
		memJSON, err := json.Marshal(result.Snapshot)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to marshal memory snapshot", goerr.V("run_id", id))
		}
		snap.Memory = memJSON
	}
	return snap, nil
}

// DecodeMemory returns the stored memory snapshot, nil if none was saved.
func (x *RunSnapshot) DecodeMemory() (*MemorySnapshot, error) {
	if len(x.Memory) == 0 {
		return nil, nil
	}
	var snap MemorySnapshot
	if err := json.Unmarshal(x.Memory, &snap); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal memory snapshot", goerr.V("run_id", x.ID))
	}
	return &snap, nil
}

// MarshalJSON renders the execution time in seconds.
func (x RunResult) MarshalJSON() ([]byte, error) {
	type alias RunResult
	return json.Marshal(struct {
		alias
		ExecutionSeconds float64 `json:"execution_time"`
	}{
		alias:            alias(x),
		ExecutionSeconds: x.ExecutionTime.Seconds(),
	})
}

// DecodeReport restores the report of a stored run, nil for a failed run.
func (x *RunSnapshot) DecodeReport() (ResearchReport, error) {
	var stored struct {
		ReportKind ReportKind      `json:"report_kind"`
		Report     json.RawMessage `json:"report"`
	}
	if err := json.Unmarshal(x.Result, &stored); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal run result", goerr.V("run_id", x.ID))
	}

	var r ResearchReport
	switch stored.ReportKind {
	case "":
		return nil, nil
	case ReportStructured:
		r = &Report{}
	case ReportParsed:
		r = &ParsedReport{}
	default:
		return nil, goerr.New("unknown report kind", goerr.V("run_id", x.ID), goerr.V("kind", stored.ReportKind))
	}
	if err := json.Unmarshal(stored.Report, r); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal report", goerr.V("run_id", x.ID))
	}
	return r, nil
}
