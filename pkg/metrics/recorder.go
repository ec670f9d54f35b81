// Package metrics records research runs: prometheus collectors for scraping and a short
// in-process history for the recent-runs and summary endpoints.
package metrics

import (
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/m-mizutani/ferret/pkg/interfaces"
	"github.com/m-mizutani/ferret/pkg/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "ferret"

	DefaultRecentSize = 10

	statusSuccess = "success"
	statusFailure = "failure"
)

var _ interfaces.RunObserver = (*Recorder)(nil)

// RecentRun is one entry of the recent-runs history.
type RecentRun struct {
	RunID         model.RunID `json:"run_id,omitempty"`
	Query         string      `json:"query"`
	Timestamp     time.Time   `json:"timestamp"`
	ExecutionTime float64     `json:"execution_time"`
	Success       bool        `json:"success"`
	Error         string      `json:"error,omitempty"`
}

// Summary aggregates the recent-runs history. SuccessRate is a percentage and
// AvgExecutionTime is in seconds rounded to two decimals.
type Summary struct {
	TotalResearch    int     `json:"total_research"`
	Successful       int     `json:"successful"`
	Failed           int     `json:"failed"`
	SuccessRate      float64 `json:"success_rate"`
	AvgExecutionTime float64 `json:"avg_execution_time"`
}

// Recorder implements interfaces.RunObserver.
type Recorder struct {
	registry *prometheus.Registry

	runsTotal     *prometheus.CounterVec
	runDuration   prometheus.Histogram
	stageDuration *prometheus.HistogramVec

	mu     sync.Mutex
	recent []RecentRun
	size   int
	now    func() time.Time
}

type Option func(*Recorder)

// WithRecentSize sets how many runs the history keeps.
func WithRecentSize(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.size = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		r.now = now
	}
}

// New creates a recorder with its own prometheus registry, which also carries the Go
// and process collectors.
func New(opts ...Option) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "research_runs_total",
			Help:      "Number of finished research runs by status.",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "research_run_duration_seconds",
			Help:      "Wall time of research runs.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "research_stage_duration_seconds",
			Help:      "Wall time of research stages, including post-processing.",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"stage", "status"}),
		size: DefaultRecentSize,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.registry.MustRegister(
		r.runsTotal,
		r.runDuration,
		r.stageDuration,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return r
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) ObserveStage(stage model.Stage, seconds float64, err error) {
	r.stageDuration.WithLabelValues(string(stage), status(err == nil)).Observe(seconds)
}

func (r *Recorder) ObserveRun(result *model.RunResult) {
	if result == nil {
		return
	}

	seconds := result.ExecutionTime.Seconds()
	r.runsTotal.WithLabelValues(status(result.Success)).Inc()
	r.runDuration.Observe(seconds)

	entry := RecentRun{
		Query:         result.Query,
		Timestamp:     r.now(),
		ExecutionTime: seconds,
		Success:       result.Success,
		Error:         result.Error,
	}
	if result.Metadata != nil {
		entry.RunID = result.Metadata.RunID
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.recent = append(r.recent, entry)
	if len(r.recent) > r.size {
		r.recent = r.recent[len(r.recent)-r.size:]
	}
}

// Recent returns the history, oldest first.
func (r *Recorder) Recent() []RecentRun {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]RecentRun, len(r.recent))
	copy(out, r.recent)
	return out
}

// Summary aggregates the history. An empty history gives all zeros.
func (r *Recorder) Summary() Summary {
	recent := r.Recent()
	if len(recent) == 0 {
		return Summary{}
	}

	var s Summary
	var total float64
	for _, run := range recent {
		if run.Success {
			s.Successful++
		}
		total += run.ExecutionTime
	}
	s.TotalResearch = len(recent)
	s.Failed = s.TotalResearch - s.Successful
	s.SuccessRate = float64(s.Successful) / float64(s.TotalResearch) * 100
	s.AvgExecutionTime = math.Round(total/float64(s.TotalResearch)*100) / 100
	return s
}

func status(ok bool) string {
	if ok {
		return statusSuccess
	}
	return statusFailure
}
