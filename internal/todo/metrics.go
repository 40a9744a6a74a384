package todo

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for task generation runs. A nil *Metrics records
// nothing.
type Metrics struct {
	RunsTotal        *prometheus.CounterVec
	CandidatesTotal  *prometheus.CounterVec
	VerdictsTotal    *prometheus.CounterVec
	DedupFailOpen    prometheus.Counter
	TasksCreated     prometheus.Counter
	TaskCreateErrors prometheus.Counter
	RunDuration      prometheus.Histogram
}

// NewMetrics creates the metrics and registers them on reg. A nil reg leaves them
// unregistered.
//
// Metrics:
//   - todo_pipeline_runs_total{outcome} - runs by outcome (ok, no_tasks, extraction_failed, no_list)
//   - todo_candidates_total{source} - extracted candidates by source (email, chat)
//   - todo_dedup_verdicts_total{verdict} - deduplication verdicts (unique, duplicate)
//   - todo_dedup_failopen_total - deduplication calls that failed open
//   - todo_tasks_created_total - tasks created in the store
//   - todo_task_create_errors_total - failed task creations
//   - todo_pipeline_duration_seconds - run duration
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "todo_pipeline_runs_total",
			Help: "Total number of task generation runs by outcome",
		}, []string{"outcome"}),
		CandidatesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "todo_candidates_total",
			Help: "Total number of extracted task candidates by source",
		}, []string{"source"}),
		VerdictsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "todo_dedup_verdicts_total",
			Help: "Total number of deduplication verdicts",
		}, []string{"verdict"}),
		DedupFailOpen: f.NewCounter(prometheus.CounterOpts{
			Name: "todo_dedup_failopen_total",
			Help: "Total number of deduplication calls that failed and treated every candidate as unique",
		}),
		TasksCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "todo_tasks_created_total",
			Help: "Total number of tasks created",
		}),
		TaskCreateErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "todo_task_create_errors_total",
			Help: "Total number of failed task creations",
		}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "todo_pipeline_duration_seconds",
			Help:    "Duration of task generation runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~4m
		}),
	}
}

func (m *Metrics) recordRun(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(outcome).Inc()
	m.RunDuration.Observe(d.Seconds())
}

func (m *Metrics) recordCandidates(src Source, n int) {
	if m == nil {
		return
	}
	m.CandidatesTotal.WithLabelValues(string(src)).Add(float64(n))
}

func (m *Metrics) recordVerdicts(unique, duplicate int) {
	if m == nil {
		return
	}
	m.VerdictsTotal.WithLabelValues(string(VerdictUnique)).Add(float64(unique))
	m.VerdictsTotal.WithLabelValues(string(VerdictDuplicate)).Add(float64(duplicate))
}

func (m *Metrics) recordFailOpen() {
	if m == nil {
		return
	}
	m.DedupFailOpen.Inc()
}

func (m *Metrics) recordCommit(created, failed int) {
	if m == nil {
		return
	}
	m.TasksCreated.Add(float64(created))
	m.TaskCreateErrors.Add(float64(failed))
}
