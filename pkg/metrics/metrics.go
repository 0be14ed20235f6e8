package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "homeops"

// Sync run results.
const (
	SyncOK      = "ok"
	SyncFailed  = "failed"
	SyncSkipped = "skipped"
)

// Metrics holds the collectors of the service. A nil *Metrics is valid and records
// nothing, so collaborators never need to check for it.
type Metrics struct {
	registry *prometheus.Registry

	scored       *prometheus.CounterVec
	mentalLoad   prometheus.Histogram
	syncRuns     *prometheus.CounterVec
	syncDuration prometheus.Histogram
	aiCalls      *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: reg,
		scored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_scored_total",
			Help:      "Emails scored, by display verdict.",
		}, []string{"verdict"}),
		mentalLoad: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "mental_load_score",
			Help:      "Distribution of mental load scores.",
			Buckets:   prometheus.LinearBuckets(10, 10, 10),
		}),
		syncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_runs_total",
			Help:      "Inbox sync runs, by result.",
		}, []string{"result"}),
		syncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Duration of inbox sync runs.",
			Buckets:   prometheus.DefBuckets,
		}),
		aiCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_calls_total",
			Help:      "Text generation calls, by operation and result.",
		}, []string{"operation", "result"}),
	}
	reg.MustRegister(m.scored, m.mentalLoad, m.syncRuns, m.syncDuration, m.aiCalls)
	return m
}

// ObserveScore records one scoring verdict.
func (m *Metrics) ObserveScore(displayed bool, mentalLoad int) {
	if m == nil {
		return
	}
	verdict := "filtered"
	if displayed {
		verdict = "displayed"
	}
	m.scored.WithLabelValues(verdict).Inc()
	m.mentalLoad.Observe(float64(mentalLoad))
}

func (m *Metrics) ObserveSync(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.syncRuns.WithLabelValues(result).Inc()
	m.syncDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveAI(operation string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.aiCalls.WithLabelValues(operation, result).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
