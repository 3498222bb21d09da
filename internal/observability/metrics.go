package observability

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tessera-ai/knowledge-backend/internal/types"
)

// Metrics owns the prometheus registry for the ingestion pipeline. One
// instance per process, injected where needed; the transition counter doubles
// as the validator's telemetry sink.
type Metrics struct {
	registry *prometheus.Registry

	transitionAttempts *prometheus.CounterVec
	preparesTotal      *prometheus.CounterVec
	executionsTotal    *prometheus.CounterVec
	analysisDuration   prometheus.Histogram
	deadLettersTotal   prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.transitionAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "knowledge",
		Subsystem: "ingest",
		Name:      "transition_attempts_total",
		Help:      "Attempted ingestion status transitions, legal or not.",
	}, []string{"from", "to", "legal"})

	m.preparesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "knowledge",
		Subsystem: "ingest",
		Name:      "prepares_total",
		Help:      "Prepare calls by outcome (created, duplicate, rejected, failed, degraded).",
	}, []string{"outcome"})

	m.executionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "knowledge",
		Subsystem: "ingest",
		Name:      "executions_total",
		Help:      "Analysis executions by outcome (completed, failed, rejected).",
	}, []string{"outcome"})

	m.analysisDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "knowledge",
		Subsystem: "ingest",
		Name:      "analysis_duration_seconds",
		Help:      "Wall time of one analysis execution.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
	})

	m.deadLettersTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "knowledge",
		Subsystem: "ingest",
		Name:      "dead_letters_total",
		Help:      "Dead-letter entries written.",
	})

	m.registry.MustRegister(
		m.transitionAttempts,
		m.preparesTotal,
		m.executionsTotal,
		m.analysisDuration,
		m.deadLettersTotal,
	)
	return m
}

// RecordTransition satisfies ingest.TransitionRecorder.
func (m *Metrics) RecordTransition(from, to types.IngestionStatus, legal bool) {
	m.transitionAttempts.WithLabelValues(string(from), string(to), strconv.FormatBool(legal)).Inc()
}

func (m *Metrics) RecordPrepare(outcome string) {
	m.preparesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordExecution(outcome string) {
	m.executionsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveAnalysisDuration(seconds float64) {
	m.analysisDuration.Observe(seconds)
}

func (m *Metrics) RecordDeadLetter() {
	m.deadLettersTotal.Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
