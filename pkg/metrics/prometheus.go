package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	runsTotal         *prometheus.CounterVec
	tickersProcessed  *prometheus.CounterVec
	aggregatesWritten prometheus.Counter
	alertTransitions  *prometheus.CounterVec
	activeAlerts      *prometheus.GaugeVec
	errorsTotal       *prometheus.CounterVec
	latency           *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		runsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "buzzradar_runs_total",
				Help: "Total number of scheduled runs by kind and outcome",
			},
			[]string{"kind", "status"},
		),
		tickersProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "buzzradar_tickers_processed_total",
				Help: "Per-ticker processing results within analytics runs",
			},
			[]string{"status"},
		),
		aggregatesWritten: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "buzzradar_aggregates_written_total",
				Help: "Total number of sentiment aggregate rows upserted",
			},
		),
		alertTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "buzzradar_alert_transitions_total",
				Help: "Alert state transitions by rule and action",
			},
			[]string{"rule", "action"},
		),
		activeAlerts: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "buzzradar_active_alerts",
				Help: "Number of currently active alerts per rule",
			},
			[]string{"rule"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "buzzradar_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "buzzradar_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordRun records the outcome of a scheduled run.
func (r *Recorder) RecordRun(kind, status string) {
	r.runsTotal.WithLabelValues(kind, status).Inc()
}

// RecordTicker records a per-ticker result within an analytics run.
func (r *Recorder) RecordTicker(status string) {
	r.tickersProcessed.WithLabelValues(status).Inc()
}

// RecordAggregateWritten counts an upserted aggregate row.
func (r *Recorder) RecordAggregateWritten() {
	r.aggregatesWritten.Inc()
}

// RecordAlertTransition records an alert state transition.
func (r *Recorder) RecordAlertTransition(rule, action string) {
	r.alertTransitions.WithLabelValues(rule, action).Inc()
}

// SetActiveAlerts sets the active alert gauge for a rule.
func (r *Recorder) SetActiveAlerts(rule string, n int) {
	r.activeAlerts.WithLabelValues(rule).Set(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
