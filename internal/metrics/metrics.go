package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all Prometheus metrics for EdgeGate.
type Registry struct {
	// Evaluations counts pipeline verdicts by outcome ("approved" or the
	// rejection reason code).
	Evaluations *prometheus.CounterVec

	// SignalScores observes every computed signal score.
	SignalScores prometheus.Histogram

	// ArtifactWrites counts artifact persistence attempts by result.
	ArtifactWrites *prometheus.CounterVec

	// QuoteBreakerState reports the quote provider breaker state
	// (0=closed, 1=half-open, 2=open).
	QuoteBreakerState prometheus.Gauge

	registry *prometheus.Registry
}

// NewRegistry creates a registry with all EdgeGate metrics registered.
func NewRegistry() *Registry {
	r := &Registry{
		Evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edgegate_evaluations_total",
				Help: "Total pipeline evaluations by outcome",
			},
			[]string{"outcome"},
		),
		SignalScores: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "edgegate_signal_score",
				Help:    "Distribution of computed signal scores",
				Buckets: []float64{10, 20, 30, 40, 50, 55, 65, 75, 80, 90, 100},
			},
		),
		ArtifactWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edgegate_artifact_writes_total",
				Help: "Artifact persistence attempts by result",
			},
			[]string{"result"},
		),
		QuoteBreakerState: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "edgegate_quote_breaker_state",
				Help: "Quote provider circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
		),
		registry: prometheus.NewRegistry(),
	}

	r.registry.MustRegister(r.Evaluations, r.SignalScores, r.ArtifactWrites, r.QuoteBreakerState)
	return r
}

// RecordVerdict tracks one pipeline evaluation.
func (r *Registry) RecordVerdict(approved bool, reason string, signalScore int) {
	outcome := "approved"
	if !approved {
		outcome = reason
	}
	r.Evaluations.WithLabelValues(outcome).Inc()
	r.SignalScores.Observe(float64(signalScore))
}

// RecordArtifactWrite tracks one artifact sink call.
func (r *Registry) RecordArtifactWrite(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.ArtifactWrites.WithLabelValues(result).Inc()
}

// Handler returns the /metrics HTTP handler for this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry for tests and custom exporters.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}
