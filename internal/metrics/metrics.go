// Package metrics holds the Prometheus collectors of the extraction engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Revocation reasons.
const (
	ReasonSingleConcept = "single_concept"
	ReasonClean         = "clean"
)

// Metrics groups the engine collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	Passes       prometheus.Counter
	Inserted     prometheus.Counter
	Revoked      *prometheus.CounterVec
	Runs         *prometheus.CounterVec
	RunDuration  prometheus.Histogram
	PassesPerRun prometheus.Histogram
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Passes: f.NewCounter(prometheus.CounterOpts{
			Name: "hpat_extract_passes_total",
			Help: "Pattern passes executed over all sequences",
		}),
		Inserted: f.NewCounter(prometheus.CounterOpts{
			Name: "hpat_extract_matches_inserted_total",
			Help: "Matches newly stored by the sequence index",
		}),
		Revoked: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hpat_extract_matches_revoked_total",
			Help: "Matches revoked after the fixpoint",
		}, []string{"reason"}),
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hpat_extract_runs_total",
			Help: "Extraction runs by outcome",
		}, []string{"status"}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "hpat_extract_run_duration_seconds",
			Help:    "Wall time of one extraction run",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1, 10},
		}),
		PassesPerRun: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "hpat_extract_passes_per_run",
			Help:    "Passes needed to reach the fixpoint",
			Buckets: []float64{1, 2, 4, 8, 16, 64, 256, 1024},
		}),
	}
}

// Pass records one pass and its insertions.
func (m *Metrics) Pass(inserted int) {
	if m == nil {
		return
	}
	m.Passes.Inc()
	m.Inserted.Add(float64(inserted))
}

// Revoke records revocations for reason.
func (m *Metrics) Revoke(reason string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.Revoked.WithLabelValues(reason).Add(float64(n))
}

// Run records a finished run.
func (m *Metrics) Run(status string, passes int, seconds float64) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(status).Inc()
	m.RunDuration.Observe(seconds)
	m.PassesPerRun.Observe(float64(passes))
}
