package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the resolution cascade.
type Metrics struct {
	// Resolutions by outcome and tier
	Resolutions *prometheus.CounterVec

	// InterpreterSkipped counts requests that bypassed the interpreter
	// because its circuit was open
	InterpreterSkipped prometheus.Counter

	Duration prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Resolutions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "askdata_resolutions_total",
			Help: "Resolved questions by outcome and tier",
		}, []string{"outcome", "tier"}),

		InterpreterSkipped: f.NewCounter(prometheus.CounterOpts{
			Name: "askdata_interpreter_skipped_total",
			Help: "Requests that skipped the interpreter tier while its circuit was open",
		}),

		Duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "askdata_resolution_duration_seconds",
			Help:    "End-to-end resolution latency",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) ObserveResolution(outcome, tier string, d time.Duration) {
	if m == nil {
		return
	}
	m.Resolutions.WithLabelValues(outcome, tier).Inc()
	m.Duration.Observe(d.Seconds())
}

func (m *Metrics) IncrementInterpreterSkipped() {
	if m != nil {
		m.InterpreterSkipped.Inc()
	}
}
