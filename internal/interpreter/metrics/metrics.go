package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for interpreter calls.
type Metrics struct {
	// Attempts by model and result: "ok" or an error category
	Attempts *prometheus.CounterVec

	Downgrades prometheus.Counter
	Latency    *prometheus.HistogramVec
	InFlight   prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Attempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "askdata_interpreter_attempts_total",
			Help: "Interpreter HTTP attempts by model and result",
		}, []string{"model", "result"}),

		Downgrades: f.NewCounter(prometheus.CounterOpts{
			Name: "askdata_interpreter_downgrades_total",
			Help: "Calls moved to the secondary model after a rate limit",
		}),

		Latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "askdata_interpreter_attempt_duration_seconds",
			Help:    "Duration of interpreter HTTP attempts",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 30},
		}, []string{"model"}),

		InFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "askdata_interpreter_in_flight",
			Help: "Interpreter calls currently holding a concurrency slot",
		}),
	}
}

func (m *Metrics) ObserveAttempt(model, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.Attempts.WithLabelValues(model, result).Inc()
	m.Latency.WithLabelValues(model).Observe(d.Seconds())
}

func (m *Metrics) IncrementDowngrade() {
	if m != nil {
		m.Downgrades.Inc()
	}
}

func (m *Metrics) AddInFlight(delta float64) {
	if m != nil {
		m.InFlight.Add(delta)
	}
}
