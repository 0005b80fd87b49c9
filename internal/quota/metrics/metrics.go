package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the quota governor.
type Metrics struct {
	// Decisions by identity kind and result: "allowed", "denied", "unbounded"
	Decisions *prometheus.CounterVec

	Rollovers prometheus.Counter
}

// New registers the quota metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "askdata_quota_decisions_total",
			Help: "Quota decisions by identity kind and result",
		}, []string{"kind", "result"}),

		Rollovers: f.NewCounter(prometheus.CounterOpts{
			Name: "askdata_quota_rollovers_total",
			Help: "Daily counters reset on the first request of a new day",
		}),
	}
}

// IncrementDecision records a decision.
func (m *Metrics) IncrementDecision(kind, result string) {
	if m != nil {
		m.Decisions.WithLabelValues(kind, result).Inc()
	}
}

// IncrementRollover records a daily reset.
func (m *Metrics) IncrementRollover() {
	if m != nil {
		m.Rollovers.Inc()
	}
}
