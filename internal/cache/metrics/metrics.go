package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the response cache.
type Metrics struct {
	// Lookups by result: "hit", "miss", "untrusted"
	Lookups *prometheus.CounterVec

	// Feedback votes by kind
	Feedback *prometheus.CounterVec

	Invalidations prometheus.Counter
	Upserts       prometheus.Counter
}

// New registers the cache metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Lookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "askdata_cache_lookups_total",
			Help: "Cache lookups by result",
		}, []string{"result"}),

		Feedback: f.NewCounterVec(prometheus.CounterOpts{
			Name: "askdata_cache_feedback_total",
			Help: "Feedback votes recorded on cached answers",
		}, []string{"kind"}),

		Invalidations: f.NewCounter(prometheus.CounterOpts{
			Name: "askdata_cache_invalidations_total",
			Help: "Cached answers invalidated by negative feedback",
		}),

		Upserts: f.NewCounter(prometheus.CounterOpts{
			Name: "askdata_cache_upserts_total",
			Help: "Fresh resolutions written to the cache",
		}),
	}
}

// IncrementLookup records a lookup result.
func (m *Metrics) IncrementLookup(result string) {
	if m != nil {
		m.Lookups.WithLabelValues(result).Inc()
	}
}

// IncrementFeedback records a vote and, when it invalidated the entry, the
// invalidation.
func (m *Metrics) IncrementFeedback(kind string, invalidated bool) {
	if m == nil {
		return
	}
	m.Feedback.WithLabelValues(kind).Inc()
	if invalidated {
		m.Invalidations.Inc()
	}
}

// IncrementUpsert records a cache write.
func (m *Metrics) IncrementUpsert() {
	if m != nil {
		m.Upserts.Inc()
	}
}
