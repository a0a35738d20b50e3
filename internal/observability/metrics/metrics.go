package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for booking action flows.
type BookingMetrics struct {
	actionsTotal     *prometheus.CounterVec
	feedCheckLatency *prometheus.HistogramVec
	syncFailures     prometheus.Counter
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		actionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cosmobot",
			Subsystem: "booking",
			Name:      "actions_total",
			Help:      "Total booking actions processed",
		}, []string{"action", "outcome"}),
		feedCheckLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cosmobot",
			Subsystem: "booking",
			Name:      "feed_check_latency_seconds",
			Help:      "Latency of availability feed checks",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		syncFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cosmobot",
			Subsystem: "booking",
			Name:      "feed_sync_failures_total",
			Help:      "Post-commit ledger writes that fell back to the retry queue",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.actionsTotal, m.feedCheckLatency, m.syncFailures)
	return m
}

func (m *BookingMetrics) ObserveAction(action, outcome string) {
	if m == nil {
		return
	}
	m.actionsTotal.WithLabelValues(action, outcome).Inc()
}

func (m *BookingMetrics) ObserveFeedCheck(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.feedCheckLatency.WithLabelValues(operation).Observe(seconds)
}

func (m *BookingMetrics) ObserveSyncFallback() {
	if m == nil {
		return
	}
	m.syncFailures.Inc()
}
