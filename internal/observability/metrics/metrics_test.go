package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestBookingMetricsObserveAction(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)

	m.ObserveAction("create", "success")
	m.ObserveAction("create", "success")
	m.ObserveAction("cancel", "conflict")

	if got := testutil.ToFloat64(m.actionsTotal.WithLabelValues("create", "success")); got != 2 {
		t.Errorf("create/success = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.actionsTotal.WithLabelValues("cancel", "conflict")); got != 1 {
		t.Errorf("cancel/conflict = %v, want 1", got)
	}
}

func TestBookingMetricsSyncFallback(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)

	m.ObserveSyncFallback()
	if got := testutil.ToFloat64(m.syncFailures); got != 1 {
		t.Errorf("sync failures = %v, want 1", got)
	}
}

func TestBookingMetricsNilReceiverSafe(t *testing.T) {
	var m *BookingMetrics
	m.ObserveAction("create", "success")
	m.ObserveFeedCheck("snapshot", 0.1)
	m.ObserveSyncFallback()
}
