package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveSnapshot("accepted")
	m.ObserveSnapshot("accepted")
	m.ObserveSnapshot("duplicate")
	m.ObserveAlertTriggered("critical")
	m.ObserveAlertSuppressed()
	m.ObserveNotification("email", "success", 20*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SnapshotsTotal.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SnapshotsTotal.WithLabelValues("duplicate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AlertsTriggeredTotal.WithLabelValues("critical")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AlertsSuppressedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("email", "success")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveSnapshot("accepted")
		m.ObserveAlertTriggered("warning")
		m.ObserveAlertSuppressed()
		m.ObserveAlertAcknowledged()
		m.ObserveNotification("x", "failure", time.Second)
		m.ObservePipeline(time.Second)
		m.ObserveNatsMessage("processed")
	})
}
