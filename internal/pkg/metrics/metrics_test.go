package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Transition(WorkflowLeave, "approve")
	m.Transition(WorkflowLeave, "approve")
	m.AttendancePost(ResultRejected)
	m.ImportRow(ResultOK)
	m.Notification(ResultDropped)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues(WorkflowLeave, "approve")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.attendance.WithLabelValues(ResultRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.importRows.WithLabelValues(ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues(ResultDropped)))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Transition(WorkflowExpense, "reject")
		m.AttendancePost(ResultOK)
		m.ImportRow(ResultError)
		m.Notification(ResultSent)
	})
}
