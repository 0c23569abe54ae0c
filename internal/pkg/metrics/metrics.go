// Package metrics holds the engine's Prometheus counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	WorkflowLeave    = "leave"
	WorkflowExpense  = "expense"
	WorkflowSoftware = "software"

	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultError    = "error"
	ResultSent     = "sent"
	ResultFailed   = "failed"
	ResultDropped  = "dropped"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	transitions   *prometheus.CounterVec
	attendance    *prometheus.CounterVec
	importRows    *prometheus.CounterVec
	notifications *prometheus.CounterVec
}

// New registers the counters on registerer, defaulting to the global registry.
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hrms_workflow_transitions_total",
			Help: "Approval workflow transitions by workflow and action.",
		}, []string{"workflow", "action"}),
		attendance: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hrms_attendance_posts_total",
			Help: "Attendance posts by result.",
		}, []string{"result"}),
		importRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hrms_allocation_import_rows_total",
			Help: "Allocation import rows by result.",
		}, []string{"result"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hrms_notifications_total",
			Help: "Notification deliveries by result.",
		}, []string{"result"}),
	}
	registerer.MustRegister(m.transitions, m.attendance, m.importRows, m.notifications)
	return m
}

func (m *Metrics) Transition(workflow, action string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(workflow, action).Inc()
}

func (m *Metrics) AttendancePost(result string) {
	if m == nil {
		return
	}
	m.attendance.WithLabelValues(result).Inc()
}

func (m *Metrics) ImportRow(result string) {
	if m == nil {
		return
	}
	m.importRows.WithLabelValues(result).Inc()
}

func (m *Metrics) Notification(result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(result).Inc()
}
