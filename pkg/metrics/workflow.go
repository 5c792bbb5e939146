package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WorkflowMetrics records counters for the prescription/order workflow core.
type WorkflowMetrics struct {
	transitions   *prometheus.CounterVec
	conflicts     *prometheus.CounterVec
	notifications *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// NewWorkflowMetrics registers the workflow metrics on the provided registerer.
func NewWorkflowMetrics(reg prometheus.Registerer) *WorkflowMetrics {
	if reg == nil {
		return &WorkflowMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "workflow_transitions_total",
		Help: "Applied status transitions by entity kind and target status.",
	}, []string{"kind", "status"})
	conflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "workflow_transition_conflicts_total",
		Help: "Transitions rejected because the entity was concurrently updated.",
	}, []string{"kind"})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_events_total",
		Help: "Notification events published, by outcome.",
	}, []string{"type", "outcome"})
	httpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
	reg.MustRegister(transitions, conflicts, notifications, httpDuration)
	return &WorkflowMetrics{
		transitions:   transitions,
		conflicts:     conflicts,
		notifications: notifications,
		httpDuration:  httpDuration,
	}
}

// IncTransition counts an applied transition for the given entity kind.
func (m *WorkflowMetrics) IncTransition(kind, status string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(kind), normalizeLabel(status)).Inc()
}

// IncConflict counts a rejected transition for the given entity kind.
func (m *WorkflowMetrics) IncConflict(kind string) {
	if m == nil || m.conflicts == nil {
		return
	}
	m.conflicts.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncNotification counts a published or failed notification event.
func (m *WorkflowMetrics) IncNotification(eventType, outcome string) {
	if m == nil || m.notifications == nil {
		return
	}
	m.notifications.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

// ObserveHTTPRequest records the duration of a completed HTTP request.
func (m *WorkflowMetrics) ObserveHTTPRequest(method, route, status string, duration time.Duration) {
	if m == nil || m.httpDuration == nil {
		return
	}
	m.httpDuration.WithLabelValues(normalizeLabel(method), normalizeLabel(route), normalizeLabel(status)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
