package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DecisionMetrics records assignment decisions and notification failures.
// A nil *DecisionMetrics is a valid no-op recorder.
type DecisionMetrics struct {
	decisions     *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	notifyFailure prometheus.Counter
}

func NewDecisionMetrics(reg prometheus.Registerer) *DecisionMetrics {
	if reg == nil {
		return &DecisionMetrics{}
	}
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_decisions_total",
		Help: "Assignment decisions by mode, resolution path and outcome.",
	}, []string{"mode", "path", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dispatch_decision_duration_seconds",
		Help:    "Time spent producing an assignment decision.",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode"})
	notifyFailure := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_notifications_failed_total",
		Help: "Technician notifications that could not be delivered.",
	})
	reg.MustRegister(decisions, duration, notifyFailure)
	return &DecisionMetrics{
		decisions:     decisions,
		duration:      duration,
		notifyFailure: notifyFailure,
	}
}

func (m *DecisionMetrics) ObserveDecision(mode, path, outcome string, elapsed time.Duration) {
	if m == nil || m.decisions == nil {
		return
	}
	m.decisions.WithLabelValues(normalizeLabel(mode), normalizeLabel(path), normalizeLabel(outcome)).Inc()
	m.duration.WithLabelValues(normalizeLabel(mode)).Observe(elapsed.Seconds())
}

func (m *DecisionMetrics) IncNotificationFailure() {
	if m == nil || m.notifyFailure == nil {
		return
	}
	m.notifyFailure.Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
