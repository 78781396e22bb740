package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecisionMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDecisionMetrics(reg)

	m.ObserveDecision("rules", "fallback", "assigned", 20*time.Millisecond)
	m.ObserveDecision("rules", "fallback", "assigned", 10*time.Millisecond)
	m.ObserveDecision("catalog", "", "unassigned", time.Millisecond)
	m.IncNotificationFailure()

	mfs, err := reg.Gather()
	require.NoError(t, err)

	v, err := counterValue(mfs, "dispatch_decisions_total", map[string]string{"mode": "rules", "path": "fallback", "outcome": "assigned"})
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)

	v, err = counterValue(mfs, "dispatch_decisions_total", map[string]string{"mode": "catalog", "path": "unknown", "outcome": "unassigned"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)

	v, err = counterValue(mfs, "dispatch_notifications_failed_total", nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)

	mf := findFamily(mfs, "dispatch_decision_duration_seconds")
	require.NotNil(t, mf)
	var count uint64
	for _, metric := range mf.GetMetric() {
		count += metric.GetHistogram().GetSampleCount()
	}
	assert.Equal(t, uint64(3), count)
}

func TestNilDecisionMetricsIsNoop(t *testing.T) {
	var m *DecisionMetrics
	assert.NotPanics(t, func() {
		m.ObserveDecision("rules", "rule", "assigned", time.Second)
		m.IncNotificationFailure()
	})
	assert.NotPanics(t, func() {
		NewDecisionMetrics(nil).ObserveDecision("rules", "rule", "assigned", time.Second)
	})
}

func findFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func counterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q has no series %v", name, labels)
}

func matchLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	found := 0
	for _, p := range pairs {
		if v, ok := want[p.GetName()]; ok {
			if v != p.GetValue() {
				return false
			}
			found++
		}
	}
	return found == len(want)
}
