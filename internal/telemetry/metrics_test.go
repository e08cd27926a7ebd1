package telemetry

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveSweep(t *testing.T) {
	m := NewMetrics("catalog-sync")

	m.ObserveSweep(10*time.Millisecond, SweepCounts{Created: 2, Updated: 1, Removed: 3}, nil)
	m.ObserveSweep(time.Millisecond, SweepCounts{Created: 1}, errors.New("source down"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.sweeps.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sweeps.WithLabelValues(OutcomeError)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.targetChanges.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.targetChanges.WithLabelValues("updated")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.targetChanges.WithLabelValues("removed")))
	assert.Greater(t, testutil.ToFloat64(m.lastSweep), 0.0)
}

func TestTargetsAndEvents(t *testing.T) {
	m := NewMetrics("catalog-sync")

	m.SetTargets(5, 4)
	m.TargetFailure("start")
	m.TargetFailure("start")
	m.Event(OutcomeForwarded, 3)
	m.Event(OutcomeDropped, 0)

	assert.Equal(t, 5.0, testutil.ToFloat64(m.registered))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.started))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.targetFailures.WithLabelValues("start")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.events.WithLabelValues(OutcomeForwarded)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.events.WithLabelValues(OutcomeDropped)))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveSweep(time.Second, SweepCounts{Created: 1}, nil)
		m.TargetFailure("stop")
		m.SetTargets(1, 1)
		m.Event(OutcomeFailed, 1)
	})
	assert.Nil(t, m.Registry())
}

func TestHandler(t *testing.T) {
	m := NewMetrics("catalog-sync")
	m.SetTargets(2, 2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `targetsync_registered_targets{connector="catalog-sync"} 2`), body)
}
