package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrackCycle(t *testing.T) {
	m := New()

	m.TrackCycle(false)(time.Second, true)
	m.TrackCycle(true)(time.Second, false)
	m.TrackCycle(true)(time.Second, false)

	assert.InDelta(t, 1, testutil.ToFloat64(m.CycleRunsTotal.WithLabelValues("processed")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.CycleRunsTotal.WithLabelValues("aborted")), 0)
	assert.Equal(t, 2, testutil.CollectAndCount(m.CycleDuration))
}

func TestRecorders(t *testing.T) {
	m := New()

	m.RecordStepItem("extension", "applied")
	m.RecordStepItem("extension", "applied")
	m.RecordTransition("archive", "failed")
	m.RecordExceptionReport("NO_ONE_MONTH_LEASE_TERM")
	m.RecordHTTPRequest("POST", "/tenants/:tenantId/cycles", "202", 10*time.Millisecond)

	assert.InDelta(t, 2, testutil.ToFloat64(m.StepItemsTotal.WithLabelValues("extension", "applied")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.TransitionsTotal.WithLabelValues("archive", "failed")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ExceptionReports.WithLabelValues("NO_ONE_MONTH_LEASE_TERM")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/tenants/:tenantId/cycles", "202")), 0)
}

func TestNew_IndependentRegistries(t *testing.T) {
	first := New()
	second := New()

	first.RecordTransition("archive", "applied")

	assert.InDelta(t, 0, testutil.ToFloat64(second.TransitionsTotal.WithLabelValues("archive", "applied")), 0)
	assert.NotSame(t, first.Registry(), second.Registry())
}
