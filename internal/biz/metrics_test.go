package biz

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"FailoverGuard/internal/model"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailoverMetrics_ObserveTick(t *testing.T) {
	m := NewFailoverMetrics()

	state := model.FailoverState{ActiveReplica: model.RoleSecondary, PrimaryFailureCount: 4}
	m.observeTick(state,
		model.ProbeResult{Role: model.RolePrimary, Healthy: false, Latency: 5 * time.Second},
		model.ProbeResult{Role: model.RoleSecondary, Healthy: true, Latency: 2 * time.Millisecond},
	)

	assert.Equal(t, float64(0), testutil.ToFloat64(m.ActiveReplica.WithLabelValues("primary")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ActiveReplica.WithLabelValues("secondary")))
	assert.Equal(t, float64(4), testutil.ToFloat64(m.FailureCount.WithLabelValues("primary")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.ReplicaHealthy.WithLabelValues("primary")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ReplicaHealthy.WithLabelValues("secondary")))

	count, err := testutil.GatherAndCount(m.Registry(), "failoverguard_probe_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestFailoverMetrics_Handler(t *testing.T) {
	m := NewFailoverMetrics()
	m.Switches.WithLabelValues("primary", "secondary").Inc()

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `failoverguard_switches_total{from="primary",to="secondary"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestAlertThrottle(t *testing.T) {
	now := time.Now()

	th := newAlertThrottle(time.Hour)
	assert.True(t, th.allow("both_down", now))
	assert.False(t, th.allow("both_down", now))
	assert.True(t, th.allow("other", now))

	th.reset("both_down")
	assert.True(t, th.allow("both_down", now))

	disabled := newAlertThrottle(0)
	assert.True(t, disabled.allow("both_down", now))
	assert.True(t, disabled.allow("both_down", now))
	disabled.reset("both_down")
}

func TestAlertThrottle_WindowFollowsCallerClock(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	th := newAlertThrottle(15 * time.Minute)

	assert.True(t, th.allow("both_down", t0))
	assert.False(t, th.allow("both_down", t0.Add(14*time.Minute)))
	assert.True(t, th.allow("both_down", t0.Add(15*time.Minute)))
	assert.False(t, th.allow("both_down", t0.Add(20*time.Minute)))
	assert.True(t, th.allow("both_down", t0.Add(31*time.Minute)))
}
