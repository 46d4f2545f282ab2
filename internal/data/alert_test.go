package data

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"FailoverGuard/internal/conf"
	"FailoverGuard/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAlert() model.AlertEvent {
	return model.AlertEvent{
		ID:            "8d2f7c1e-0000-4000-8000-000000000001",
		Type:          model.AlertFailover,
		Severity:      model.SeverityCritical,
		Message:       "switched active replica from primary to secondary",
		ActiveReplica: model.RoleSecondary,
		PrimaryStatus: model.ReplicaStatus{ID: "db-a", Region: "eu-west-1", Healthy: false, ErrorKind: "timeout", FailureCount: 3},
		SecondaryStatus: model.ReplicaStatus{
			ID: "db-b", Region: "eu-central-1", Healthy: true,
		},
		OccurredAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestWebhookAlertDispatcher_Dispatch(t *testing.T) {
	var received model.AlertEvent
	var headers http.Header

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	d, err := NewAlertDispatcher(&conf.Alert{WebhookURL: server.URL, Timeout: time.Second}, log.DefaultLogger)
	require.NoError(t, err)
	require.IsType(t, &WebhookAlertDispatcher{}, d)

	require.NoError(t, d.Dispatch(context.Background(), sampleAlert()))

	assert.Equal(t, "application/json", headers.Get("Content-Type"))
	assert.Equal(t, "failover", headers.Get("X-Alert-Type"))
	assert.Equal(t, model.AlertFailover, received.Type)
	assert.Equal(t, 3, received.PrimaryStatus.FailureCount)
	assert.Equal(t, "eu-central-1", received.SecondaryStatus.Region)
}

func TestWebhookAlertDispatcher_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	d := NewWebhookAlertDispatcher(server.URL, server.Client(), log.DefaultLogger)
	err := d.Dispatch(context.Background(), sampleAlert())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestWebhookAlertDispatcher_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	d, err := NewAlertDispatcher(&conf.Alert{WebhookURL: server.URL, Timeout: 50 * time.Millisecond}, log.DefaultLogger)
	require.NoError(t, err)

	start := time.Now()
	assert.Error(t, d.Dispatch(context.Background(), sampleAlert()))
	assert.Less(t, time.Since(start), time.Second)
}

func TestNewAlertDispatcher_Fallbacks(t *testing.T) {
	d, err := NewAlertDispatcher(&conf.Alert{}, log.DefaultLogger)
	require.NoError(t, err)
	assert.IsType(t, &LogAlertDispatcher{}, d)
	assert.NoError(t, d.Dispatch(context.Background(), sampleAlert()))

	_, err = NewAlertDispatcher(&conf.Alert{WebhookURL: "http://hooks.internal/x", ProxyURL: "ftp://proxy"}, log.DefaultLogger)
	assert.Error(t, err)
}
