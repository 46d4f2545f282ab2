package data

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"FailoverGuard/internal/conf"
	"FailoverGuard/internal/model"
	"FailoverGuard/pkg/httpclient"
	pkglog "FailoverGuard/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
)

// AlertDispatcher delivers alert events to whoever notifies humans.
type AlertDispatcher interface {
	Dispatch(ctx context.Context, event model.AlertEvent) error
}

// NewAlertDispatcher returns a webhook dispatcher when alert.webhook_url is
// set, otherwise a dispatcher that only logs.
func NewAlertDispatcher(c *conf.Alert, logger log.Logger) (AlertDispatcher, error) {
	if c == nil || c.WebhookURL == "" {
		log.NewHelper(logger).Warn("alert.webhook_url is empty, alerts will only be logged")
		return NewLogAlertDispatcher(logger), nil
	}

	client, err := httpclient.New(c.ProxyURL, c.Timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to build alert HTTP client: %w", err)
	}
	return NewWebhookAlertDispatcher(c.WebhookURL, client, logger), nil
}

// WebhookAlertDispatcher POSTs each event as JSON.
type WebhookAlertDispatcher struct {
	url    string
	client *http.Client
	log    *pkglog.LogHelper
}

// NewWebhookAlertDispatcher creates a dispatcher posting to url with client.
func NewWebhookAlertDispatcher(url string, client *http.Client, logger log.Logger) *WebhookAlertDispatcher {
	return &WebhookAlertDispatcher{
		url:    url,
		client: client,
		log:    pkglog.NewLogHelper(logger),
	}
}

// Dispatch sends event. Any non-2xx response is an error.
func (d *WebhookAlertDispatcher) Dispatch(ctx context.Context, event model.AlertEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build alert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", pkglog.ServiceName)
	req.Header.Set("X-Alert-Type", string(event.Type))
	req.Header.Set("X-Alert-ID", event.ID)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("alert webhook request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("alert webhook returned status %d", resp.StatusCode)
	}

	d.log.Alert("alert delivered", "alert_id", event.ID, "alert_type", string(event.Type), "status", resp.StatusCode)
	return nil
}

// LogAlertDispatcher writes alerts to the log only.
type LogAlertDispatcher struct {
	log *pkglog.LogHelper
}

// NewLogAlertDispatcher creates a log-only dispatcher.
func NewLogAlertDispatcher(logger log.Logger) *LogAlertDispatcher {
	return &LogAlertDispatcher{log: pkglog.NewLogHelper(logger)}
}

// Dispatch logs event and never fails.
func (d *LogAlertDispatcher) Dispatch(_ context.Context, event model.AlertEvent) error {
	d.log.Alert(event.Message,
		"alert_id", event.ID,
		"alert_type", string(event.Type),
		"severity", string(event.Severity),
		"active_replica", string(event.ActiveReplica),
		"primary_healthy", event.PrimaryStatus.Healthy,
		"secondary_healthy", event.SecondaryStatus.Healthy)
	return nil
}
