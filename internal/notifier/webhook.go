// Package notifier pushes executed order intents to an operator-configured
// webhook. Delivery is best effort; a dead endpoint never blocks trading.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kyuwon-dev/kisengine/internal/core"
	"go.uber.org/zap"
)

const requestTimeout = 5 * time.Second

// Webhook posts order notifications as JSON to a single URL.
type Webhook struct {
	url     string
	headers map[string]string
	client  *http.Client
	log     *zap.Logger
}

// NewWebhook creates a webhook notifier. Returns nil when url is empty so
// callers can treat the notifier as optional.
func NewWebhook(url string, headers map[string]string, log *zap.Logger) *Webhook {
	if url == "" {
		return nil
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Webhook{
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: requestTimeout},
		log:     log,
	}
}

type orderPayload struct {
	Event     string           `json:"event"`
	CycleID   string           `json:"cycle_id"`
	Timestamp time.Time        `json:"timestamp"`
	Intent    core.OrderIntent `json:"intent"`
}

// NotifyOrder posts a submitted order intent. Errors are logged and swallowed.
func (w *Webhook) NotifyOrder(ctx context.Context, cycleID string, intent core.OrderIntent) {
	if w == nil {
		return
	}

	body, err := json.Marshal(orderPayload{
		Event:     "order_submitted",
		CycleID:   cycleID,
		Timestamp: time.Now(),
		Intent:    intent,
	})
	if err != nil {
		w.log.Error("webhook payload marshal failed", zap.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		w.log.Error("webhook request build failed", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		w.log.Warn("webhook delivery failed", zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		w.log.Warn("webhook delivery rejected",
			zap.Int("status", resp.StatusCode),
			zap.Error(fmt.Errorf("unexpected status %s", resp.Status)))
	}
}
