package alerts

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Compile-time interface guard.
var _ Notifier = (*WebhookNotifier)(nil)

// WebhookConfig holds configuration for webhook notification delivery.
type WebhookConfig struct {
	URL     string            `mapstructure:"url"`
	Secret  string            `mapstructure:"secret"` //nolint:gosec // G101: config field name, not a credential
	Headers map[string]string `mapstructure:"headers"`
	Timeout time.Duration     `mapstructure:"timeout"`
	Retries int               `mapstructure:"retries"`
}

// WebhookNotifier delivers notifications via HTTP POST to a configured URL.
type WebhookNotifier struct {
	client *resty.Client
	cfg    WebhookConfig
}

// NewWebhookNotifier creates a webhook notifier with the given config.
func NewWebhookNotifier(cfg WebhookConfig) *WebhookNotifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "HavenWatch-Webhook/1.0")
	for k, v := range cfg.Headers {
		client.SetHeader(k, v)
	}
	return &WebhookNotifier{client: client, cfg: cfg}
}

// Notify posts the notification to the configured webhook URL.
func (w *WebhookNotifier) Notify(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req := w.client.R().SetContext(ctx).SetBody(body)
	if w.cfg.Secret != "" {
		mac := hmac.New(sha256.New, []byte(w.cfg.Secret))
		mac.Write(body)
		req.SetHeader("X-Signature", hex.EncodeToString(mac.Sum(nil)))
	}

	resp, err := req.Post(w.cfg.URL)
	if err != nil {
		return fmt.Errorf("webhook POST %s: %w", w.cfg.URL, err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook POST %s: status %d", w.cfg.URL, resp.StatusCode())
	}
	return nil
}

// Type returns the notifier type identifier.
func (w *WebhookNotifier) Type() string {
	return "webhook"
}
