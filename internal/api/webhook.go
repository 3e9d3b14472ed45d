package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/abelzeko/flood-alert/internal/entities"
)

// WebhookNotifier posts the alert as JSON to an arbitrary HTTP endpoint
type WebhookNotifier struct {
	url    string
	client *http.Client
	retry  RetryPolicy
}

// webhookPayload carries the text plus the readings that were available
type webhookPayload struct {
	Message        string   `json:"message"`
	Severity       string   `json:"severity,omitempty"`
	Degraded       bool     `json:"degraded"`
	WaterLevel     *float64 `json:"water_level,omitempty"`
	BankLevel      *float64 `json:"bank_level,omitempty"`
	DistanceToBank *float64 `json:"distance_to_bank,omitempty"`
	Discharge      *float64 `json:"discharge,omitempty"`
}

// NewWebhookNotifier creates a new webhook notifier
func NewWebhookNotifier(url string, timeout time.Duration, retry RetryPolicy) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
		retry:  retry,
	}
}

func newWebhookPayload(n entities.Notification) webhookPayload {
	p := webhookPayload{Message: n.Text, Degraded: n.Degraded}
	if !n.Degraded {
		p.Severity = n.Tier.String()
	}
	if g := n.Gauge; g != nil {
		level, bank, distance := g.WaterLevelMeters, g.BankLevelMeters, g.DistanceToBank()
		p.WaterLevel, p.BankLevel, p.DistanceToBank = &level, &bank, &distance
	}
	if d := n.Discharge; d != nil {
		rate := d.CubicMetersPerSecond
		p.Discharge = &rate
	}
	return p
}

// Notify posts the payload, retrying only when the endpoint rate limits
func (w *WebhookNotifier) Notify(ctx context.Context, n entities.Notification) error {
	const op = "webhook.post"
	body, err := json.Marshal(newWebhookPayload(n))
	if err != nil {
		return entities.NewError(entities.KindUnknown, op, err)
	}

	err = w.retry.run(ctx, op, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
		if err != nil {
			return entities.NewError(entities.KindUnknown, op, fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := w.client.Do(req)
		if err != nil {
			return classifyTransport(op, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return classifyStatus(op, resp)
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Printf("Webhook notification delivered to %s", w.url)
	return nil
}
