// Package api delivers composed flood alerts to external messaging services
package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/abelzeko/flood-alert/internal/config"
	"github.com/abelzeko/flood-alert/internal/entities"
	"github.com/cenkalti/backoff/v4"
)

// Notifier delivers one notification to its transport
type Notifier interface {
	Notify(ctx context.Context, n entities.Notification) error
}

// RetryPolicy controls how rate-limited deliveries are retried. Other failures are not retried.
type RetryPolicy struct {
	MaxRetries     int
	InitialBackoff time.Duration
}

func (p RetryPolicy) newBackOff(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.MaxRetries)), ctx)
}

// run calls send until it succeeds, fails with a non-retryable kind, or the retries run out
func (p RetryPolicy) run(ctx context.Context, op string, send func() error) error {
	attempt := func() error {
		err := send()
		if err == nil || entities.KindOf(err) == entities.KindRateLimited {
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, wait time.Duration) {
		log.Printf("%s rate limited, retrying in %s: %v", op, wait, err)
	}
	return backoff.RetryNotify(attempt, p.newBackOff(ctx), notify)
}

// classifyStatus maps a non-2xx response to an error kind
func classifyStatus(op string, resp *http.Response) error {
	if resp.StatusCode == http.StatusTooManyRequests {
		return entities.Errorf(entities.KindRateLimited, op, "status %d", resp.StatusCode)
	}
	return entities.Errorf(entities.KindNetwork, op, "unexpected status code: %d %s", resp.StatusCode, resp.Status)
}

// classifyTransport maps an http.Client error to an error kind
func classifyTransport(op string, err error) error {
	var timeout interface{ Timeout() bool }
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &timeout) && timeout.Timeout()) {
		return entities.NewError(entities.KindTimeout, op, err)
	}
	return entities.NewError(entities.KindNetwork, op, err)
}

// MultiNotifier fans a notification out to every transport and joins their errors
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, n entities.Notification) error {
	var errs []error
	for _, notifier := range m {
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NopNotifier is used when no transport is configured. It only logs.
type NopNotifier struct{}

func (NopNotifier) Notify(_ context.Context, _ entities.Notification) error {
	log.Println("Warning: no notification transport configured, message was not sent")
	return entities.Errorf(entities.KindConfigMissing, "notify", "no transport configured")
}

// NewNotifierFromConfig builds a notifier for every transport that has credentials.
// Transports without credentials are skipped with a warning. Nothing here touches the network.
func NewNotifierFromConfig(cfg config.NotifyConfig) Notifier {
	retry := RetryPolicy{MaxRetries: cfg.MaxRetries, InitialBackoff: cfg.InitialBackoff}
	var notifiers MultiNotifier

	if cfg.LineToken != "" {
		notifiers = append(notifiers, NewLineNotifier(LineOptions{
			Token:   cfg.LineToken,
			Mode:    cfg.LineMode,
			To:      cfg.LineTo,
			APIBase: cfg.LineAPIBase,
			Timeout: cfg.Timeout,
			Retry:   retry,
		}))
	} else {
		log.Println("Warning: LINE_CHANNEL_ACCESS_TOKEN is not set, LINE delivery disabled")
	}

	if cfg.WebhookURL != "" {
		notifiers = append(notifiers, NewWebhookNotifier(cfg.WebhookURL, cfg.Timeout, retry))
	} else {
		log.Println("WEBHOOK_URL is not set, webhook delivery disabled")
	}

	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		notifiers = append(notifiers, NewTelegramNotifier(TelegramOptions{
			Token:    cfg.TelegramToken,
			ChatID:   cfg.TelegramChatID,
			Endpoint: cfg.TelegramAPIEndpoint,
			Timeout:  cfg.Timeout,
			Retry:    retry,
		}))
	} else {
		log.Println("TELEGRAM_BOT_TOKEN or TELEGRAM_CHAT_ID is not set, Telegram delivery disabled")
	}

	switch len(notifiers) {
	case 0:
		return NopNotifier{}
	case 1:
		return notifiers[0]
	default:
		return notifiers
	}
}
