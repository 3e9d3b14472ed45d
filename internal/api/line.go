package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/abelzeko/flood-alert/internal/config"
	"github.com/abelzeko/flood-alert/internal/entities"
)

const (
	DefaultLineAPIBase = "https://api.line.me"
	lineBroadcastPath  = "/v2/bot/message/broadcast"
	linePushPath       = "/v2/bot/message/push"
)

// LineOptions configures a LineNotifier
type LineOptions struct {
	Token   string
	Mode    string // config.LineModeBroadcast or config.LineModePush
	To      string // recipient for push mode
	APIBase string
	Timeout time.Duration
	Retry   RetryPolicy
}

// LineNotifier sends the alert text through the LINE Messaging API
type LineNotifier struct {
	opts   LineOptions
	client *http.Client
}

type lineMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type linePayload struct {
	To       string        `json:"to,omitempty"`
	Messages []lineMessage `json:"messages"`
}

// NewLineNotifier creates a new LINE notifier
func NewLineNotifier(opts LineOptions) *LineNotifier {
	if opts.APIBase == "" {
		opts.APIBase = DefaultLineAPIBase
	}
	opts.APIBase = strings.TrimRight(opts.APIBase, "/")
	if opts.Mode == "" {
		opts.Mode = config.LineModeBroadcast
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &LineNotifier{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
	}
}

// Notify broadcasts the text, or pushes it to a single recipient in push mode
func (l *LineNotifier) Notify(ctx context.Context, n entities.Notification) error {
	op := "line." + l.opts.Mode
	payload := linePayload{Messages: []lineMessage{{Type: "text", Text: n.Text}}}
	endpoint := l.opts.APIBase + lineBroadcastPath
	if l.opts.Mode == config.LineModePush {
		payload.To = l.opts.To
		endpoint = l.opts.APIBase + linePushPath
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return entities.NewError(entities.KindUnknown, op, err)
	}

	err = l.opts.Retry.run(ctx, op, func() error {
		return l.post(ctx, op, endpoint, body)
	})
	if err != nil {
		return err
	}
	log.Printf("LINE %s message sent successfully", l.opts.Mode)
	return nil
}

func (l *LineNotifier) post(ctx context.Context, op, endpoint string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return entities.NewError(entities.KindUnknown, op, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+l.opts.Token)

	resp, err := l.client.Do(req)
	if err != nil {
		return classifyTransport(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("LINE API returned %s", resp.Status)
		return classifyStatus(op, resp)
	}
	return nil
}
