package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/abelzeko/flood-alert/internal/entities"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramOptions configures a TelegramNotifier
type TelegramOptions struct {
	Token    string
	ChatID   int64
	Endpoint string // Bot API URL pattern with two %s for token and method; empty uses the public API
	Timeout  time.Duration
	Retry    RetryPolicy
}

// TelegramNotifier sends the alert text to a single Telegram chat.
// The bot is authorized on first use, so a bad token or an outage surfaces as a dispatch error.
type TelegramNotifier struct {
	opts   TelegramOptions
	client *http.Client

	mu  sync.Mutex
	bot *tgbotapi.BotAPI
}

// NewTelegramNotifier creates a new Telegram notifier
func NewTelegramNotifier(opts TelegramOptions) *TelegramNotifier {
	if opts.Endpoint == "" {
		opts.Endpoint = tgbotapi.APIEndpoint
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &TelegramNotifier{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
	}
}

// connect authorizes the bot once and reuses it afterwards
func (t *TelegramNotifier) connect() (*tgbotapi.BotAPI, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.bot != nil {
		return t.bot, nil
	}

	bot, err := tgbotapi.NewBotAPIWithClient(t.opts.Token, t.opts.Endpoint, t.client)
	if err != nil {
		var apiErr *tgbotapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusUnauthorized {
			return nil, entities.NewError(entities.KindConfigMissing, "telegram.connect", err)
		}
		return nil, entities.NewError(entities.KindNetwork, "telegram.connect", err)
	}
	log.Printf("Authorized on Telegram account %s", bot.Self.UserName)
	t.bot = bot
	return bot, nil
}

// Notify sends the text as a plain message
func (t *TelegramNotifier) Notify(ctx context.Context, n entities.Notification) error {
	const op = "telegram.send"
	bot, err := t.connect()
	if err != nil {
		log.Printf("Telegram bot could not be authorized: %v", err)
		return err
	}
	msg := tgbotapi.NewMessage(t.opts.ChatID, n.Text)

	err = t.opts.Retry.run(ctx, op, func() error {
		if _, err := bot.Send(msg); err != nil {
			var apiErr *tgbotapi.Error
			if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
				return entities.NewError(entities.KindRateLimited, op, err)
			}
			return entities.NewError(entities.KindNetwork, op, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Printf("Telegram message sent to chat %d", t.opts.ChatID)
	return nil
}
