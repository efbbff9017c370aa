package notifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// TelegramNotifier sends messages to one chat via the Telegram Bot API.
type TelegramNotifier struct {
	Bot    *tgbotapi.BotAPI
	ChatID int64
	logger zerolog.Logger
}

// NewTelegramNotifier creates a notifier with optional proxy support. It
// checks the token with a getMe call.
func NewTelegramNotifier(botToken, chatID, proxyURL string) (*TelegramNotifier, error) {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	client := &http.Client{
		Timeout:   PollTimeout + 10*time.Second,
		Transport: transport,
	}
	return newTelegramNotifier(botToken, chatID, tgbotapi.APIEndpoint, client)
}

func newTelegramNotifier(botToken, chatID, endpoint string, client *http.Client) (*TelegramNotifier, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("telegram chat id %q: %w", chatID, err)
	}
	bot, err := tgbotapi.NewBotAPIWithClient(botToken, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	logger := log.With().Str("component", "telegram").Logger()
	logger.Info().Str("bot", bot.Self.UserName).Int64("chat_id", id).Msg("telegram bot authorized")
	return &TelegramNotifier{Bot: bot, ChatID: id, logger: logger}, nil
}

// Send sends an HTML message to the configured chat.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	return t.sendTo(ctx, t.ChatID, text)
}

func (t *TelegramNotifier) sendTo(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return backoff.Permanent(err)
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := t.Bot.Send(msg); err != nil {
		var apiErr *tgbotapi.Error
		if errors.As(err, &apiErr) && apiErr.Code >= 400 && apiErr.Code < 500 && apiErr.Code != http.StatusTooManyRequests {
			return backoff.Permanent(fmt.Errorf("telegram API error %d: %s", apiErr.Code, apiErr.Message))
		}
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// SendWithRetry sends a message with exponential backoff retry.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	attempt := 0
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(maxRetries)), ctx)

	err := backoff.RetryNotify(func() error {
		attempt++
		return t.Send(ctx, text)
	}, policy, func(err error, wait time.Duration) {
		t.logger.Warn().Err(err).
			Int("attempt", attempt).
			Int("max_attempts", maxRetries+1).
			Dur("retry_in", wait).
			Msg("telegram send failed")
	})
	if err != nil {
		return fmt.Errorf("send after %d attempts: %w", attempt, err)
	}
	return nil
}
