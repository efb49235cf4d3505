// Package botapi contains implementations of bot API interfaces.
package botapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/beargentino/marketbot/pkg/botx"
	"github.com/beargentino/marketbot/pkg/logx"
	"github.com/go-pkgz/requester"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/exp/slog"
)

// Telegram is a controller that handles requests from telegram.
type Telegram struct {
	api     *tgbotapi.BotAPI
	updates chan botx.Request
}

// NewTelegram returns a new telegram bot controller.
func NewTelegram(lg *slog.Logger, token string, bufferSize int) (*Telegram, error) {
	rq := requester.New(
		http.Client{Timeout: time.Minute},
		logx.LoggingRoundTripper(lg, logx.RoundTripperOpts{
			Level: slog.LevelDebug,
			// bot token is embedded in the URL path
			MaskURL: func(u string) string {
				return strings.Replace(u, token, "***", 1)
			},
		}),
	)

	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, rq.Client())
	if err != nil {
		return nil, fmt.Errorf("make new api: %w", err)
	}

	stdlibLogger := slog.NewLogLogger(lg.Handler(), slog.LevelWarn)
	stdlibLogger.SetPrefix("telegram-bot-api: ")

	if err = tgbotapi.SetLogger(stdlibLogger); err != nil {
		return nil, fmt.Errorf("set logger: %w", err)
	}

	return &Telegram{
		api:     api,
		updates: make(chan botx.Request, bufferSize),
	}, nil
}

// Username returns the bot's own handle as reported by telegram.
func (b *Telegram) Username() string { return b.api.Self.UserName }

// Run runs telegram bot listener until updates channel is closed.
func (b *Telegram) Run() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	for {
		update, ok := <-updates
		if !ok {
			return
		}

		if update.Message == nil || update.Message.Chat == nil || update.Message.Text == "" {
			continue
		}

		req := botx.Request{
			MessageID: strconv.Itoa(update.Message.MessageID),
			Chat: botx.Chat{
				ID:       strconv.FormatInt(update.Message.Chat.ID, 10),
				Username: update.Message.Chat.UserName,
			},
			Text: update.Message.Text,
		}

		if from := update.Message.From; from != nil {
			req.From = botx.User{
				ID:          strconv.FormatInt(from.ID, 10),
				Username:    from.UserName,
				DisplayName: strings.TrimSpace(from.FirstName + " " + from.LastName),
			}
		}

		b.updates <- req
	}
}

// Stop stops telegram bot listener.
func (b *Telegram) Stop() {
	b.api.StopReceivingUpdates()
	close(b.updates)
}

// Updates returns updates channel.
func (b *Telegram) Updates() <-chan botx.Request {
	return b.updates
}

// SendMessage sends message to telegram user.
func (b *Telegram) SendMessage(ctx context.Context, resp botx.Response) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	msg, err := buildMessage(resp)
	if err != nil {
		return err
	}

	if _, err = b.api.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	return nil
}

// buildMessage translates a response into a telegram message config.
// The target is usually a numeric chat ID, but records created outside
// the add flow may carry an @username instead, which telegram addresses
// through the channel-username field.
func buildMessage(resp botx.Response) (tgbotapi.MessageConfig, error) {
	var msg tgbotapi.MessageConfig

	if strings.HasPrefix(resp.ChatID, "@") {
		msg = tgbotapi.NewMessageToChannel(resp.ChatID, resp.Text)
	} else {
		chatID, err := strconv.ParseInt(resp.ChatID, 10, 64)
		if err != nil {
			return msg, fmt.Errorf("parse chat id: %w", err)
		}
		msg = tgbotapi.NewMessage(chatID, resp.Text)
	}

	msg.DisableWebPagePreview = true

	if resp.ReplyToMessageID != "" {
		var err error
		if msg.ReplyToMessageID, err = strconv.Atoi(resp.ReplyToMessageID); err != nil {
			return msg, fmt.Errorf("parse reply to message id: %w", err)
		}
	}

	return msg, nil
}
