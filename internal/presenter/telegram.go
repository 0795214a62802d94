package presenter

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"afterschool/internal/watcher"
)

// TelegramConfig points the telegram driver at a chat.
type TelegramConfig struct {
	Token    string
	ChatID   int64
	ThreadID int
	// APIURL overrides the Bot API endpoint (tests, self-hosted servers).
	APIURL string
}

// Telegram mirrors notifications to a Telegram chat.
type Telegram struct {
	bot      *tele.Bot
	chat     *tele.Chat
	threadID int
}

func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat_id is empty")
	}
	b, err := tele.NewBot(tele.Settings{
		URL:     cfg.APIURL,
		Token:   cfg.Token,
		Offline: true,
		Client:  &http.Client{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, err
	}
	return &Telegram{bot: b, chat: &tele.Chat{ID: cfg.ChatID}, threadID: cfg.ThreadID}, nil
}

func (t *Telegram) Name() string { return "telegram" }
func (t *Telegram) Close() error { return nil }

// Present sends the formatted text. telebot has no context support, so ctx is
// only checked before the request.
func (t *Telegram) Present(ctx context.Context, p watcher.Presentation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	text := FormatText(p)
	if p.Channel != "" {
		text += "\n#" + hashtag(p.Channel)
	}
	_, err := t.bot.Send(t.chat, text, &tele.SendOptions{
		ThreadID:              t.threadID,
		DisableWebPagePreview: true,
	})
	return err
}

func hashtag(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '.', '/':
			return '_'
		}
		return r
	}, s)
}
