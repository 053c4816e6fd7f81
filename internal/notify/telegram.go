// Package notify delivers a rendered agenda to a Telegram chat.
package notify

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// MaxMessageLen is Telegram's limit for a single text message.
const MaxMessageLen = 4096

// API is the part of tgbotapi.BotAPI used here.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Telegram struct {
	api    API
	chatID int64
	logger zerolog.Logger
}

// NewTelegram logs in with token. It contacts Telegram once to check it.
func NewTelegram(token string, chatID int64, logger zerolog.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	logger.Info().Str("bot", api.Self.UserName).Msg("telegram authorized")
	return NewTelegramWithAPI(api, chatID, logger), nil
}

func NewTelegramWithAPI(api API, chatID int64, logger zerolog.Logger) *Telegram {
	return &Telegram{api: api, chatID: chatID, logger: logger}
}

func (t *Telegram) SendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	_, err := t.api.Send(msg)
	return err
}

// Send delivers text to the configured chat, split on line boundaries
// into as many messages as needed.
func (t *Telegram) Send(text string) error {
	chunks := Split(text, MaxMessageLen)
	for i, chunk := range chunks {
		if err := t.SendMessage(t.chatID, chunk); err != nil {
			return fmt.Errorf("send message %d/%d: %w", i+1, len(chunks), err)
		}
	}
	t.logger.Debug().Int64("chat_id", t.chatID).Int("messages", len(chunks)).Msg("agenda sent")
	return nil
}

// Split cuts text into pieces of at most limit bytes, preferring line
// breaks. A single line longer than limit is cut hard.
func Split(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var out []string
	var cur strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		for len(line) > limit {
			if cur.Len() > 0 {
				out = append(out, strings.TrimSuffix(cur.String(), "\n"))
				cur.Reset()
			}
			out = append(out, line[:limit])
			line = line[limit:]
		}
		if cur.Len()+len(line) > limit {
			out = append(out, strings.TrimSuffix(cur.String(), "\n"))
			cur.Reset()
		}
		cur.WriteString(line)
	}
	if cur.Len() > 0 {
		out = append(out, strings.TrimSuffix(cur.String(), "\n"))
	}
	return out
}
