package notify

import (
	"context"
	"fmt"
	"log"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/stellarlinkco/dayflow/internal/task"
)

// TelegramBot is the subset of the bot API the notifier uses (allows
// mocking in tests).
type TelegramBot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetSelf() tgbotapi.User
}

type tgBotWrapper struct {
	bot *tgbotapi.BotAPI
}

func (w *tgBotWrapper) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	return w.bot.Send(c)
}

func (w *tgBotWrapper) GetSelf() tgbotapi.User {
	return w.bot.Self
}

// BotFactory creates TelegramBot instances (allows mocking).
type BotFactory func(token string) (TelegramBot, error)

var defaultBotFactory BotFactory = func(token string) (TelegramBot, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &tgBotWrapper{bot: bot}, nil
}

// UserStore resolves user ids to telegram chat ids.
type UserStore interface {
	GetUser(ctx context.Context, id string) (*task.User, error)
}

// Telegram delivers notifications as outbound telegram messages. Users
// without a chat id are skipped silently.
type Telegram struct {
	users UserStore
	bot   TelegramBot
}

func NewTelegram(token string, users UserStore) (*Telegram, error) {
	return NewTelegramWithFactory(token, users, defaultBotFactory)
}

// NewTelegramWithFactory creates a Telegram notifier with a custom bot
// factory (for testing).
func NewTelegramWithFactory(token string, users UserStore, factory BotFactory) (*Telegram, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}
	bot, err := factory(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	log.Printf("[telegram] authorized as @%s", bot.GetSelf().UserName)
	return &Telegram{users: users, bot: bot}, nil
}

func (t *Telegram) Notify(ctx context.Context, userID, message string, kind Kind) error {
	u, err := t.users.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("resolve user %s: %w", userID, err)
	}
	if u.ChatID == "" {
		return nil
	}
	chatID, err := strconv.ParseInt(u.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("parse chat id %q: %w", u.ChatID, err)
	}

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("[%s] %s", kind, message))
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}
