package bot

import (
	"fmt"
	"log"
	"time"

	"tokenpulse/internal/domain"

	tele "gopkg.in/telebot.v3"
)

type sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// TelegramNotifier posts a message to the configured chat when a
// pipeline run reaches a terminal state. The background run has no error
// channel back to the trigger caller, so this is the operator-facing
// outcome surface.
type TelegramNotifier struct {
	bot  sender
	chat tele.ChatID
}

// NewTelegramNotifier creates the notifier, or returns nil (not an
// error) when the token or chat is unset so callers can wire it
// unconditionally.
func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	if token == "" || chatID == 0 {
		log.Println("TELEGRAM_BOT_TOKEN or TELEGRAM_CHAT_ID not set, run notifications disabled")
		return nil, nil
	}

	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})
	go b.Start()

	return &TelegramNotifier{bot: b, chat: tele.ChatID(chatID)}, nil
}

// NotifyRunFinished sends the run summary. Send failures are logged,
// never propagated: notification is best-effort.
func (n *TelegramNotifier) NotifyRunFinished(result domain.RunResult) {
	if _, err := n.bot.Send(n.chat, formatRunMessage(result)); err != nil {
		log.Printf("Failed to send run notification: %v", err)
	}
}

func formatRunMessage(result domain.RunResult) string {
	msg := fmt.Sprintf("Pipeline run: %s\nRecords: %d", result.State, result.RecordCount)
	if result.ArtifactPath != "" {
		msg += "\nChart: published"
	}
	if result.Error != "" {
		msg += "\nError: " + result.Error
	}
	if !result.FinishedAt.IsZero() && !result.StartedAt.IsZero() {
		msg += fmt.Sprintf("\nDuration: %s", result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond))
	}
	return msg
}
