package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/semmidev/dbdrive/internal/config"
	"github.com/semmidev/dbdrive/internal/domain"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier posts a job summary to one chat.
type TelegramNotifier struct {
	bot           sender
	chatID        int64
	onlyOnFailure bool
}

func NewTelegram(cfg *config.TelegramConfig) (*TelegramNotifier, error) {
	chatID, err := strconv.ParseInt(cfg.ChatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram chat id %q: %w", cfg.ChatID, err)
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return &TelegramNotifier{
		bot:           bot,
		chatID:        chatID,
		onlyOnFailure: cfg.OnlyOnFailure,
	}, nil
}

func (t *TelegramNotifier) Notify(ctx context.Context, result *domain.JobResult) error {
	if t.onlyOnFailure && result.Succeeded() {
		return nil
	}

	msg := tgbotapi.NewMessage(t.chatID, FormatSummary(result))
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram notification: %w", err)
	}
	return nil
}

// NotifyAborted reports a job that stopped before any database was processed.
func (t *TelegramNotifier) NotifyAborted(ctx context.Context, jobErr error) error {
	msg := tgbotapi.NewMessage(t.chatID, fmt.Sprintf("❌ Backup job aborted\n\n%v", jobErr))
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram notification: %w", err)
	}
	return nil
}

// FormatSummary renders a plain-text job report.
func FormatSummary(result *domain.JobResult) string {
	var b strings.Builder

	failed := len(result.Failed())
	if failed == 0 {
		b.WriteString("✅ Backup completed\n\n")
	} else {
		fmt.Fprintf(&b, "❌ Backup finished with %d failure(s)\n\n", failed)
	}

	fmt.Fprintf(&b, "🗄 Engine: %s\n", result.Engine)
	fmt.Fprintf(&b, "🕐 Started: %s\n", result.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "⏱ Duration: %s\n", result.Duration().Round(1e9))
	fmt.Fprintf(&b, "📦 Databases: %d\n\n", len(result.Entries))

	for _, e := range result.Entries {
		if e.Succeeded() {
			fmt.Fprintf(&b, "• %s → %s (%s)\n", e.Database, e.LogicalName, humanize.Bytes(uint64(e.Size)))
			continue
		}
		fmt.Fprintf(&b, "• %s ✗ %s\n", e.Database, e.ErrorMessage())
	}

	return b.String()
}
