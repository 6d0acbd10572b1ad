package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"maxgram/internal/metrics"
	"maxgram/internal/state"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	pollTimeoutSeconds = 30
	pollRetryDelay     = 3 * time.Second
)

// update mirrors the slice of a getUpdates result the command loop needs.
// Decoded by hand so message_thread_id is available for topic replies.
type update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *updateMessage `json:"message"`
	EditedMessage *updateMessage `json:"edited_message"`
}

type updateMessage struct {
	Text            string `json:"text"`
	MessageThreadID int64  `json:"message_thread_id"`
	Chat            struct {
		ID   int64  `json:"id"`
		Type string `json:"type"`
	} `json:"chat"`
	From struct {
		ID int64 `json:"id"`
	} `json:"from"`
}

// CommandLoopConfig configures the admin command poller.
type CommandLoopConfig struct {
	API     API
	Store   *state.Store
	AdminID int64 // 0 = accept commands from anyone
	Logger  *slog.Logger
}

// CommandLoop long-polls Telegram for administrative commands: /pause,
// /resume, /status, /chats. It is a side channel next to the relay and only
// shares the state store with it.
type CommandLoop struct {
	api     API
	store   *state.Store
	adminID int64
	logger  *slog.Logger
}

func NewCommandLoop(cfg CommandLoopConfig) *CommandLoop {
	return &CommandLoop{
		api:     cfg.API,
		store:   cfg.Store,
		adminID: cfg.AdminID,
		logger:  cfg.Logger,
	}
}

// Run polls until the context is cancelled. The offset only advances past
// updates that were actually processed, so a crash re-delivers rather than
// loses commands.
func (l *CommandLoop) Run(ctx context.Context) {
	l.logger.Info("command loop started")
	var offset int64
	for {
		if ctx.Err() != nil {
			return
		}

		params := make(tgbotapi.Params)
		params.AddNonZero("timeout", pollTimeoutSeconds)
		params.AddNonZero64("offset", offset)

		resp, err := l.api.MakeRequest("getUpdates", params)
		if err != nil {
			l.logger.Warn("getUpdates failed", "err", err)
			if !sleepCtx(ctx, pollRetryDelay) {
				return
			}
			continue
		}

		var updates []update
		if err := json.Unmarshal(resp.Result, &updates); err != nil {
			l.logger.Warn("getUpdates decode failed", "err", err)
			continue
		}

		for _, u := range updates {
			offset = u.UpdateID + 1
			l.handleUpdate(ctx, u)
		}
	}
}

func (l *CommandLoop) handleUpdate(ctx context.Context, u update) {
	msg := u.Message
	if msg == nil {
		msg = u.EditedMessage
	}
	if msg == nil || msg.Chat.ID == 0 {
		return
	}
	switch msg.Chat.Type {
	case "private", "group", "supergroup":
	default:
		return
	}
	if l.adminID != 0 && msg.From.ID != l.adminID {
		return
	}

	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, "/") {
		return
	}
	cmd := strings.ToLower(strings.Fields(text)[0])
	// Strip the @botname suffix used in groups.
	cmd, _, _ = strings.Cut(cmd, "@")

	switch cmd {
	case "/pause":
		if err := l.store.SetForwardingEnabled(ctx, false); err != nil {
			l.logger.Warn("pause failed", "err", err)
		}
		l.reply(msg, "⏸ Пересылка сообщений остановлена. Используйте /resume для запуска.")
	case "/resume":
		if err := l.store.SetForwardingEnabled(ctx, true); err != nil {
			l.logger.Warn("resume failed", "err", err)
		}
		l.reply(msg, "▶️ Пересылка сообщений возобновлена.")
	case "/status":
		l.reply(msg, l.statusText(ctx))
	case "/chats":
		l.reply(msg, l.chatsText(ctx))
	default:
		// Unrecognized commands are ignored on purpose.
	}
}

func (l *CommandLoop) statusText(ctx context.Context) string {
	forwarding := "🔴 ВЫКЛЮЧЕНА"
	if l.store.ForwardingEnabled(ctx) {
		forwarding = "🟢 включена"
	}
	var sb strings.Builder
	sb.WriteString("<b>✅ Статус работы:</b>\n\n")
	sb.WriteString("🤖 Бот включен\n")
	sb.WriteString("⏸️ Пересылка: " + forwarding + "\n")
	sb.WriteString(fmt.Sprintf("⏱ Аптайм: %s\n", metrics.Collector.Uptime().Round(time.Second)))
	for _, sample := range metrics.Collector.Snapshot() {
		sb.WriteString(fmt.Sprintf("<code>%s</code>: %d\n", sample.Name, sample.Value))
	}
	return sb.String()
}

func (l *CommandLoop) chatsText(ctx context.Context) string {
	chats := l.store.ChatTitles(ctx)
	if len(chats) == 0 {
		return "<b>📋 Отслеживаемые чаты:</b>\n\nНет активных чатов"
	}
	var lines []string
	for _, c := range chats {
		lines = append(lines, fmt.Sprintf("• <b>%s</b>\n   ID: <code>%d</code>", c.Title, c.ID))
	}
	return fmt.Sprintf("<b>📋 Отслеживаемые чаты (%d):</b>\n\n%s", len(chats), strings.Join(lines, "\n"))
}

// reply answers in the chat (and topic) the command came from.
func (l *CommandLoop) reply(msg *updateMessage, text string) {
	params := make(tgbotapi.Params)
	params.AddNonZero64("chat_id", msg.Chat.ID)
	params.AddNonZero64("message_thread_id", msg.MessageThreadID)
	params["text"] = text
	params["parse_mode"] = "HTML"
	if _, err := l.api.MakeRequest("sendMessage", params); err != nil {
		l.logger.Warn("command reply failed", "err", err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
