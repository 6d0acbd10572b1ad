package relay

import (
	"context"
	"log/slog"
	"strings"

	"maxgram/internal/cache"
	"maxgram/internal/domain"
	"maxgram/internal/metrics"
	"maxgram/internal/state"
	"maxgram/internal/telegram"
)

// Handler is the per-event entry point of the relay. It gates on the
// forwarding flag, deduplicates, filters to monitored chats, normalizes and
// dispatches. Every error is contained within the message that caused it.
type Handler struct {
	chatIDs    map[int64]bool
	store      *state.Store
	dedup      *cache.DedupSet
	normalizer *Normalizer
	sender     *telegram.Sender
	logger     *slog.Logger
}

// HandlerConfig wires the handler's collaborators.
type HandlerConfig struct {
	ChatIDs    []int64
	Store      *state.Store
	Dedup      *cache.DedupSet
	Normalizer *Normalizer
	Sender     *telegram.Sender
	Logger     *slog.Logger
}

func NewHandler(cfg HandlerConfig) *Handler {
	chatIDs := make(map[int64]bool, len(cfg.ChatIDs))
	for _, id := range cfg.ChatIDs {
		chatIDs[id] = true
	}
	return &Handler{
		chatIDs:    chatIDs,
		store:      cfg.Store,
		dedup:      cfg.Dedup,
		normalizer: cfg.Normalizer,
		sender:     cfg.Sender,
		logger:     cfg.Logger,
	}
}

// HandleMessage processes one inbound MAX event. Invoked from the client's
// read loop; outbound calls run synchronously on that goroutine.
func (h *Handler) HandleMessage(ctx context.Context, msg domain.InboundMessage) {
	if !h.store.ForwardingEnabled(ctx) {
		metrics.MessagesSkipped.Inc()
		return
	}

	h.logger.Info("message received", "chat_id", msg.ChatID, "message_id", msg.ID)

	if h.dedup.Seen(msg.ID) {
		h.logger.Debug("duplicate message skipped", "message_id", msg.ID)
		metrics.MessagesDeduped.Inc()
		return
	}

	if !h.chatIDs[msg.ChatID] || msg.Status == "REMOVED" {
		metrics.MessagesSkipped.Inc()
		return
	}

	chatTitle := h.resolveChatTitle(ctx, msg)

	payload := h.normalizer.Build(ctx, msg, chatTitle)
	if payload.Caption == "" && len(payload.Attachments) == 0 {
		return
	}

	h.logger.Info("forwarding message",
		"message_id", msg.ID,
		"attachments", len(payload.Attachments),
		"types", strings.Join(payload.Types, ","),
	)
	h.sender.Deliver(ctx, payload.Caption, payload.Attachments)
	metrics.MessagesForwarded.Inc()
}

// resolveChatTitle prefers the stored title; a chat seen for the first time
// is recorded under the sender's name. Store failures are non-fatal.
func (h *Handler) resolveChatTitle(ctx context.Context, msg domain.InboundMessage) string {
	if title, ok := h.store.ChatTitle(ctx, msg.ChatID); ok {
		return title
	}
	title := msg.Sender.Name
	if title == "" {
		title = UnknownName
	}
	if err := h.store.SaveChatTitle(ctx, msg.ChatID, title); err != nil {
		h.logger.Warn("chat title save failed", "chat_id", msg.ChatID, "err", err)
	}
	return title
}
