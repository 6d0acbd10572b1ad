// Package telegram delivers normalized MAX payloads through the Telegram
// Bot API and runs the admin command loop.
package telegram

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"maxgram/internal/attach"
	"maxgram/internal/cache"
	"maxgram/internal/domain"
	"maxgram/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	albumSize       = 10
	downloadTimeout = 10 * time.Second
	downloadUA      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// API is the slice of tgbotapi.BotAPI the sender needs. Raw endpoint calls
// keep fields like message_thread_id expressible and make the sender easy to
// fake in tests.
type API interface {
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
	UploadFiles(endpoint string, params tgbotapi.Params, files []tgbotapi.RequestFile) (*tgbotapi.APIResponse, error)
}

// SenderConfig configures the delivery dispatcher.
type SenderConfig struct {
	API        API
	ChatID     int64
	ThreadID   int64 // 0 = no topic routing
	MaxToken   string
	VideoCache *cache.VideoURLCache
	HTTPClient *http.Client // sticker downloads; defaults to a 10s client
	Logger     *slog.Logger
}

// Sender dispatches one outgoing payload per inbound message: photos as
// albums, other media one call each, stickers re-uploaded as binary, and a
// textual fallback for whatever cannot be resolved.
type Sender struct {
	api        API
	chatID     int64
	threadID   int64
	maxToken   string
	videoCache *cache.VideoURLCache
	http       *http.Client
	logger     *slog.Logger
}

func NewSender(cfg SenderConfig) *Sender {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: downloadTimeout}
	}
	if cfg.VideoCache == nil {
		cfg.VideoCache = cache.NewVideoURLCache(cache.DefaultVideoTTL)
	}
	return &Sender{
		api:        cfg.API,
		chatID:     cfg.ChatID,
		threadID:   cfg.ThreadID,
		maxToken:   cfg.MaxToken,
		videoCache: cfg.VideoCache,
		http:       cfg.HTTPClient,
		logger:     cfg.Logger,
	}
}

// resolved pairs a deliverable URL with the attachment it came from.
type resolved struct {
	url string
	raw domain.Attachment
}

// buckets partitions attachments by kind for phase-ordered delivery.
type buckets struct {
	photos    []resolved
	videos    []resolved
	audios    []resolved
	voices    []resolved
	documents []resolved
	stickers  []resolved
	unknown   []domain.Attachment
}

// Deliver sends a caption and its attachments to the destination chat.
// The caption is attached to the earliest possible outgoing unit and sent
// exactly once; each API call is best-effort and a failure never aborts the
// remaining phases.
func (s *Sender) Deliver(ctx context.Context, caption string, attachments []domain.Attachment) {
	if len(attachments) == 0 {
		s.sendText(caption)
		return
	}

	b := s.partition(attachments)

	// Photos go out as albums of up to ten; the caption rides on the first
	// photo of the first album.
	for start := 0; start < len(b.photos); start += albumSize {
		end := start + albumSize
		if end > len(b.photos) {
			end = len(b.photos)
		}
		s.sendAlbum(b.photos[start:end], &caption)
	}

	s.sendEach("sendVideo", "video", b.videos, &caption)
	s.sendEach("sendAudio", "audio", b.audios, &caption)
	s.sendEach("sendVoice", "voice", b.voices, &caption)
	s.sendEach("sendDocument", "document", b.documents, &caption)

	if len(b.stickers) > 0 {
		// Stickers cannot carry a caption; flush it first.
		if caption != "" {
			s.sendText(caption)
			caption = ""
		}
		for _, item := range b.stickers {
			s.sendSticker(ctx, item)
		}
	}

	if len(b.unknown) > 0 {
		labels := make([]string, 0, len(b.unknown))
		for _, att := range b.unknown {
			labels = append(labels, att.Label())
		}
		text := "Не могу отправить вложение без прямой ссылки: " + strings.Join(labels, ", ")
		if caption != "" {
			text = caption + "\n\n" + text
			caption = ""
		}
		s.sendText(text)
	}

	if caption != "" {
		s.sendText(caption)
	}
}

// partition classifies and resolves every attachment. CONTROL entries were
// already converted to text upstream; anything without a deliverable URL
// lands in unknown no matter what it claims to be.
func (s *Sender) partition(attachments []domain.Attachment) buckets {
	var b buckets
	for _, att := range attachments {
		if att.TypeTag() == "CONTROL" {
			continue
		}
		kind := attach.Classify(att)
		url, ok := attach.Resolve(att, s.maxToken)
		if !ok {
			s.logger.Warn("attachment has no deliverable url", "type", att.TypeTag())
			b.unknown = append(b.unknown, att)
			continue
		}
		item := resolved{url: url, raw: att}
		switch kind {
		case attach.KindPhoto:
			b.photos = append(b.photos, item)
		case attach.KindVideo:
			b.videos = append(b.videos, item)
		case attach.KindAudio:
			b.audios = append(b.audios, item)
		case attach.KindVoice:
			b.voices = append(b.voices, item)
		case attach.KindSticker:
			b.stickers = append(b.stickers, item)
		case attach.KindDocument:
			b.documents = append(b.documents, item)
		default:
			b.unknown = append(b.unknown, att)
		}
	}
	return b
}

// inputMediaPhoto is one element of a sendMediaGroup request.
type inputMediaPhoto struct {
	Type      string `json:"type"`
	Media     string `json:"media"`
	Caption   string `json:"caption,omitempty"`
	ParseMode string `json:"parse_mode,omitempty"`
}

func (s *Sender) sendAlbum(photos []resolved, caption *string) {
	media := make([]inputMediaPhoto, 0, len(photos))
	for idx, item := range photos {
		m := inputMediaPhoto{Type: "photo", Media: item.url}
		if idx == 0 && *caption != "" {
			m.Caption = *caption
			m.ParseMode = "HTML"
			*caption = ""
		}
		media = append(media, m)
	}
	encoded, err := json.Marshal(media)
	if err != nil {
		s.logger.Error("media group encode failed", "err", err)
		return
	}

	params := s.baseParams()
	params["media"] = string(encoded)
	s.request("sendMediaGroup", params)
}

// sendEach delivers items one endpoint call at a time, attaching the caption
// to the first call that still has it.
func (s *Sender) sendEach(endpoint, field string, items []resolved, caption *string) {
	for _, item := range items {
		url := item.url
		if field == "video" {
			url = s.freshVideoURL(item)
		}

		params := s.baseParams()
		params[field] = url
		if *caption != "" {
			params["caption"] = *caption
			params["parse_mode"] = "HTML"
			*caption = ""
		}
		s.request(endpoint, params)
	}
}

// freshVideoURL serves a video link from the TTL cache when possible and
// records a newly resolved one. MAX video URLs expire, so a cached fresh
// link beats re-resolving on every send.
func (s *Sender) freshVideoURL(item resolved) string {
	videoID := item.raw.String("id")
	if videoID == "" {
		sum := md5.Sum([]byte(item.url))
		videoID = hex.EncodeToString(sum[:])
	}
	if cached, ok := s.videoCache.GetFresh(videoID); ok {
		return cached
	}
	s.videoCache.Put(videoID, item.url)
	return item.url
}

// sendSticker downloads the sticker (following redirects) and re-uploads it
// as a binary sticker payload.
func (s *Sender) sendSticker(ctx context.Context, item resolved) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.url, nil)
	if err != nil {
		s.logger.Warn("sticker request build failed", "err", err)
		metrics.SendFailures.Inc()
		return
	}
	req.Header.Set("User-Agent", downloadUA)

	resp, err := s.http.Do(req)
	if err != nil {
		s.logger.Warn("sticker download failed", "url", item.url, "err", err)
		metrics.SendFailures.Inc()
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("sticker download rejected", "url", item.url, "status", resp.StatusCode)
		metrics.SendFailures.Inc()
		return
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil || len(data) == 0 {
		s.logger.Warn("sticker body read failed", "url", item.url, "err", err)
		metrics.SendFailures.Inc()
		return
	}

	filename := "sticker.png"
	if strings.Contains(strings.ToLower(resp.Header.Get("Content-Type")), "webp") {
		filename = "sticker.webp"
	}

	files := []tgbotapi.RequestFile{{
		Name: "sticker",
		Data: tgbotapi.FileBytes{Name: filename, Bytes: data},
	}}
	if _, err := s.api.UploadFiles("sendSticker", s.baseParams(), files); err != nil {
		s.logger.Warn("sticker upload failed", "err", err)
		metrics.SendFailures.Inc()
		return
	}
	s.logger.Debug("sticker sent", "bytes", len(data), "file", filename)
}

// sendText sends a plain HTML text message; empty text is a no-op.
func (s *Sender) sendText(text string) {
	if text == "" {
		return
	}
	params := s.baseParams()
	params["text"] = text
	params["parse_mode"] = "HTML"
	s.request("sendMessage", params)
}

// SendText exposes plain text delivery for monitor notifications.
func (s *Sender) SendText(text string) {
	s.sendText(text)
}

func (s *Sender) baseParams() tgbotapi.Params {
	params := make(tgbotapi.Params)
	params.AddNonZero64("chat_id", s.chatID)
	params.AddNonZero64("message_thread_id", s.threadID)
	return params
}

// request fires one API call; a failure is logged and swallowed so the
// remaining phases still run.
func (s *Sender) request(endpoint string, params tgbotapi.Params) {
	resp, err := s.api.MakeRequest(endpoint, params)
	if err != nil {
		desc := err.Error()
		if resp != nil && resp.Description != "" {
			desc = resp.Description
		}
		s.logger.Warn("telegram call failed", "endpoint", endpoint, "err", desc)
		metrics.SendFailures.Inc()
	}
}
