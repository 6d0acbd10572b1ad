package relay

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"maxgram/internal/domain"
)

// teacherName gets a dedicated icon in the caption header.
const teacherName = "Татьяна Петровна"

// htmlEscaper escapes the characters significant to Telegram HTML parse
// mode. Quotes are left alone, matching what the destination accepts in
// text bodies.
var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// EscapeHTML escapes free text before it is embedded into caption markup.
func EscapeHTML(text string) string {
	if text == "" {
		return ""
	}
	return htmlEscaper.Replace(text)
}

// Normalizer builds the outgoing payload for an inbound MAX message:
// caption with forward/reply/control context, the surviving media
// attachments, and the set of detected content types.
type Normalizer struct {
	names  *NameResolver
	logger *slog.Logger
}

func NewNormalizer(names *NameResolver, logger *slog.Logger) *Normalizer {
	return &Normalizer{names: names, logger: logger}
}

// Build produces one OutgoingPayload per inbound message. Forwards replace
// the message's own text and attachments with the original's; replies only
// prepend quoted context.
func (n *Normalizer) Build(ctx context.Context, msg domain.InboundMessage, chatTitle string) domain.OutgoingPayload {
	text := msg.Text
	attachments := msg.Attachments
	var contextLines []string

	if msg.LinkType == domain.LinkForward && msg.Linked != nil {
		text = msg.Linked.Text
		attachments = msg.Linked.Attachments
		author := n.names.Resolve(ctx, msg.Linked.SenderID)
		contextLines = append(contextLines,
			"<blockquote>↩️ Переслано от: <b>"+EscapeHTML(author)+"</b></blockquote>")
	}

	if msg.LinkType == domain.LinkReply && msg.Linked != nil {
		author := n.names.Resolve(ctx, msg.Linked.SenderID)
		replyText := msg.Linked.Text
		if replyText == "" && len(msg.Linked.Attachments) > 0 {
			// No text to quote: show what kind of attachment was replied to.
			tag := msg.Linked.Attachments[0].String("_type")
			if tag == "" {
				tag = "Вложение"
			}
			replyText = "[" + tag + "]"
		}
		line := "<blockquote>↪️ Ответ на сообщение от <b>" + EscapeHTML(author) + "</b>"
		if replyText != "" {
			line += ": " + EscapeHTML(replyText)
		}
		line += "</blockquote>"
		contextLines = append(contextLines, line)
	}

	media, controlNotes := SplitControl(attachments, func(id int64) string {
		return n.names.Resolve(ctx, id)
	})
	if strings.ToUpper(msg.Type) == "CONTROL" && len(controlNotes) == 0 {
		// A control message must never vanish silently.
		controlNotes = append(controlNotes, "Системное сообщение: CONTROL")
	}
	for _, note := range controlNotes {
		if note != "" {
			contextLines = append(contextLines, EscapeHTML(note))
		}
	}

	senderName := msg.Sender.Name
	if senderName == "" {
		senderName = UnknownName
	}
	displayName := "👤 " + senderName
	if senderName == teacherName {
		displayName = "👩‍🏫 " + senderName
	}
	if chatTitle != "" && chatTitle != senderName {
		displayName += " (" + chatTitle + ")"
	}

	parts := []string{"<b>" + EscapeHTML(displayName) + "</b>"}
	parts = append(parts, contextLines...)
	if text != "" {
		parts = append(parts, EscapeHTML(text))
	}
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}

	return domain.OutgoingPayload{
		Caption:     strings.Join(nonEmpty, "\n"),
		Attachments: media,
		Types:       detectTypes(text, media, msg.LinkType, msg.Type),
	}
}

// detectTypes collects the set of content types seen on a message, for
// logging and diagnostics.
func detectTypes(text string, attachments []domain.Attachment, linkType domain.LinkType, msgType string) []string {
	set := make(map[string]struct{})
	if text != "" {
		set["TEXT"] = struct{}{}
	}
	if linkType != domain.LinkNone {
		set[strings.ToUpper(string(linkType))] = struct{}{}
	}
	if msgType != "" {
		set[strings.ToUpper(msgType)] = struct{}{}
	}
	for _, att := range attachments {
		tag := att.TypeTag()
		if tag == "" {
			tag = "UNKNOWN"
		}
		set[tag] = struct{}{}
	}
	types := make([]string, 0, len(set))
	for t := range set {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
