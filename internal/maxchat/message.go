package maxchat

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"maxgram/internal/domain"
)

// Wire shapes of a gateway message event. Attachments stay raw: their
// structure varies too much to type.
type messageEvent struct {
	Chat struct {
		ID    int64  `json:"id"`
		Title string `json:"title"`
	} `json:"chat"`
	Message wireMessage `json:"message"`
}

type wireMessage struct {
	ID       string           `json:"id"`
	Text     string           `json:"text"`
	Type     string           `json:"type"`
	Status   string           `json:"status"`
	Sender   wireContact      `json:"sender"`
	Attaches []map[string]any `json:"attaches"`
	Link     *struct {
		Type    string `json:"type"`
		Message *struct {
			Text     string           `json:"text"`
			Sender   json.RawMessage  `json:"sender"`
			Attaches []map[string]any `json:"attaches"`
		} `json:"message"`
	} `json:"link"`
}

type wireContact struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Names []struct {
		Name string `json:"name"`
	} `json:"names"`
	Phone string `json:"phone"`
}

func (c wireContact) displayName() string {
	if c.Name != "" {
		return c.Name
	}
	if len(c.Names) > 0 {
		return c.Names[0].Name
	}
	return ""
}

func parseMessageEvent(payload json.RawMessage) (domain.InboundMessage, error) {
	var ev messageEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return domain.InboundMessage{}, err
	}
	if ev.Message.ID == "" {
		return domain.InboundMessage{}, errors.New("message event without id")
	}

	msg := domain.InboundMessage{
		ID:     ev.Message.ID,
		ChatID: ev.Chat.ID,
		Sender: domain.Contact{
			ID:   ev.Message.Sender.ID,
			Name: ev.Message.Sender.displayName(),
		},
		Text:        ev.Message.Text,
		Attachments: toAttachments(ev.Message.Attaches),
		Type:        ev.Message.Type,
		Status:      ev.Message.Status,
	}

	if link := ev.Message.Link; link != nil && link.Message != nil {
		switch strings.ToUpper(link.Type) {
		case "FORWARD":
			msg.LinkType = domain.LinkForward
		case "REPLY":
			msg.LinkType = domain.LinkReply
		}
		if msg.LinkType != domain.LinkNone {
			msg.Linked = &domain.LinkedMessage{
				Text:        link.Message.Text,
				SenderID:    senderID(link.Message.Sender),
				Attachments: toAttachments(link.Message.Attaches),
			}
		}
	}
	return msg, nil
}

// senderID tolerates both shapes the gateway uses: a bare numeric id and an
// embedded contact object.
func senderID(raw json.RawMessage) int64 {
	if len(raw) == 0 {
		return 0
	}
	var id int64
	if err := json.Unmarshal(raw, &id); err == nil {
		return id
	}
	var contact wireContact
	if err := json.Unmarshal(raw, &contact); err == nil {
		return contact.ID
	}
	return 0
}

func toAttachments(raw []map[string]any) []domain.Attachment {
	if len(raw) == 0 {
		return nil
	}
	attachments := make([]domain.Attachment, 0, len(raw))
	for _, m := range raw {
		attachments = append(attachments, domain.Attachment(m))
	}
	return attachments
}

func parseContactInfo(payload json.RawMessage, id int64) (domain.UserInfo, error) {
	var resp struct {
		Contacts []wireContact `json:"contacts"`
	}
	if err := json.Unmarshal(payload, &resp); err != nil {
		return domain.UserInfo{}, err
	}
	for _, contact := range resp.Contacts {
		if contact.ID == id || len(resp.Contacts) == 1 {
			return domain.UserInfo{
				DisplayName: contact.displayName(),
				Phone:       contact.Phone,
				ContactID:   contact.ID,
			}, nil
		}
	}
	return domain.UserInfo{}, fmt.Errorf("contact %d not in response", id)
}
