package maxchat

import (
	"encoding/json"
	"testing"

	"maxgram/internal/domain"
)

func TestParseMessageEvent_Plain(t *testing.T) {
	payload := json.RawMessage(`{
		"chat": {"id": 42, "title": "Родители 5Б"},
		"message": {
			"id": "mid.123",
			"text": "hello",
			"sender": {"id": 7, "name": "Alice"},
			"attaches": [{"_type": "PHOTO", "url": "https://x.example/p.jpg"}]
		}
	}`)
	msg, err := parseMessageEvent(payload)
	if err != nil {
		t.Fatalf("parseMessageEvent: %v", err)
	}
	if msg.ID != "mid.123" || msg.ChatID != 42 {
		t.Errorf("ids = %q, %d", msg.ID, msg.ChatID)
	}
	if msg.Sender.ID != 7 || msg.Sender.Name != "Alice" {
		t.Errorf("sender = %+v", msg.Sender)
	}
	if len(msg.Attachments) != 1 || msg.Attachments[0].TypeTag() != "PHOTO" {
		t.Errorf("attachments = %v", msg.Attachments)
	}
	if msg.LinkType != domain.LinkNone || msg.Linked != nil {
		t.Errorf("unexpected link: %v %v", msg.LinkType, msg.Linked)
	}
}

func TestParseMessageEvent_ForwardWithContactSender(t *testing.T) {
	payload := json.RawMessage(`{
		"chat": {"id": 42},
		"message": {
			"id": "mid.124",
			"text": "fyi",
			"sender": {"id": 7, "name": "Alice"},
			"link": {
				"type": "forward",
				"message": {
					"text": "the original",
					"sender": {"id": 99, "name": "Boris"},
					"attaches": [{"_type": "VIDEO"}]
				}
			}
		}
	}`)
	msg, err := parseMessageEvent(payload)
	if err != nil {
		t.Fatalf("parseMessageEvent: %v", err)
	}
	if msg.LinkType != domain.LinkForward {
		t.Fatalf("LinkType = %q", msg.LinkType)
	}
	if msg.Linked == nil || msg.Linked.Text != "the original" || msg.Linked.SenderID != 99 {
		t.Errorf("Linked = %+v", msg.Linked)
	}
	if len(msg.Linked.Attachments) != 1 {
		t.Errorf("linked attachments = %v", msg.Linked.Attachments)
	}
}

func TestParseMessageEvent_ReplyWithNumericSender(t *testing.T) {
	payload := json.RawMessage(`{
		"chat": {"id": 42},
		"message": {
			"id": "mid.125",
			"text": "agreed",
			"sender": {"id": 7},
			"link": {
				"type": "REPLY",
				"message": {"text": "shall we?", "sender": 55}
			}
		}
	}`)
	msg, err := parseMessageEvent(payload)
	if err != nil {
		t.Fatalf("parseMessageEvent: %v", err)
	}
	if msg.LinkType != domain.LinkReply {
		t.Fatalf("LinkType = %q", msg.LinkType)
	}
	if msg.Linked.SenderID != 55 {
		t.Errorf("SenderID = %d, want the bare numeric id", msg.Linked.SenderID)
	}
}

func TestParseMessageEvent_UnknownLinkTypeIgnored(t *testing.T) {
	payload := json.RawMessage(`{
		"chat": {"id": 42},
		"message": {
			"id": "mid.126",
			"text": "x",
			"sender": {"id": 7},
			"link": {"type": "PIN", "message": {"text": "pinned"}}
		}
	}`)
	msg, err := parseMessageEvent(payload)
	if err != nil {
		t.Fatalf("parseMessageEvent: %v", err)
	}
	if msg.LinkType != domain.LinkNone || msg.Linked != nil {
		t.Errorf("unknown link kind leaked: %v %v", msg.LinkType, msg.Linked)
	}
}

func TestParseMessageEvent_MissingID(t *testing.T) {
	payload := json.RawMessage(`{"chat": {"id": 42}, "message": {"text": "no id"}}`)
	if _, err := parseMessageEvent(payload); err == nil {
		t.Fatal("event without message id accepted")
	}
}

func TestWireContact_DisplayName(t *testing.T) {
	direct := wireContact{Name: "Alice"}
	if got := direct.displayName(); got != "Alice" {
		t.Errorf("displayName = %q", got)
	}

	var fromNames wireContact
	fromNames.Names = []struct {
		Name string `json:"name"`
	}{{Name: "Анна Сергеевна"}}
	if got := fromNames.displayName(); got != "Анна Сергеевна" {
		t.Errorf("displayName from names list = %q", got)
	}

	var empty wireContact
	if got := empty.displayName(); got != "" {
		t.Errorf("displayName on empty contact = %q", got)
	}
}

func TestParseContactInfo(t *testing.T) {
	payload := json.RawMessage(`{"contacts": [
		{"id": 5, "names": [{"name": "Dina"}], "phone": "+79000000000"},
		{"id": 6, "name": "Egor"}
	]}`)

	info, err := parseContactInfo(payload, 6)
	if err != nil {
		t.Fatalf("parseContactInfo: %v", err)
	}
	if info.DisplayName != "Egor" || info.ContactID != 6 {
		t.Errorf("info = %+v", info)
	}

	if _, err := parseContactInfo(payload, 777); err == nil {
		t.Fatal("missing contact id accepted")
	}

	// A single-contact response matches regardless of the requested id.
	single := json.RawMessage(`{"contacts": [{"id": 5, "name": "Dina", "phone": "+79000000000"}]}`)
	info, err = parseContactInfo(single, 999)
	if err != nil {
		t.Fatalf("parseContactInfo single: %v", err)
	}
	if info.DisplayName != "Dina" || info.Phone != "+79000000000" {
		t.Errorf("single contact info = %+v", info)
	}
}
