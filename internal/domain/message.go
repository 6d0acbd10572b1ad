package domain

import "context"

// LinkType marks how a message references another message.
type LinkType string

const (
	LinkNone    LinkType = ""
	LinkForward LinkType = "FORWARD"
	LinkReply   LinkType = "REPLY"
)

// Contact identifies a MAX user as seen on an inbound message.
type Contact struct {
	ID   int64
	Name string
}

// LinkedMessage is the original message a forward or reply points at.
type LinkedMessage struct {
	Text        string
	SenderID    int64
	Attachments []Attachment
}

// InboundMessage is a single chat event delivered by the MAX client.
// It is immutable once received; the pipeline never writes back into it.
type InboundMessage struct {
	ID          string
	ChatID      int64
	Sender      Contact
	Text        string
	Attachments []Attachment
	LinkType    LinkType
	Linked      *LinkedMessage
	Type        string // MAX message type, e.g. "CONTROL"
	Status      string // "REMOVED" marks deleted messages
}

// OutgoingPayload is what the normalizer hands to the delivery dispatcher.
// Consumed once, then discarded.
type OutgoingPayload struct {
	Caption     string // pre-escaped HTML
	Attachments []Attachment
	Types       []string // sorted set of detected type tags
}

// UserInfo is the result of a directory lookup on the source platform.
type UserInfo struct {
	DisplayName string
	Phone       string
	ContactID   int64
}

// UserDirectory resolves MAX user ids to profile data. Implemented by the
// maxchat client; lookup failures must be handled by callers, never fatal.
type UserDirectory interface {
	LookupUser(ctx context.Context, id int64) (UserInfo, error)
}
