package event

import (
	"ws-chat/domain"

	"github.com/google/uuid"
)

// Kind is the wire tag of an event.
type Kind string

const (
	KindPing          Kind = "PING"
	KindPong          Kind = "PONG"
	KindMessage       Kind = "MESSAGE"
	KindUpdateReaders Kind = "UPDATE_READERS"
	KindUserJoinChat  Kind = "USER_JOIN_CHAT"
	KindUserLeftChat  Kind = "USER_LEFT_CHAT"
)

// Inbound is an event decoded from a client frame.
// Only server code may attach the acting identity; no variant carries one.
type Inbound interface {
	Kind() Kind
}

type Ping struct{}

func (Ping) Kind() Kind { return KindPing }

type Pong struct{}

func (Pong) Kind() Kind { return KindPong }

// PostMessage asks to persist Text in ChatID and fan it out to the chat.
type PostMessage struct {
	ChatID uuid.UUID
	Text   string
}

func (PostMessage) Kind() Kind { return KindMessage }

// MarkRead asks to add the acting user to the readers of MessageID.
type MarkRead struct {
	ChatID    uuid.UUID
	MessageID uuid.UUID
}

func (MarkRead) Kind() Kind { return KindUpdateReaders }

type JoinChat struct {
	ChatID uuid.UUID
}

func (JoinChat) Kind() Kind { return KindUserJoinChat }

type LeaveChat struct {
	ChatID uuid.UUID
}

func (LeaveChat) Kind() Kind { return KindUserLeftChat }

// Outbound is a server-stamped event pushed to chat participants.
// Every field comes from persistence, never from the inbound frame.
type Outbound struct {
	Kind    Kind
	Message domain.Message
}

func MessagePosted(m domain.Message) Outbound {
	return Outbound{Kind: KindMessage, Message: m}
}

func ReadersUpdated(m domain.Message) Outbound {
	return Outbound{Kind: KindUpdateReaders, Message: m}
}
