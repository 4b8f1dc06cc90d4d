// Package protocol converts websocket frames to typed events and back.
//
// Inbound frames are decoded into one event.Inbound variant per kind and rejected when a field
// required by that kind is missing. Server-authoritative fields (message_id, user_id, created_at,
// updated_at) are never read from a client frame.
//
// Outbound frames are encoded per viewer: the viewer's own user_id and email never appear in the
// "user" and "readers" blocks, and the sender's email is never serialized.
package protocol

import (
	"encoding/json"
	"fmt"
	"ws-chat/domain"
	"ws-chat/domain/event"
	"ws-chat/errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type Codec struct {
	validate *validator.Validate
}

func NewCodec() *Codec {
	return &Codec{validate: validator.New()}
}

type envelope struct {
	Type event.Kind `json:"type"`
}

type chatFrame struct {
	ChatID uuid.UUID `json:"chat_id" validate:"required"`
}

type messageFrame struct {
	ChatID  uuid.UUID `json:"chat_id" validate:"required"`
	Message string    `json:"message" validate:"required,max=4096"`
}

type readersFrame struct {
	ChatID    uuid.UUID `json:"chat_id" validate:"required"`
	MessageID uuid.UUID `json:"message_id" validate:"required"`
}

// Decode parses one inbound frame. Every failure wraps errors.ErrProtocol.
func (c *Codec) Decode(data []byte) (event.Inbound, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrProtocol, err)
	}

	switch env.Type {
	case event.KindPing:
		return event.Ping{}, nil
	case event.KindPong:
		return event.Pong{}, nil
	case event.KindMessage:
		var f messageFrame
		if err := c.unmarshal(data, &f); err != nil {
			return nil, err
		}
		return event.PostMessage{ChatID: f.ChatID, Text: f.Message}, nil
	case event.KindUpdateReaders:
		var f readersFrame
		if err := c.unmarshal(data, &f); err != nil {
			return nil, err
		}
		return event.MarkRead{ChatID: f.ChatID, MessageID: f.MessageID}, nil
	case event.KindUserJoinChat:
		var f chatFrame
		if err := c.unmarshal(data, &f); err != nil {
			return nil, err
		}
		return event.JoinChat{ChatID: f.ChatID}, nil
	case event.KindUserLeftChat:
		var f chatFrame
		if err := c.unmarshal(data, &f); err != nil {
			return nil, err
		}
		return event.LeaveChat{ChatID: f.ChatID}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownEventType, env.Type)
	}
}

func (c *Codec) unmarshal(data []byte, frame any) error {
	if err := json.Unmarshal(data, frame); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrMissingField, err)
	}
	if err := c.validate.Struct(frame); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrMissingField, err)
	}
	return nil
}

type userPayload struct {
	UserID   *uuid.UUID `json:"user_id,omitempty"`
	Email    string     `json:"email,omitempty"`
	Username string     `json:"username"`
}

type outboundFrame struct {
	Type      event.Kind    `json:"type"`
	ChatID    uuid.UUID     `json:"chat_id"`
	MessageID uuid.UUID     `json:"message_id"`
	UserID    uuid.UUID     `json:"user_id"`
	Message   string        `json:"message"`
	User      userPayload   `json:"user"`
	Readers   []userPayload `json:"readers"`
	CreatedAt int64         `json:"created_at"`
	UpdatedAt int64         `json:"updated_at"`
}

// Encode renders evt for the connections of viewer.
func (c *Codec) Encode(evt event.Outbound, viewer domain.Identity) ([]byte, error) {
	if evt.Kind != event.KindMessage && evt.Kind != event.KindUpdateReaders {
		return nil, fmt.Errorf("%w: %q", errors.ErrUnsupportedOutput, evt.Kind)
	}
	m := evt.Message
	frame := outboundFrame{
		Type:      evt.Kind,
		ChatID:    m.ChatID,
		MessageID: m.ID,
		UserID:    m.Sender.ID,
		Message:   m.Text,
		User:      senderPayload(m.Sender, viewer),
		Readers: lo.Map(m.Readers, func(u domain.User, _ int) userPayload {
			return readerPayload(u, viewer)
		}),
		CreatedAt: m.CreatedAt.Unix(),
		UpdatedAt: m.UpdatedAt.Unix(),
	}
	if frame.Readers == nil {
		frame.Readers = []userPayload{}
	}
	return json.Marshal(frame)
}

func senderPayload(sender domain.User, viewer domain.Identity) userPayload {
	p := userPayload{Username: sender.Username}
	if sender.ID != viewer {
		p.UserID = lo.ToPtr(sender.ID)
	}
	return p
}

func readerPayload(reader domain.User, viewer domain.Identity) userPayload {
	if reader.ID == viewer {
		return userPayload{Username: reader.Username}
	}
	return userPayload{UserID: lo.ToPtr(reader.ID), Email: reader.Email, Username: reader.Username}
}
