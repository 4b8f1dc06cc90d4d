package protocol

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
	"ws-chat/domain"
	"ws-chat/domain/event"
	"ws-chat/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestCodec_Decode_Variants(t *testing.T) {
	codec := NewCodec()
	chatID := uuid.New()
	messageID := uuid.New()

	tests := []struct {
		name     string
		frame    string
		expected event.Inbound
	}{
		{"ping", `{"type":"PING"}`, event.Ping{}},
		{"pong", `{"type":"PONG"}`, event.Pong{}},
		{"message", `{"type":"MESSAGE","chat_id":"` + chatID.String() + `","message":"hi"}`,
			event.PostMessage{ChatID: chatID, Text: "hi"}},
		{"update readers", `{"type":"UPDATE_READERS","chat_id":"` + chatID.String() + `","message_id":"` + messageID.String() + `"}`,
			event.MarkRead{ChatID: chatID, MessageID: messageID}},
		{"join", `{"type":"USER_JOIN_CHAT","chat_id":"` + chatID.String() + `"}`, event.JoinChat{ChatID: chatID}},
		{"left", `{"type":"USER_LEFT_CHAT","chat_id":"` + chatID.String() + `"}`, event.LeaveChat{ChatID: chatID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			evt, err := codec.Decode([]byte(tt.frame))
			req.NoError(err)
			req.Equal(tt.expected, evt)
		})
	}
}

func TestCodec_Decode_Rejects_Malformed_Frames(t *testing.T) {
	codec := NewCodec()
	chatID := uuid.NewString()

	tests := []struct {
		name  string
		frame string
		err   error
	}{
		{"not json", `hello`, errors.ErrProtocol},
		{"missing type", `{"chat_id":"` + chatID + `"}`, errors.ErrUnknownEventType},
		{"unknown type", `{"type":"TYPING"}`, errors.ErrUnknownEventType},
		{"message without chat", `{"type":"MESSAGE","message":"hi"}`, errors.ErrMissingField},
		{"message without text", `{"type":"MESSAGE","chat_id":"` + chatID + `"}`, errors.ErrMissingField},
		{"message with invalid chat id", `{"type":"MESSAGE","chat_id":"nope","message":"hi"}`, errors.ErrMissingField},
		{"message with text too long", `{"type":"MESSAGE","chat_id":"` + chatID + `","message":"` + strings.Repeat("a", 5000) + `"}`, errors.ErrMissingField},
		{"update readers without message", `{"type":"UPDATE_READERS","chat_id":"` + chatID + `"}`, errors.ErrMissingField},
		{"join without chat", `{"type":"USER_JOIN_CHAT"}`, errors.ErrMissingField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			evt, err := codec.Decode([]byte(tt.frame))
			req.Nil(evt)
			req.ErrorIs(err, tt.err)
			req.ErrorIs(err, errors.ErrProtocol)
		})
	}
}

// Client supplied server fields are ignored, whatever their value.
func TestCodec_Decode_Strips_Server_Authoritative_Fields(t *testing.T) {
	req := require.New(t)
	codec := NewCodec()
	chatID := uuid.New()
	frame := map[string]any{
		"type":       "MESSAGE",
		"chat_id":    chatID.String(),
		"message":    "hi",
		"message_id": uuid.NewString(),
		"user_id":    uuid.NewString(),
		"created_at": 1,
		"updated_at": 2,
	}
	data, err := json.Marshal(frame)
	req.NoError(err)

	evt, err := codec.Decode(data)

	req.NoError(err)
	req.Equal(event.PostMessage{ChatID: chatID, Text: "hi"}, evt)
}

func TestCodec_Encode_Hides_Viewer_Private_Fields(t *testing.T) {
	req := require.New(t)
	codec := NewCodec()
	alice := domain.User{ID: uuid.New(), Email: "alice@example.com", Username: "alice"}
	bob := domain.User{ID: uuid.New(), Email: "bob@example.com", Username: "bob"}
	at := time.Unix(1700000000, 0).UTC()
	msg := domain.Message{
		ID: uuid.New(), ChatID: uuid.New(), Sender: alice, Text: "hi",
		Readers: []domain.User{alice, bob}, CreatedAt: at, UpdatedAt: at,
	}

	for _, viewer := range []domain.User{alice, bob} {
		data, err := codec.Encode(event.ReadersUpdated(msg), viewer.ID)
		req.NoError(err)

		var frame map[string]any
		req.NoError(json.Unmarshal(data, &frame))

		// Then the viewer's own private fields are absent from every sub block
		req.NotContains(string(data), viewer.Email)
		user := frame["user"].(map[string]any)
		req.NotContains(user, "email")
		for _, r := range frame["readers"].([]any) {
			reader := r.(map[string]any)
			if reader["username"] == viewer.Username {
				req.NotContains(reader, "user_id")
				req.NotContains(reader, "email")
			} else {
				req.Contains(reader, "user_id")
			}
		}

		// And server stamped fields are present
		req.Equal("UPDATE_READERS", frame["type"])
		req.Equal(msg.ChatID.String(), frame["chat_id"])
		req.Equal(msg.ID.String(), frame["message_id"])
		req.Equal(alice.ID.String(), frame["user_id"])
		req.Equal(float64(at.Unix()), frame["created_at"])
	}
}

func TestCodec_Encode_Sender_Block_Never_Has_Email(t *testing.T) {
	req := require.New(t)
	codec := NewCodec()
	alice := domain.User{ID: uuid.New(), Email: "alice@example.com", Username: "alice"}
	viewer := uuid.New()
	msg := domain.Message{ID: uuid.New(), ChatID: uuid.New(), Sender: alice, Text: "hi"}

	data, err := codec.Encode(event.MessagePosted(msg), viewer)

	req.NoError(err)
	req.NotContains(string(data), alice.Email)
	req.Contains(string(data), `"readers":[]`)
	req.Contains(string(data), `"user":{"user_id":"`+alice.ID.String()+`","username":"alice"}`)
}

func TestCodec_Encode_Is_Deterministic(t *testing.T) {
	req := require.New(t)
	codec := NewCodec()
	msg := domain.Message{ID: uuid.New(), ChatID: uuid.New(), Sender: domain.User{ID: uuid.New(), Username: "a"}, Text: "x"}
	viewer := uuid.New()

	first, err := codec.Encode(event.MessagePosted(msg), viewer)
	req.NoError(err)
	second, err := codec.Encode(event.MessagePosted(msg), viewer)
	req.NoError(err)
	req.Equal(first, second)
}

func TestCodec_Encode_Rejects_Inbound_Only_Kinds(t *testing.T) {
	req := require.New(t)
	_, err := NewCodec().Encode(event.Outbound{Kind: event.KindPing}, uuid.New())
	req.ErrorIs(err, errors.ErrUnsupportedOutput)
}
