package client

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

// fakeGateway pushes frames to the client and records what it sends back.
func fakeGateway(t *testing.T, push []map[string]any) (*httptest.Server, chan map[string]any) {
	received := make(chan map[string]any, 10)
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != "secret" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, frame := range push {
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		}
		for {
			var frame map[string]any
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			received <- frame
		}
	}))
	t.Cleanup(server.Close)
	return server, received
}

func TestClient_Acknowledges_Messages_Of_Others(t *testing.T) {
	req := require.New(t)
	chatID, otherMessage, ownMessage := uuid.New(), uuid.New(), uuid.New()
	server, received := fakeGateway(t, []map[string]any{
		{"type": "MESSAGE", "chat_id": chatID, "message_id": ownMessage, "message": "mine", "user": map[string]any{"username": "me"}},
		{"type": "MESSAGE", "chat_id": chatID, "message_id": otherMessage, "message": "hi", "user": map[string]any{"user_id": uuid.New(), "username": "bob"}},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c, err := Dial(ctx, logs.GetLoggerFromLevel(slog.LevelDebug), strings.TrimPrefix(server.URL, "http://"), "secret", true)
	req.NoError(err)

	frames := make(chan Frame, 10)
	done := make(chan error, 1)
	go func() { done <- c.Listen(ctx, func(f Frame) { frames <- f }) }()

	// Then both frames are handed over
	req.True((<-frames).FromSelf())
	req.Equal("hi", (<-frames).Message)

	// Then only the message of bob is acknowledged
	select {
	case ack := <-received:
		req.Equal("UPDATE_READERS", ack["type"])
		req.Equal(otherMessage.String(), ack["message_id"])
		req.Equal(chatID.String(), ack["chat_id"])
	case <-time.After(2 * time.Second):
		req.Fail("no acknowledgement received")
	}
	select {
	case extra := <-received:
		req.Failf("unexpected frame", "%v", extra)
	case <-time.After(100 * time.Millisecond):
	}

	// When the context is cancelled, Listen returns without error
	cancel()
	req.NoError(<-done)
}

func TestClient_Post(t *testing.T) {
	req := require.New(t)
	server, received := fakeGateway(t, nil)
	c, err := Dial(context.Background(), logs.GetLoggerFromLevel(slog.LevelDebug), "ws"+strings.TrimPrefix(server.URL, "http"), "secret", false)
	req.NoError(err)
	defer c.Close()
	chatID := uuid.New()

	req.NoError(c.Post(chatID, "hello"))

	frame := <-received
	req.Equal(map[string]any{"type": "MESSAGE", "chat_id": chatID.String(), "message": "hello"}, frame)
}

func TestClient_Dial_Rejected(t *testing.T) {
	server, _ := fakeGateway(t, nil)

	_, err := Dial(context.Background(), logs.GetLoggerFromLevel(slog.LevelDebug), strings.TrimPrefix(server.URL, "http://"), "wrong", false)

	require.ErrorContains(t, err, "401")
}
