// Package client is a websocket client of the chat gateway, used by the terminal client.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"
	"ws-chat/domain/event"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// User is the user block of an inbound frame. UserID is absent when it designates the viewer.
type User struct {
	UserID   *uuid.UUID `json:"user_id,omitempty"`
	Email    string     `json:"email,omitempty"`
	Username string     `json:"username"`
}

// Frame is a MESSAGE or UPDATE_READERS event as received by this client.
type Frame struct {
	Type      event.Kind `json:"type"`
	ChatID    uuid.UUID  `json:"chat_id"`
	MessageID uuid.UUID  `json:"message_id"`
	UserID    uuid.UUID  `json:"user_id"`
	Message   string     `json:"message"`
	User      User       `json:"user"`
	Readers   []User     `json:"readers"`
	CreatedAt int64      `json:"created_at"`
	UpdatedAt int64      `json:"updated_at"`
}

// FromSelf reports whether the viewer posted the message.
func (f Frame) FromSelf() bool {
	return f.User.UserID == nil
}

type Client struct {
	log     *slog.Logger
	conn    *websocket.Conn
	writeMu sync.Mutex
	autoAck bool
}

// Dial opens /ws/subscribe on serverAddr ("host:port" or a ws:// URL) with token.
// With autoAck, every MESSAGE posted by somebody else is acknowledged with UPDATE_READERS.
func Dial(ctx context.Context, log *slog.Logger, serverAddr, token string, autoAck bool) (*Client, error) {
	endpoint := serverAddr
	if !strings.HasPrefix(endpoint, "ws://") && !strings.HasPrefix(endpoint, "wss://") {
		endpoint = "ws://" + endpoint
	}
	endpoint = strings.TrimSuffix(endpoint, "/") + "/ws/subscribe?token=" + url.QueryEscape(token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("could not connect to %s: %s: %w", serverAddr, resp.Status, err)
		}
		return nil, fmt.Errorf("could not connect to %s: %w", serverAddr, err)
	}
	return &Client{log: log, conn: conn, autoAck: autoAck}, nil
}

func (c *Client) Post(chatID uuid.UUID, text string) error {
	return c.write(map[string]any{"type": event.KindMessage, "chat_id": chatID, "message": text})
}

func (c *Client) MarkRead(chatID, messageID uuid.UUID) error {
	return c.write(map[string]any{"type": event.KindUpdateReaders, "chat_id": chatID, "message_id": messageID})
}

func (c *Client) write(frame any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(frame)
}

// Listen hands every inbound frame to handle until ctx is cancelled or the server closes the connection.
// A cancelled ctx is not an error.
func (c *Client) Listen(ctx context.Context, handle func(Frame)) error {
	stop := context.AfterFunc(ctx, func() { _ = c.conn.Close() })
	defer stop()

	for {
		var frame Frame
		if err := c.conn.ReadJSON(&frame); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("stream error: %w", err)
		}
		handle(frame)

		if c.autoAck && frame.Type == event.KindMessage && !frame.FromSelf() {
			if err := c.MarkRead(frame.ChatID, frame.MessageID); err != nil {
				c.log.Warn("Acknowledgement failed", "message_id", frame.MessageID, "error", err)
			}
		}
	}
}

func (c *Client) Close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	return c.conn.Close()
}
