package ws

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
	"ws-chat/contract"
	"ws-chat/domain"
	"ws-chat/errors"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Connection wraps one upgraded websocket. Writes are serialized, reads belong to the session.
type Connection struct {
	id        string
	identity  domain.Identity
	remote    string
	conn      *websocket.Conn
	writeWait time.Duration
	writeMu   sync.Mutex
	state     atomic.Int32
	closeOnce sync.Once
}

func newConnection(conn *websocket.Conn, identity domain.Identity, writeWait time.Duration) *Connection {
	return &Connection{
		id:        uuid.NewString(),
		identity:  identity,
		remote:    conn.RemoteAddr().String(),
		conn:      conn,
		writeWait: writeWait,
	}
}

func (c *Connection) ID() string                { return c.id }
func (c *Connection) Identity() domain.Identity { return c.identity }
func (c *Connection) RemoteAddr() string        { return c.remote }

func (c *Connection) State() contract.ConnState {
	return contract.ConnState(c.state.Load())
}

// Send writes one text frame. The write deadline is the earliest of ctx's deadline and writeWait.
func (c *Connection) Send(ctx context.Context, payload []byte) error {
	if c.State() != contract.Connected {
		return errors.ErrConnectionClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline := time.Now().Add(c.writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *Connection) ping() error {
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeWait))
}

// Close sends a close frame when possible and releases the socket. Safe to call many times.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.state.Store(int32(contract.Closing))
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(c.writeWait))
		err = c.conn.Close()
		c.state.Store(int32(contract.Closed))
	})
	return err
}
