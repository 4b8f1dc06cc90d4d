package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"
	"ws-chat/domain"
	"ws-chat/domain/event"
	"ws-chat/protocol"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func newTestMessage(sender domain.User, readers ...domain.User) domain.Message {
	now := time.Now()
	return domain.Message{
		ID:        uuid.New(),
		ChatID:    uuid.New(),
		Sender:    sender,
		Text:      "hi",
		Readers:   readers,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func newTestBroadcaster(registry *Registry, timeout time.Duration) *Broadcaster {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	return NewBroadcaster(log, registry, protocol.NewCodec(), nil, timeout)
}

func TestBroadcaster_Deliver_To_Every_Connection_Of_Every_Recipient(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	alice := domain.User{ID: uuid.New(), Email: "alice@chat.io", Username: "alice"}
	bob := domain.User{ID: uuid.New(), Email: "bob@chat.io", Username: "bob"}
	aliceLaptop, alicePhone := newFakeConn(alice.ID), newFakeConn(alice.ID)
	bobLaptop := newFakeConn(bob.ID)
	registry.Add(alice.ID, aliceLaptop)
	registry.Add(alice.ID, alicePhone)
	registry.Add(bob.ID, bobLaptop)

	// Given a stranger connected but not part of the recipients
	stranger := newFakeConn(uuid.New())
	registry.Add(stranger.identity, stranger)

	// When a message from alice is delivered to alice and bob
	msg := newTestMessage(alice)
	newTestBroadcaster(registry, time.Second).Deliver(context.Background(), event.MessagePosted(msg), []domain.Identity{alice.ID, bob.ID})

	// Then each of their connections got exactly one frame
	for _, conn := range []*fakeConn{aliceLaptop, alicePhone, bobLaptop} {
		req.Len(conn.Sent(), 1)
		var frame map[string]any
		req.NoError(json.Unmarshal(conn.Sent()[0], &frame))
		req.Equal("MESSAGE", frame["type"])
		req.Equal(msg.ID.String(), frame["message_id"])
		req.Equal(alice.ID.String(), frame["user_id"])
	}
	req.Empty(stranger.Sent())
}

func TestBroadcaster_Deliver_Duplicate_Recipients_Once(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	alice := domain.User{ID: uuid.New(), Username: "alice"}
	conn := newFakeConn(alice.ID)
	registry.Add(alice.ID, conn)

	newTestBroadcaster(registry, time.Second).Deliver(context.Background(),
		event.MessagePosted(newTestMessage(alice)), []domain.Identity{alice.ID, alice.ID})

	req.Len(conn.Sent(), 1)
}

func TestBroadcaster_Deliver_Skips_Offline_Recipients(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	alice := domain.User{ID: uuid.New(), Username: "alice"}
	conn := newFakeConn(alice.ID)
	registry.Add(alice.ID, conn)

	// When one recipient has no live connection
	newTestBroadcaster(registry, time.Second).Deliver(context.Background(),
		event.MessagePosted(newTestMessage(alice)), []domain.Identity{uuid.New(), alice.ID})

	// Then the online one is still served
	req.Len(conn.Sent(), 1)
}

func TestBroadcaster_Deliver_Isolates_Failing_Connection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	alice := domain.User{ID: uuid.New(), Username: "alice"}
	broken := newFakeConn(alice.ID)
	broken.err = errors.New("broken pipe")
	slow := newFakeConn(alice.ID)
	slow.delay = time.Hour
	healthy := newFakeConn(alice.ID)
	registry.Add(alice.ID, broken)
	registry.Add(alice.ID, slow)
	registry.Add(alice.ID, healthy)

	done := make(chan struct{})
	go func() {
		newTestBroadcaster(registry, 50*time.Millisecond).Deliver(context.Background(),
			event.MessagePosted(newTestMessage(alice)), []domain.Identity{alice.ID})
		close(done)
	}()

	// Then the call returns once the slow send timed out
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		req.Fail("Deliver should return once every attempt completed")
	}
	req.Len(healthy.Sent(), 1)
	req.Empty(broken.Sent())
	req.Empty(slow.Sent())
}

func TestBroadcaster_Deliver_Survives_Cancelled_Caller(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	alice := domain.User{ID: uuid.New(), Username: "alice"}
	conn := newFakeConn(alice.ID)
	conn.delay = 20 * time.Millisecond
	registry.Add(alice.ID, conn)

	// Given the sender session already closed
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	newTestBroadcaster(registry, time.Second).Deliver(ctx,
		event.MessagePosted(newTestMessage(alice)), []domain.Identity{alice.ID})

	// Then the fanned out send still completed
	req.Len(conn.Sent(), 1)
}

func TestBroadcaster_Deliver_Encodes_Per_Viewer(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	alice := domain.User{ID: uuid.New(), Email: "alice@chat.io", Username: "alice"}
	bob := domain.User{ID: uuid.New(), Email: "bob@chat.io", Username: "bob"}
	aliceConn, bobConn := newFakeConn(alice.ID), newFakeConn(bob.ID)
	registry.Add(alice.ID, aliceConn)
	registry.Add(bob.ID, bobConn)

	// When bob's read receipt is fanned out
	msg := newTestMessage(alice, bob)
	newTestBroadcaster(registry, time.Second).Deliver(context.Background(),
		event.ReadersUpdated(msg), []domain.Identity{alice.ID, bob.ID})

	// Then bob never sees his own email or id in readers
	req.Len(bobConn.Sent(), 1)
	req.NotContains(string(bobConn.Sent()[0]), bob.Email)
	req.NotContains(string(bobConn.Sent()[0]), `"user_id":"`+bob.ID.String()+`"`)
	// And alice does
	req.Contains(string(aliceConn.Sent()[0]), bob.Email)
	// And nobody sees the sender email
	req.NotContains(string(aliceConn.Sent()[0]), alice.Email)
	req.NotContains(string(bobConn.Sent()[0]), alice.Email)
}
