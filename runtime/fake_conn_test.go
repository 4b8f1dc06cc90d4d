package runtime

import (
	"context"
	"sync"
	"time"
	"ws-chat/contract"
	"ws-chat/domain"

	"github.com/google/uuid"
)

// fakeConn records every payload it is sent.
type fakeConn struct {
	id       string
	identity domain.Identity
	mu       sync.Mutex
	sent     [][]byte
	err      error
	delay    time.Duration
}

func newFakeConn(identity domain.Identity) *fakeConn {
	return &fakeConn{id: uuid.NewString(), identity: identity}
}

func (f *fakeConn) ID() string { return f.id }
func (f *fakeConn) Identity() domain.Identity { return f.identity }
func (f *fakeConn) RemoteAddr() string { return "127.0.0.1:1234" }
func (f *fakeConn) State() contract.ConnState { return contract.Connected }
func (f *fakeConn) Close() error { return nil }

func (f *fakeConn) Send(ctx context.Context, payload []byte) error {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, payload)
	return nil
}

func (f *fakeConn) Sent() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.sent...)
}
