package ws

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
	"ws-chat/contract"
	"ws-chat/domain"
	"ws-chat/observability"
	"ws-chat/protocol"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

type SessionState int32

const (
	Connecting SessionState = iota
	Authenticated
	Active
	Closed
	Rejected
)

func (s SessionState) String() string {
	switch s {
	case Connecting:
		return "CONNECTING"
	case Authenticated:
		return "AUTHENTICATED"
	case Active:
		return "ACTIVE"
	case Closed:
		return "CLOSED"
	default:
		return "REJECTED"
	}
}

// Options tunes the keepalive and inbound limits of every session.
type Options struct {
	WriteWait    time.Duration
	PingInterval time.Duration
	PongWait     time.Duration
	MaxFrameSize int64
	InboundRate  float64
	InboundBurst int
}

func (o Options) withDefaults() Options {
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.PingInterval <= 0 || o.PingInterval >= o.PongWait {
		o.PingInterval = o.PongWait * 9 / 10
	}
	if o.MaxFrameSize <= 0 {
		o.MaxFrameSize = 64 * 1024
	}
	if o.InboundBurst <= 0 {
		o.InboundBurst = 1
	}
	return o
}

// Session owns one connection from registration to cleanup.
// Frames of a session are decoded and dispatched one at a time, in arrival order.
type Session struct {
	log        *slog.Logger
	conn       *Connection
	user       domain.User
	registry   contract.IRegistry
	dispatcher contract.IDispatcher
	codec      *protocol.Codec
	metrics    *observability.Metrics
	limiter    *rate.Limiter
	options    Options
	state      atomic.Int32
	closeOnce  sync.Once
}

func newSession(
	log *slog.Logger,
	conn *Connection,
	user domain.User,
	registry contract.IRegistry,
	dispatcher contract.IDispatcher,
	codec *protocol.Codec,
	metrics *observability.Metrics,
	options Options,
) *Session {
	s := &Session{
		log:        log.With("user_id", user.ID, "connection_id", conn.ID(), "remote", conn.RemoteAddr()),
		conn:       conn,
		user:       user,
		registry:   registry,
		dispatcher: dispatcher,
		codec:      codec,
		metrics:    metrics,
		options:    options,
	}
	if options.InboundRate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(options.InboundRate), options.InboundBurst)
	}
	s.state.Store(int32(Authenticated))
	return s
}

func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

// Run registers the connection and reads until the peer leaves, the connection fails or it is closed
// by the server. Cleanup always runs once, whatever ended the loop.
func (s *Session) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.close()

	s.registry.Add(s.user.ID, s.conn)
	s.state.Store(int32(Active))
	s.metrics.ConnectionOpened()
	s.log.Info("Connection opened")

	go s.keepalive(ctx)
	s.readLoop(ctx)
}

func (s *Session) readLoop(ctx context.Context) {
	s.conn.conn.SetReadLimit(s.options.MaxFrameSize)
	_ = s.conn.conn.SetReadDeadline(time.Now().Add(s.options.PongWait))
	s.conn.conn.SetPongHandler(func(string) error {
		return s.conn.conn.SetReadDeadline(time.Now().Add(s.options.PongWait))
	})

	for {
		_, data, err := s.conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) &&
				s.conn.State() == contract.Connected {
				s.log.Warn("Connection lost", "error", err)
			} else {
				s.log.Debug("Read loop ended", "error", err)
			}
			return
		}
		_ = s.conn.conn.SetReadDeadline(time.Now().Add(s.options.PongWait))

		if s.limiter != nil && !s.limiter.Allow() {
			s.log.Warn("Inbound frame dropped, rate limit exceeded")
			s.metrics.Dropped("rate_limited")
			continue
		}

		evt, err := s.codec.Decode(data)
		if err != nil {
			s.log.Warn("Malformed event ignored", "error", err)
			s.metrics.DecodeError()
			continue
		}
		s.dispatcher.Dispatch(ctx, s.user, evt)
	}
}

func (s *Session) keepalive(ctx context.Context) {
	ticker := time.NewTicker(s.options.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.conn.ping(); err != nil {
				s.log.Debug("Ping failed, closing connection", "error", err)
				_ = s.conn.Close()
				return
			}
		}
	}
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		s.registry.Remove(s.user.ID, s.conn)
		_ = s.conn.Close()
		s.state.Store(int32(Closed))
		s.metrics.ConnectionClosed()
		s.log.Info("Connection closed")
	})
}
