package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"ws-chat/contract"
	"ws-chat/domain"
	"ws-chat/domain/event"
	"ws-chat/observability"
	"ws-chat/protocol"

	"github.com/samber/lo"
)

const defaultSendTimeout = 5 * time.Second

// Broadcaster pushes one outbound event to every live connection of a recipient set.
//
// Delivery is best effort: no retry, no queuing for offline recipients.
// A failing or slow connection never affects the others and never surfaces to the caller.
type Broadcaster struct {
	log         *slog.Logger
	registry    contract.IRegistry
	codec       *protocol.Codec
	metrics     *observability.Metrics
	sendTimeout time.Duration
}

func NewBroadcaster(
	log *slog.Logger,
	registry contract.IRegistry,
	codec *protocol.Codec,
	metrics *observability.Metrics,
	sendTimeout time.Duration,
) *Broadcaster {
	if sendTimeout <= 0 {
		sendTimeout = defaultSendTimeout
	}
	return &Broadcaster{
		log:         log,
		registry:    registry,
		codec:       codec,
		metrics:     metrics,
		sendTimeout: sendTimeout,
	}
}

// Deliver sends evt concurrently to every connection of recipients and returns
// once every attempt completed.
func (b *Broadcaster) Deliver(ctx context.Context, evt event.Outbound, recipients []domain.Identity) {
	// A closing sender must not abort sends already fanned out to others
	ctx = context.WithoutCancel(ctx)
	start := time.Now()

	var wg sync.WaitGroup
	for _, identity := range lo.Uniq(recipients) {
		conns := b.registry.ConnectionsFor(identity)
		if len(conns) == 0 {
			continue
		}
		payload, err := b.codec.Encode(evt, identity)
		if err != nil {
			b.log.Error("Unable to encode outbound event", "type", evt.Kind, "user_id", identity, "error", err)
			continue
		}
		for _, conn := range conns {
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.send(ctx, evt.Kind, conn, payload)
			}()
		}
	}
	wg.Wait()
	b.metrics.DeliveryDuration(time.Since(start).Seconds())
}

func (b *Broadcaster) send(ctx context.Context, kind event.Kind, conn contract.Connection, payload []byte) {
	ctx, cancel := context.WithTimeout(ctx, b.sendTimeout)
	defer cancel()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("send panicked: %v", r)
			}
		}()
		return conn.Send(ctx, payload)
	}()
	if err != nil {
		b.log.Warn("Delivery failed",
			"type", kind,
			"connection_id", conn.ID(),
			"user_id", conn.Identity(),
			"remote", conn.RemoteAddr(),
			"error", err)
		b.metrics.Delivery(string(kind), false)
		return
	}
	b.metrics.Delivery(string(kind), true)
}
