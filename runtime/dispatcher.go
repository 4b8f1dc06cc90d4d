package runtime

import (
	"context"
	"errors"
	"log/slog"
	"ws-chat/contract"
	"ws-chat/domain"
	"ws-chat/domain/event"
	chaterrors "ws-chat/errors"
	"ws-chat/observability"
)

// Dispatcher applies one authenticated inbound event: authorization gate, persistence, broadcast.
//
// Chats the user does not belong to are indistinguishable from chats that do not exist:
// such events are dropped without any feedback to the sender.
type Dispatcher struct {
	log         *slog.Logger
	store       contract.ChatStore
	broadcaster contract.IBroadcaster
	filter      contract.TextFilter
	metrics     *observability.Metrics
}

func NewDispatcher(
	log *slog.Logger,
	store contract.ChatStore,
	broadcaster contract.IBroadcaster,
	metrics *observability.Metrics,
) *Dispatcher {
	return &Dispatcher{log: log, store: store, broadcaster: broadcaster, metrics: metrics}
}

// WithFilter rewrites MESSAGE text before it is persisted.
func (d *Dispatcher) WithFilter(filter contract.TextFilter) *Dispatcher {
	d.filter = filter
	return d
}

func (d *Dispatcher) Dispatch(ctx context.Context, user domain.User, evt event.Inbound) {
	d.metrics.InboundEvent(string(evt.Kind()))

	switch e := evt.(type) {
	case event.Ping, event.Pong:
		d.log.Debug("Keepalive event", "type", e.Kind(), "user_id", user.ID)
	case event.PostMessage:
		d.postMessage(ctx, user, e)
	case event.MarkRead:
		d.markRead(ctx, user, e)
	case event.JoinChat:
		d.log.Info("Join chat event ignored", "user_id", user.ID, "chat_id", e.ChatID)
	case event.LeaveChat:
		d.log.Info("Leave chat event ignored", "user_id", user.ID, "chat_id", e.ChatID)
	default:
		d.log.Warn("Unknown event ignored", "user_id", user.ID, "type", evt.Kind())
	}
}

func (d *Dispatcher) postMessage(ctx context.Context, user domain.User, e event.PostMessage) {
	chat, err := d.store.ChatForParticipant(ctx, e.ChatID, user.ID)
	if err != nil {
		d.drop(err, "MESSAGE", user, e.ChatID)
		return
	}

	text := e.Text
	if d.filter != nil {
		text = d.filter.Censor(text)
	}

	msg, err := d.store.SaveMessage(ctx, user.ID, chat.ID, text)
	if err != nil {
		d.drop(err, "MESSAGE", user, e.ChatID)
		return
	}
	d.broadcaster.Deliver(ctx, event.MessagePosted(msg), chat.ParticipantIDs())
}

func (d *Dispatcher) markRead(ctx context.Context, user domain.User, e event.MarkRead) {
	chat, err := d.store.ChatForParticipant(ctx, e.ChatID, user.ID)
	if err != nil {
		d.drop(err, "UPDATE_READERS", user, e.ChatID)
		return
	}

	msg, err := d.store.AddReader(ctx, chat.ID, e.MessageID, user.ID)
	if err != nil {
		d.drop(err, "UPDATE_READERS", user, e.ChatID, "message_id", e.MessageID)
		return
	}
	d.broadcaster.Deliver(ctx, event.ReadersUpdated(msg), chat.ParticipantIDs())
}

// drop logs a refused event. Authorization gaps are expected traffic, anything else is a persistence failure.
func (d *Dispatcher) drop(err error, kind string, user domain.User, chatID any, attrs ...any) {
	attrs = append([]any{"type", kind, "user_id", user.ID, "chat_id", chatID}, attrs...)
	if isAuthorizationGap(err) {
		d.log.Debug("Event dropped", attrs...)
		d.metrics.Dropped("unauthorized")
		return
	}
	d.log.Error("Event dropped on persistence failure", append(attrs, "error", err)...)
	d.metrics.Dropped("persistence")
}

func isAuthorizationGap(err error) bool {
	return errors.Is(err, chaterrors.ErrChatNotFound) ||
		errors.Is(err, chaterrors.ErrNotAParticipant) ||
		errors.Is(err, chaterrors.ErrMessageNotFound)
}
