//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"
	"ws-chat/domain"
	"ws-chat/domain/event"

	"github.com/google/uuid"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

type ConnState int32

const (
	Connected ConnState = iota
	Closing
	Closed
)

func (s ConnState) String() string {
	switch s {
	case Connected:
		return "CONNECTED"
	case Closing:
		return "CLOSING"
	default:
		return "CLOSED"
	}
}

// Connection is one live bidirectional channel owned by its session.
// Send must be safe for concurrent callers.
type Connection interface {
	ID() string
	Identity() domain.Identity
	RemoteAddr() string
	State() ConnState
	Send(ctx context.Context, payload []byte) error
	Close() error
}

// IRegistry maps identities to their live connections.
type IRegistry interface {
	Add(identity domain.Identity, conn Connection)
	Remove(identity domain.Identity, conn Connection)
	ConnectionsFor(identity domain.Identity) []Connection
	All() []Connection
	Len() int
}

// IBroadcaster fans an outbound event to every live connection of the recipients.
// It never returns an error: per-connection failures are isolated.
type IBroadcaster interface {
	Deliver(ctx context.Context, evt event.Outbound, recipients []domain.Identity)
}

// IDispatcher applies the side effects of one authenticated inbound event.
type IDispatcher interface {
	Dispatch(ctx context.Context, user domain.User, evt event.Inbound)
}

// Authenticator resolves a bearer credential to a user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (domain.User, error)
}

// ChatStore is the persistence surface driven by the dispatcher.
type ChatStore interface {
	ChatForParticipant(ctx context.Context, chatID, userID uuid.UUID) (domain.Chat, error)
	SaveMessage(ctx context.Context, senderID, chatID uuid.UUID, text string) (domain.Message, error)
	AddReader(ctx context.Context, chatID, messageID, userID uuid.UUID) (domain.Message, error)
}

// TextFilter rewrites message text before it is persisted.
type TextFilter interface {
	Censor(text string) string
}
