package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")

	// Connection and protocol
	ErrUnauthenticated   = fmt.Errorf("could not validate credentials")
	ErrProtocol          = fmt.Errorf("malformed event")
	ErrUnknownEventType  = fmt.Errorf("%w: unknown event type", ErrProtocol)
	ErrMissingField      = fmt.Errorf("%w: missing or invalid field", ErrProtocol)
	ErrConnectionClosed  = fmt.Errorf("connection closed")
	ErrUnsupportedOutput = fmt.Errorf("event kind cannot be encoded")

	// Authorization gaps, never surfaced to the websocket peer
	ErrChatNotFound     = fmt.Errorf("chat not found")
	ErrMessageNotFound  = fmt.Errorf("message not found")
	ErrNotAParticipant  = fmt.Errorf("user is not a participant")
	ErrUnknownUser      = fmt.Errorf("one or more user IDs do not exist or are invalid")
	ErrUserNotFound     = fmt.Errorf("user not found")
	ErrEmptyWords       = fmt.Errorf("no words have been found")
	ErrInvalidChatType  = fmt.Errorf("invalid chat type")
	ErrInvalidRuneInput = fmt.Errorf("replacement must be a single character")

	// Accounts
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrInvalidCredentials = fmt.Errorf("wrong credentials")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrInvalidPassword    = fmt.Errorf("invalid registration payload")
)

// HTTPStatus maps a service error onto the status returned by the REST layer.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusForbidden
	case errors.Is(err, ErrChatNotFound), errors.Is(err, ErrMessageNotFound),
		errors.Is(err, ErrNotAParticipant), errors.Is(err, ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUserAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidPassword), errors.Is(err, ErrUnknownUser),
		errors.Is(err, ErrInvalidChatType), errors.Is(err, ErrProtocol):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
