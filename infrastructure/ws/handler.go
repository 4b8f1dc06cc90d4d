// Package ws serves the authenticated websocket endpoint of the chat.
package ws

import (
	"log/slog"
	"net/http"
	"ws-chat/contract"
	"ws-chat/errors"
	"ws-chat/observability"
	"ws-chat/protocol"

	"github.com/gorilla/websocket"
)

const tokenParam = "token"

// Handler authenticates the bearer token of the query string, then upgrades and runs one Session.
// A rejected request never reaches the registry.
type Handler struct {
	log        *slog.Logger
	auth       contract.Authenticator
	registry   contract.IRegistry
	dispatcher contract.IDispatcher
	codec      *protocol.Codec
	metrics    *observability.Metrics
	options    Options
	upgrader   websocket.Upgrader
}

func NewHandler(
	log *slog.Logger,
	auth contract.Authenticator,
	registry contract.IRegistry,
	dispatcher contract.IDispatcher,
	codec *protocol.Codec,
	metrics *observability.Metrics,
	options Options,
) *Handler {
	return &Handler{
		log:        log,
		auth:       auth,
		registry:   registry,
		dispatcher: dispatcher,
		codec:      codec,
		metrics:    metrics,
		options:    options.withDefaults(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Clients are authenticated by token, not by origin
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get(tokenParam)
	if token == "" {
		h.reject(w, r, errors.ErrUnauthenticated)
		return
	}
	user, err := h.auth.Authenticate(r.Context(), token)
	if err != nil {
		h.reject(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error
		h.log.Warn("Websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	connection := newConnection(conn, user.ID, h.options.WriteWait)
	newSession(h.log, connection, user, h.registry, h.dispatcher, h.codec, h.metrics, h.options).Run(r.Context())
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		h.log.Error("Authentication failed", "remote", r.RemoteAddr, "error", err)
	} else {
		h.log.Debug("Connection rejected", "remote", r.RemoteAddr, "error", err)
	}
	http.Error(w, http.StatusText(status), status)
}

// CloseAll closes every registered connection, each session then runs its own cleanup.
func (h *Handler) CloseAll() {
	conns := h.registry.All()
	h.log.Info("Closing websocket connections", "count", len(conns))
	for _, conn := range conns {
		_ = conn.Close()
	}
}
