package session

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	httperrors "github.com/ontapvn/exam-session/pkg/http/errors"
	"github.com/ontapvn/exam-session/pkg/http/ws"
)

// WSHandler upgrades observers onto a session's event feed.
type WSHandler struct {
	manager  *Manager
	hub      *ws.Hub
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewWSHandler creates the WebSocket feed handler.
func NewWSHandler(manager *Manager, hub *ws.Hub, logger zerolog.Logger) *WSHandler {
	return &WSHandler{
		manager: manager,
		hub:     hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger.With().Str("component", "session_ws").Logger(),
	}
}

// HandleFeed handles GET /ws/sessions/{id}.
func (h *WSHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, "session id must be a UUID", "id")
		return
	}
	sess, err := h.manager.Get(id)
	if err != nil {
		httperrors.RespondNotFound(w, httperrors.ErrCodeSessionNotFound, "No session with that id")
		return
	}

	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Str("session_id", id.String()).Msg("websocket upgrade failed")
		return
	}

	conn := ws.NewConnection(raw, h.logger)
	connID := h.hub.Register(id, conn)

	go conn.WritePump()

	// Hand the observer the current state so it does not wait for the
	// next tick to render anything.
	if snap, err := json.Marshal(sess.Snapshot()); err == nil {
		_ = conn.Send(ws.Message{Type: ws.TypeSnapshot, Payload: snap})
	}

	h.logger.Info().Str("session_id", id.String()).Str("conn_id", connID.String()).Msg("feed observer joined")
	conn.ReadPump(func() {
		h.hub.Unregister(connID)
		h.logger.Info().Str("session_id", id.String()).Str("conn_id", connID.String()).Msg("feed observer left")
	})
}
