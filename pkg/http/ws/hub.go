package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var (
	ErrConnectionNotFound = errors.New("connection not found")
	ErrConnectionClosed   = errors.New("connection closed")
	ErrSendQueueFull      = errors.New("send queue full")
)

// Hub manages WebSocket connections and broadcasts session events to
// subscribed clients.
type Hub struct {
	mu          sync.RWMutex
	connections map[uuid.UUID]*Connection // conn_id -> connection
	sessions    map[uuid.UUID][]uuid.UUID // session_id -> []conn_id
	logger      zerolog.Logger
}

// NewHub creates a new WebSocket hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		connections: make(map[uuid.UUID]*Connection),
		sessions:    make(map[uuid.UUID][]uuid.UUID),
		logger:      logger,
	}
}

// Register adds a connection and subscribes it to a session's feed.
// Returns the connection id used for unregistering.
func (h *Hub) Register(sessionID uuid.UUID, conn *Connection) uuid.UUID {
	connID := uuid.New()

	h.mu.Lock()
	h.connections[connID] = conn
	h.sessions[sessionID] = append(h.sessions[sessionID], connID)
	h.mu.Unlock()

	h.logger.Debug().
		Str("session_id", sessionID.String()).
		Str("conn_id", connID.String()).
		Msg("feed connection registered")

	return connID
}

// Unregister removes a connection and its session subscriptions.
func (h *Hub) Unregister(connID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conn, exists := h.connections[connID]; exists {
		conn.Close()
		delete(h.connections, connID)
	}

	for sessionID, conns := range h.sessions {
		for i, id := range conns {
			if id == connID {
				h.sessions[sessionID] = append(conns[:i], conns[i+1:]...)
				break
			}
		}
		if len(h.sessions[sessionID]) == 0 {
			delete(h.sessions, sessionID)
		}
	}
}

// DropSession closes and forgets every connection subscribed to a session.
func (h *Hub) DropSession(sessionID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, connID := range h.sessions[sessionID] {
		if conn, exists := h.connections[connID]; exists {
			conn.Close()
			delete(h.connections, connID)
		}
	}
	delete(h.sessions, sessionID)
}

// Broadcast sends a message to every client subscribed to a session.
func (h *Hub) Broadcast(sessionID uuid.UUID, msg Message) {
	h.mu.RLock()
	connIDs := append([]uuid.UUID(nil), h.sessions[sessionID]...)
	h.mu.RUnlock()

	for _, connID := range connIDs {
		h.mu.RLock()
		conn, exists := h.connections[connID]
		h.mu.RUnlock()
		if !exists {
			continue
		}
		if err := conn.Send(msg); err != nil {
			h.logger.Warn().Err(err).
				Str("session_id", sessionID.String()).
				Str("conn_id", connID.String()).
				Msg("feed send failed")
		}
	}
}

// Connection represents a WebSocket connection with a buffered send queue.
type Connection struct {
	conn   *websocket.Conn
	sendCh chan Message
	mu     sync.Mutex
	closed bool
	logger zerolog.Logger
}

// NewConnection wraps a WebSocket connection.
func NewConnection(conn *websocket.Conn, logger zerolog.Logger) *Connection {
	return &Connection{
		conn:   conn,
		sendCh: make(chan Message, 256),
		logger: logger,
	}
}

// Send queues a message for delivery.
func (c *Connection) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnectionClosed
	}

	select {
	case c.sendCh <- msg:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Close shuts down the connection.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	close(c.sendCh)
	c.conn.Close()
}

// WritePump drains the send queue onto the wire. Runs until the queue is
// closed or a write fails.
func (c *Connection) WritePump() {
	defer c.conn.Close()

	for msg := range c.sendCh {
		c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteJSON(msg); err != nil {
			c.logger.Debug().Err(err).Msg("feed write failed")
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// ReadPump consumes inbound frames (only ping/pong expected) until the
// client disconnects or goes silent past the read deadline. onClose runs
// exactly once afterwards.
func (c *Connection) ReadPump(onClose func()) {
	defer onClose()
	defer c.conn.Close()

	// 60s read deadline, extended on pong or any inbound frame, so a
	// dead peer that never sends a FIN still unblocks the pump.
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug().Err(err).Msg("feed read failed")
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		if msg.Type == TypePing {
			_ = c.Send(Message{Type: TypePong})
		}
	}
}
