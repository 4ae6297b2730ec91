package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{}

// dialPair returns a server-side Connection and the client socket talking
// to it.
func dialPair(t *testing.T) (*Connection, *websocket.Conn) {
	t.Helper()

	connCh := make(chan *Connection, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		connCh <- NewConnection(raw, zerolog.Nop())
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	select {
	case conn := <-connCh:
		return conn, client
	case <-time.After(2 * time.Second):
		t.Fatal("server side never saw the connection")
		return nil, nil
	}
}

func TestReadPumpRunsOnCloseWhenPeerDisconnects(t *testing.T) {
	conn, client := dialPair(t)

	done := make(chan struct{})
	go conn.ReadPump(func() { close(done) })

	client.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("onClose never ran after the peer disconnected")
	}
}

func TestWritePumpDeliversQueuedMessages(t *testing.T) {
	conn, client := dialPair(t)

	go conn.WritePump()
	require.NoError(t, conn.Send(Message{Type: TypeClockTick}))

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	require.NoError(t, client.ReadJSON(&msg))
	assert.Equal(t, TypeClockTick, msg.Type)

	conn.Close()
	assert.ErrorIs(t, conn.Send(Message{Type: TypeClockTick}), ErrConnectionClosed)

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	assert.Error(t, client.ReadJSON(&msg))
}

func TestReadPumpRepliesToPing(t *testing.T) {
	conn, client := dialPair(t)

	go conn.WritePump()
	go conn.ReadPump(func() {})

	require.NoError(t, client.WriteJSON(Message{Type: TypePing}))

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	require.NoError(t, client.ReadJSON(&msg))
	assert.Equal(t, TypePong, msg.Type)
}

func TestHubBroadcastSkipsUnregisteredConnections(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	conn, client := dialPair(t)
	go conn.WritePump()

	sessionID := uuid.New()
	connID := hub.Register(sessionID, conn)

	hub.Broadcast(sessionID, Message{Type: TypeStatusChanged})
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	require.NoError(t, client.ReadJSON(&msg))
	assert.Equal(t, TypeStatusChanged, msg.Type)

	hub.Unregister(connID)
	assert.ErrorIs(t, conn.Send(Message{Type: TypeStatusChanged}), ErrConnectionClosed)
}
