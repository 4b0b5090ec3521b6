package broker

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/chipledger-services/internal/comm"
	"github.com/avvvet/chipledger-services/internal/socketsvc/ws"
)

func connect(t *testing.T, s *ws.Ws, socketId string) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	ready := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		s.StoreConnection(socketId, "owner", conn)
		close(ready)
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	<-ready
	return client
}

func read(t *testing.T, c *websocket.Conn) comm.WSMessage {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg comm.WSMessage
	require.NoError(t, c.ReadJSON(&msg))
	return msg
}

func TestInitResponseJoinsRoom(t *testing.T) {
	s := ws.NewWs()
	b := NewBroker(nil, s)
	c1 := connect(t, s, "s1")
	c2 := connect(t, s, "s2")

	b.HandleMessage(&comm.WSMessage{Type: comm.TypeInitResponse, SocketId: "s1", RoomId: "session-1", Data: []byte(`{}`)})
	msg := read(t, c1)
	assert.Equal(t, comm.TypeInitResponse, msg.Type)
	assert.Empty(t, msg.OwnerId)

	room, ok := s.GetRoom("s1")
	require.True(t, ok)
	assert.Equal(t, "session-1", room)

	b.HandleMessage(&comm.WSMessage{Type: comm.TypeInitResponse, SocketId: "s2", RoomId: "session-1", Data: []byte(`{}`)})
	read(t, c2)

	b.HandleMessage(&comm.WSMessage{Type: comm.TypeSummaryBroadcast, RoomId: "session-1", OwnerId: "owner", Data: []byte(`{"money_on_table":100}`)})
	for _, c := range []*websocket.Conn{c1, c2} {
		msg := read(t, c)
		assert.Equal(t, comm.TypeSummaryBroadcast, msg.Type)
		assert.JSONEq(t, `{"money_on_table":100}`, string(msg.Data))
	}
}

func TestErrorResponseGoesToOneSocket(t *testing.T) {
	s := ws.NewWs()
	b := NewBroker(nil, s)
	c1 := connect(t, s, "s1")

	b.HandleMessage(&comm.WSMessage{Type: comm.TypeErrorResponse, SocketId: "s1", Data: []byte(`{"error":"boom","code":500}`)})
	msg := read(t, c1)
	assert.Equal(t, comm.TypeErrorResponse, msg.Type)
	assert.Equal(t, "s1", msg.SocketId)
}
