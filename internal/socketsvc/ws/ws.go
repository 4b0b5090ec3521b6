package ws

import (
	"encoding/json"
	"sync"

	"github.com/avvvet/chipledger-services/internal/comm"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// Publisher forwards client messages to the ledger service.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Client is one browser connection. gorilla connections allow a single
// concurrent writer, so writes go through Send.
type Client struct {
	conn    *websocket.Conn
	OwnerId string
	mu      sync.Mutex
}

func (c *Client) Send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

type Ws struct {
	connMap sync.Map // socketId -> *Client
	roomMap sync.Map // socketId -> roomId (session id)
	Broker  Publisher
}

func NewWs() *Ws {
	return &Ws{}
}

// SocketMessage handles a message from a web client.
func (s *Ws) SocketMessage(socketId string, message *comm.WSMessage) {
	switch message.Type {
	case comm.TypeInit, comm.TypeGetSummary, comm.TypeUpdateEndgameChips:
		s.forward(socketId, message)
	case comm.TypeSignOut:
		s.roomMap.Delete(socketId)
		s.forward(socketId, message)
	default:
		log.Warnf("unknown event received: %s", message.Type)
	}
}

// forward stamps the message with the socket and its authenticated owner
// and publishes it to the ledger service. Client supplied ids are ignored.
func (s *Ws) forward(socketId string, msg *comm.WSMessage) {
	client, ok := s.GetConnection(socketId)
	if !ok {
		return
	}
	msg.SocketId = socketId
	msg.OwnerId = client.OwnerId
	msg.RoomId = ""

	bytes, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("Failed to marshal WSMessage for NATS: %v", err)
		return
	}

	if err := s.Broker.Publish(comm.SocketSubject, bytes); err != nil {
		log.Errorf("Failed to publish to NATS topic %s: %v", comm.SocketSubject, err)
		return
	}

	log.Debugf("Published %s message for socket %s", msg.Type, socketId)
}

func (s *Ws) StoreConnection(socketId, ownerId string, conn *websocket.Conn) *Client {
	c := &Client{conn: conn, OwnerId: ownerId}
	s.connMap.Store(socketId, c)
	return c
}

func (s *Ws) GetConnection(socketId string) (*Client, bool) {
	c, ok := s.connMap.Load(socketId)
	if !ok {
		return nil, false
	}
	return c.(*Client), true
}

// HandleDisconnect forgets the socket and tells the ledger to drop its state.
func (s *Ws) HandleDisconnect(socketId string) {
	s.forward(socketId, &comm.WSMessage{Type: comm.TypeDisconnect})
	s.connMap.Delete(socketId)
	s.roomMap.Delete(socketId)
}

func (s *Ws) StoreRoom(socketId string, roomId string) {
	s.roomMap.Store(socketId, roomId)
}

func (s *Ws) GetRoom(socketId string) (string, bool) {
	room, ok := s.roomMap.Load(socketId)
	if !ok {
		return "", false
	}
	return room.(string), true
}

func (s *Ws) GetRoomSockets(roomId string) ([]string, bool) {
	var sockets []string

	s.roomMap.Range(func(key, value interface{}) bool {
		if value.(string) == roomId {
			sockets = append(sockets, key.(string))
		}
		return true
	})

	return sockets, len(sockets) > 0
}
