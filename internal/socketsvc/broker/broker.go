package broker

import (
	"encoding/json"

	"github.com/avvvet/chipledger-services/internal/comm"
	"github.com/avvvet/chipledger-services/internal/socketsvc/ws"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

type Broker struct {
	Conn           *nats.Conn
	GetConnection  func(string) (*ws.Client, bool)
	GetRoomSockets func(string) ([]string, bool)
	StoreRoom      func(socketId, roomId string)
}

func NewBroker(conn *nats.Conn, s *ws.Ws) *Broker {
	return &Broker{
		Conn:           conn,
		GetConnection:  s.GetConnection,
		GetRoomSockets: s.GetRoomSockets,
		StoreRoom:      s.StoreRoom,
	}
}

// Subscribe consumes messages from the ledger service.
func (b *Broker) Subscribe(topic string) (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(topic, b.handleNats)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

// Publish sends a client message to the ledger service.
func (b *Broker) Publish(topic string, payload []byte) error {
	err := b.Conn.Publish(topic, payload)
	if err != nil {
		log.Errorf("Error publishing to topic %s: %s", topic, err)
		return err
	}

	return nil
}

func (b *Broker) handleNats(msgNats *nats.Msg) {
	message := &comm.WSMessage{}
	if err := json.Unmarshal(msgNats.Data, message); err != nil {
		log.Errorf("Error %s", err)
		return
	}
	b.HandleMessage(message)
}

// HandleMessage routes a ledger message to its socket or room.
func (b *Broker) HandleMessage(message *comm.WSMessage) {
	switch message.Type {
	case comm.TypeInitResponse:
		if message.RoomId != "" {
			b.StoreRoom(message.SocketId, message.RoomId)
		}
		b.sendMessage(message.SocketId, message)
	case comm.TypeSummaryResponse, comm.TypeErrorResponse:
		b.sendMessage(message.SocketId, message)
	case comm.TypeSummaryBroadcast:
		sockets, ok := b.GetRoomSockets(message.RoomId)
		if !ok {
			return
		}
		for _, socketId := range sockets {
			b.sendMessage(socketId, message)
		}
	default:
		log.Errorf("Unknown message %s", message.Type)
	}
}

// sendMessage writes m to the web client, without internal routing fields.
func (b *Broker) sendMessage(socketId string, m *comm.WSMessage) {
	client, ok := b.GetConnection(socketId)
	if !ok {
		return
	}
	out := comm.WSMessage{Type: m.Type, Data: m.Data, SocketId: socketId, RoomId: m.RoomId}
	if err := client.Send(out); err != nil {
		log.Errorf("Error writing to socket %s: %s", socketId, err)
	}
}
