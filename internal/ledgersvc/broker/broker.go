package broker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/avvvet/chipledger-services/internal/comm"
	"github.com/avvvet/chipledger-services/internal/ledgersvc/models"
	"github.com/avvvet/chipledger-services/internal/ledgersvc/service"
	"github.com/avvvet/chipledger-services/internal/ledgersvc/store"
	"github.com/avvvet/chipledger-services/internal/ledgersvc/table"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// Conn is the part of *nats.Conn the broker publishes with.
type Conn interface {
	Publish(subj string, data []byte) error
}

type Broker struct {
	Conn         Conn
	TableService *service.TableService

	loaders sync.Map // socketId -> *service.Loader
	timeout time.Duration
}

func NewBroker(conn Conn) *Broker {
	return &Broker{
		Conn:    conn,
		timeout: 10 * time.Second,
	}
}

// Subscribe consumes socket service messages on topic.
func (b *Broker) Subscribe(nc *nats.Conn, topic string) (*nats.Subscription, error) {
	return nc.Subscribe(topic, b.handleNats)
}

func (b *Broker) handleNats(msgNats *nats.Msg) {
	msg := &comm.WSMessage{}
	if err := json.Unmarshal(msgNats.Data, msg); err != nil {
		log.Errorf("Error nats message %s", err)
		return
	}
	b.HandleMessage(msg)
}

// HandleMessage serves one socket message. Loads run in their own goroutine
// so a slow store does not hold up the subscription.
func (b *Broker) HandleMessage(msg *comm.WSMessage) {
	switch msg.Type {
	case comm.TypeInit:
		if msg.OwnerId == "" {
			b.publishError(msg.SocketId, errors.New("init without owner"), http.StatusUnauthorized)
			return
		}
		l := b.loader(msg.SocketId)
		l.SetOwner(msg.OwnerId)
		go b.sendSummary(l, msg.SocketId, comm.TypeInitResponse)
	case comm.TypeGetSummary:
		go b.sendSummary(b.loader(msg.SocketId), msg.SocketId, comm.TypeSummaryResponse)
	case comm.TypeUpdateEndgameChips:
		var request comm.EndgameChipsUpdate
		if err := json.Unmarshal(msg.Data, &request); err != nil {
			log.Errorf("Error decoding request: %s", err)
			b.publishError(msg.SocketId, err, http.StatusBadRequest)
			return
		}
		// the socket's loader owner, not the message, decides who may write;
		// it is cleared on sign-out and dropped on disconnect
		owner := b.loader(msg.SocketId).Owner()
		if owner == "" {
			b.publishError(msg.SocketId, service.ErrNoOwner, http.StatusUnauthorized)
			return
		}
		go b.updateEndgameChips(msg.SocketId, owner, request)
	case comm.TypeSignOut:
		b.loader(msg.SocketId).SetOwner("")
	case comm.TypeDisconnect:
		if l, ok := b.loaders.LoadAndDelete(msg.SocketId); ok {
			l.(*service.Loader).SetOwner("")
		}
	default:
		log.Warnf("unknown message type: %s", msg.Type)
	}
}

func (b *Broker) loader(socketId string) *service.Loader {
	l, _ := b.loaders.LoadOrStore(socketId, service.NewLoader(b.TableService))
	return l.(*service.Loader)
}

func (b *Broker) sendSummary(l *service.Loader, socketId, msgType string) {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	t, err := l.Load(ctx)
	switch {
	case errors.Is(err, service.ErrStaleLoad):
		log.Debugf("dropping stale load for socket %s", socketId)
		return
	case err != nil:
		b.publishError(socketId, err, statusOf(err))
		return
	}

	summary := b.TableService.SummaryOf(t)
	msg, err := comm.NewMessage(msgType, summary)
	if err != nil {
		log.Errorf("Error marshal summary %s", err)
		return
	}
	msg.SocketId = socketId
	msg.RoomId = summary.SessionID
	b.publish(msg)
}

func (b *Broker) updateEndgameChips(socketId, ownerId string, request comm.EndgameChipsUpdate) {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	res := b.TableService.UpdateEndgameChips(ctx, ownerId, request.PlayerId, request.Value)
	if !res.Ok() {
		b.publishError(socketId, res.Err, statusOf(res.Err))
	}
	// success is broadcast to the room through PublishSummary
}

// PublishSummary broadcasts summary to every socket watching its session.
func (b *Broker) PublishSummary(ownerID string, summary models.MoneySummary) {
	msg, err := comm.NewMessage(comm.TypeSummaryBroadcast, summary)
	if err != nil {
		log.Errorf("Error marshal summary %s", err)
		return
	}
	msg.OwnerId = ownerID
	msg.RoomId = summary.SessionID
	b.publish(msg)
}

func (b *Broker) publishError(socketId string, err error, code int) {
	msg, mErr := comm.NewMessage(comm.TypeErrorResponse, comm.ErrorData{Error: err.Error(), Code: code})
	if mErr != nil {
		log.Errorf("Error marshal error response %s", mErr)
		return
	}
	msg.SocketId = socketId
	b.publish(msg)
}

func (b *Broker) publish(msg *comm.WSMessage) {
	bytes, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("Failed to marshal WSMessage for NATS: %v", err)
		return
	}
	if err := b.Conn.Publish(comm.LedgerSubject, bytes); err != nil {
		log.Errorf("Error publishing to topic %s: %s", comm.LedgerSubject, err)
	}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrNoActiveSession),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, table.ErrPlayerNotFound):
		return http.StatusNotFound
	case errors.Is(err, table.ErrInvalidChips):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNoOwner):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
