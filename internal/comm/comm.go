package comm

import (
	"encoding/json"
)

// subjects
const (
	SocketSubject = "socket.service" // socketsvc -> ledgersvc
	LedgerSubject = "ledger.service" // ledgersvc -> socketsvc
)

// message types
const (
	TypeInit               = "init"
	TypeGetSummary         = "get-summary"
	TypeUpdateEndgameChips = "update-endgame-chips"
	TypeSignOut            = "sign-out"
	TypeDisconnect         = "disconnect"

	TypeInitResponse     = "init-response"
	TypeSummaryResponse  = "summary-response"
	TypeSummaryBroadcast = "summary-broadcast"
	TypeErrorResponse    = "error-response"
)

type WSMessage struct {
	Type     string          `json:"type"` // e.g. "init", "get-summary"
	Data     json.RawMessage `json:"data"`
	SocketId string          `json:"socketid"`
	OwnerId  string          `json:"ownerid,omitempty"` // set by socketsvc from the socket's token
	RoomId   string          `json:"roomid,omitempty"`  // session id for room broadcasts
}

type EndgameChipsUpdate struct {
	PlayerId string `json:"player_id"`
	Value    string `json:"value"` // raw input, parsed by the ledger
}

type ErrorData struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// NewMessage marshals data into a WSMessage.
func NewMessage(msgType string, data any) (*WSMessage, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &WSMessage{Type: msgType, Data: raw}, nil
}
