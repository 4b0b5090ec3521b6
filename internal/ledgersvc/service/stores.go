package service

import (
	"context"
	"errors"
	"time"

	"github.com/avvvet/chipledger-services/internal/ledgersvc/models"
)

var (
	ErrNoActiveSession = errors.New("no active session found")
	ErrNoChanges       = errors.New("no chips were updated")
	ErrNoOwner         = errors.New("no owner signed in")
	ErrStaleLoad       = errors.New("owner changed while loading")
)

// SessionStore is the persistence contract for sessions. GetActiveSession
// returns nil, nil when the owner has no open table.
type SessionStore interface {
	GetActiveSession(ctx context.Context, ownerID string) (*models.Session, error)
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
	ListSessions(ctx context.Context, ownerID string) ([]*models.Session, error)
	CreateActiveSession(ctx context.Context, ownerID string, date time.Time) (*models.Session, error)
	ArchiveSession(ctx context.Context, sessionID string) error
}

// PlayerStore is the persistence contract for players.
type PlayerStore interface {
	GetPlayersBySessionID(ctx context.Context, sessionID string) ([]*models.Player, error)
	GetPlayer(ctx context.Context, playerID string) (*models.Player, error)
	CreatePlayer(ctx context.Context, player models.Player) (*models.Player, error)
	UpdateEndgameChips(ctx context.Context, playerID string, value int) error
	UpdatePlayer(ctx context.Context, playerID, name string, chips int) error
	DeletePlayer(ctx context.Context, playerID string) error
}

// Publisher is told about every table change so live views can refresh.
type Publisher interface {
	PublishSummary(ownerID string, summary models.MoneySummary)
}
