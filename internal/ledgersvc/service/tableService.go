package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/avvvet/chipledger-services/internal/ledgersvc/models"
	"github.com/avvvet/chipledger-services/internal/ledgersvc/settlement"
	"github.com/avvvet/chipledger-services/internal/ledgersvc/store"
	"github.com/avvvet/chipledger-services/internal/ledgersvc/table"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// TableService runs the seat model and the settlement over stored records.
// Every call names its owner explicitly.
type TableService struct {
	sessions  SessionStore
	players   PlayerStore
	publisher Publisher
	parse     table.ParsePolicy
	chipValue decimal.Decimal
}

type Option func(*TableService)

func WithPublisher(p Publisher) Option {
	return func(s *TableService) { s.publisher = p }
}

func WithParsePolicy(p table.ParsePolicy) Option {
	return func(s *TableService) { s.parse = p }
}

// WithChipValue sets the cash value of one chip used in summaries.
func WithChipValue(v decimal.Decimal) Option {
	return func(s *TableService) { s.chipValue = v }
}

func NewTableService(sessions SessionStore, players PlayerStore, opts ...Option) *TableService {
	s := &TableService{
		sessions:  sessions,
		players:   players,
		parse:     table.ParseStrict,
		chipValue: decimal.NewFromInt(1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// activeSession returns the owner's newest active session. More than one
// active session means the store let a race through; it is logged so it can
// be archived by hand.
func (s *TableService) activeSession(ctx context.Context, ownerID string) (*models.Session, error) {
	sessions, err := s.sessions.ListSessions(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}

	var active *models.Session
	for _, sess := range sessions {
		if !sess.IsActive {
			continue
		}
		if active == nil {
			active = sess
			continue
		}
		log.WithFields(log.Fields{"owner": ownerID, "session": sess.ID, "kept": active.ID}).
			Warn("owner has more than one active session")
	}
	if active == nil {
		return nil, ErrNoActiveSession
	}
	return active, nil
}

// LoadTable fetches the owner's active session and its players and indexes
// them by seat.
func (s *TableService) LoadTable(ctx context.Context, ownerID string) (*table.Table, error) {
	session, err := s.activeSession(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	players, err := s.players.GetPlayersBySessionID(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load players: %w", err)
	}

	t, err := table.Load(session.ID, players)
	if err != nil {
		return nil, err
	}
	return t.WithParsePolicy(s.parse), nil
}

// SeatPlayer creates a player at seat in the owner's active session.
func (s *TableService) SeatPlayer(ctx context.Context, ownerID string, seat int, name string, chips int) (*models.Player, error) {
	t, err := s.LoadTable(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	player, err := models.NewPlayer(t.SessionID, name, chips, models.SeatPtr(seat))
	if err != nil {
		return nil, err
	}

	res := table.Apply(t, func(next *table.Table) error {
		candidate := player.Clone()
		return next.PlacePlayer(seat, &candidate)
	})
	if !res.Ok() {
		return nil, res.Err
	}

	created, err := s.players.CreatePlayer(ctx, player)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, ownerID)
	return created, nil
}

// GetPlayer returns one of the owner's players.
func (s *TableService) GetPlayer(ctx context.Context, ownerID, playerID string) (*models.Player, error) {
	return s.ownedPlayer(ctx, ownerID, playerID)
}

// RemovePlayer deletes one of the owner's players, freeing its seat.
func (s *TableService) RemovePlayer(ctx context.Context, ownerID, playerID string) error {
	if _, err := s.ownedPlayer(ctx, ownerID, playerID); err != nil {
		return err
	}
	if err := s.players.DeletePlayer(ctx, playerID); err != nil {
		return err
	}
	s.publish(ctx, ownerID)
	return nil
}

// EditPlayer corrects a player's name and buy-in. End-game chips that were
// never edited follow the new buy-in.
func (s *TableService) EditPlayer(ctx context.Context, ownerID, playerID, name string, chips int) (*models.Player, error) {
	p, err := s.ownedPlayer(ctx, ownerID, playerID)
	if err != nil {
		return nil, err
	}

	edited := p.Clone()
	edited.Name = name
	edited.Chips = chips
	untouched := p.EndgameChips == p.Chips
	if untouched {
		edited.EndgameChips = chips
	}
	if err := edited.Validate(); err != nil {
		return nil, err
	}
	edited.Name = strings.TrimSpace(edited.Name)

	if err := s.players.UpdatePlayer(ctx, playerID, edited.Name, edited.Chips); err != nil {
		return nil, err
	}
	if untouched {
		if err := s.players.UpdateEndgameChips(ctx, playerID, edited.EndgameChips); err != nil {
			return nil, err
		}
	}

	s.publish(ctx, ownerID)
	return &edited, nil
}

// UpdateEndgameChips parses raw for playerID and persists it. The returned
// result carries the new table only when both the edit and the write
// succeeded; on error the caller keeps its previous state.
func (s *TableService) UpdateEndgameChips(ctx context.Context, ownerID, playerID, raw string) table.Result {
	t, err := s.LoadTable(ctx, ownerID)
	if err != nil {
		return table.Result{Err: err}
	}

	res := table.Apply(t, func(next *table.Table) error {
		return next.UpdateEndgameChips(playerID, raw)
	})
	if !res.Ok() {
		return res
	}

	p, _ := res.Table.Player(playerID)
	if err := s.players.UpdateEndgameChips(ctx, playerID, p.EndgameChips); err != nil {
		return table.Result{Err: err}
	}

	s.publishTable(ownerID, res.Table)
	return res
}

// SaveEndgameChips applies values (player id to end-game chips) and writes
// the ones that changed. Writes run concurrently, one per player, with no
// transaction around them; the first failure is returned.
func (s *TableService) SaveEndgameChips(ctx context.Context, ownerID string, values map[string]int) (int, error) {
	t, err := s.LoadTable(ctx, ownerID)
	if err != nil {
		return 0, err
	}

	changed := make(map[string]int)
	res := table.Apply(t, func(next *table.Table) error {
		for id, v := range values {
			p, ok := next.Player(id)
			if !ok {
				return fmt.Errorf("%w: %s", table.ErrPlayerNotFound, id)
			}
			if p.EndgameChips == v {
				continue
			}
			if err := next.SetEndgameChips(id, v); err != nil {
				return err
			}
			changed[id] = v
		}
		return nil
	})
	if !res.Ok() {
		return 0, res.Err
	}
	if len(changed) == 0 {
		return 0, ErrNoChanges
	}

	g, gctx := errgroup.WithContext(ctx)
	for id, v := range changed {
		g.Go(func() error {
			if err := s.players.UpdateEndgameChips(gctx, id, v); err != nil {
				return fmt.Errorf("player %s: %w", id, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.WithField("owner", ownerID).Errorf("Error saving updated chips: %s", err)
		return 0, err
	}

	s.publishTable(ownerID, res.Table)
	return len(changed), nil
}

// Summary loads the owner's table and settles it.
func (s *TableService) Summary(ctx context.Context, ownerID string) (models.MoneySummary, error) {
	t, err := s.LoadTable(ctx, ownerID)
	if err != nil {
		return models.MoneySummary{}, err
	}
	return s.SummaryOf(t), nil
}

// SummaryOf settles an already loaded table.
func (s *TableService) SummaryOf(t *table.Table) models.MoneySummary {
	return settlement.Summarize(t.SessionID, t.Players(), s.chipValue)
}

// ownedPlayer returns playerID if it belongs to the owner's active session.
func (s *TableService) ownedPlayer(ctx context.Context, ownerID, playerID string) (*models.Player, error) {
	session, err := s.activeSession(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	p, err := s.players.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if p.SessionID != session.ID {
		return nil, fmt.Errorf("player %s: %w", playerID, store.ErrNotFound)
	}
	return p, nil
}

func (s *TableService) publish(ctx context.Context, ownerID string) {
	if s.publisher == nil {
		return
	}
	t, err := s.LoadTable(ctx, ownerID)
	if err != nil {
		if !errors.Is(err, ErrNoActiveSession) {
			log.Errorf("Error reloading table for broadcast: %s", err)
		}
		return
	}
	s.publishTable(ownerID, t)
}

func (s *TableService) publishTable(ownerID string, t *table.Table) {
	if s.publisher == nil {
		return
	}
	s.publisher.PublishSummary(ownerID, s.SummaryOf(t))
}
