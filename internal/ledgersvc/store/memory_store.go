package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/avvvet/chipledger-services/internal/ledgersvc/models"
	"github.com/google/uuid"
)

// MemoryStore is an in-process store with the same constraints as the
// database backends. It is used for local runs and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
	players  map[string]*models.Player
	order    []string // player ids in insertion order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*models.Session),
		players:  make(map[string]*models.Player),
	}
}

func (s *MemoryStore) GetActiveSession(ctx context.Context, ownerID string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var newest *models.Session
	for _, sess := range s.sessions {
		if sess.OwnerID != ownerID || !sess.IsActive {
			continue
		}
		if newest == nil || sess.Date.After(newest.Date) {
			newest = sess
		}
	}
	if newest == nil {
		return nil, nil
	}
	cp := *newest
	return &cp, nil
}

func (s *MemoryStore) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *sess
	return &cp, nil
}

func (s *MemoryStore) ListSessions(ctx context.Context, ownerID string) ([]*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Session
	for _, sess := range s.sessions {
		if sess.OwnerID == ownerID {
			cp := *sess
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (s *MemoryStore) CreateActiveSession(ctx context.Context, ownerID string, date time.Time) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sess := range s.sessions {
		if sess.OwnerID == ownerID && sess.IsActive {
			return nil, ErrActiveSessionExists
		}
	}
	sess := &models.Session{ID: uuid.NewString(), OwnerID: ownerID, Date: date, IsActive: true}
	s.sessions[sess.ID] = sess
	cp := *sess
	return &cp, nil
}

// PutSession stores sess as is, bypassing the one-active-session check.
// Tests use it to seed states the database constraints would reject.
func (s *MemoryStore) PutSession(sess models.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = &sess
}

func (s *MemoryStore) ArchiveSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok || !sess.IsActive {
		return ErrNotFound
	}
	sess.IsActive = false
	return nil
}

func (s *MemoryStore) GetPlayersBySessionID(ctx context.Context, sessionID string) ([]*models.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Player
	for _, id := range s.order {
		p, ok := s.players[id]
		if !ok || p.SessionID != sessionID {
			continue
		}
		cp := p.Clone()
		out = append(out, &cp)
	}
	sortBySeat(out)
	return out, nil
}

func (s *MemoryStore) GetPlayer(ctx context.Context, playerID string) (*models.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.players[playerID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := p.Clone()
	return &cp, nil
}

func (s *MemoryStore) CreatePlayer(ctx context.Context, player models.Player) (*models.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[player.SessionID]
	if !ok || !sess.IsActive {
		return nil, fmt.Errorf("session %s: %w", player.SessionID, ErrNotFound)
	}
	if player.Seated() {
		for _, p := range s.players {
			if p.SessionID == player.SessionID && p.SeatIndex() == player.SeatIndex() {
				return nil, fmt.Errorf("seat %d: %w", player.SeatIndex(), ErrSeatTaken)
			}
		}
	}

	p := player.Clone()
	p.ID = uuid.NewString()
	s.players[p.ID] = &p
	s.order = append(s.order, p.ID)

	cp := p.Clone()
	return &cp, nil
}

func (s *MemoryStore) UpdateEndgameChips(ctx context.Context, playerID string, value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[playerID]
	if !ok {
		return ErrNotFound
	}
	p.EndgameChips = value
	return nil
}

func (s *MemoryStore) UpdatePlayer(ctx context.Context, playerID, name string, chips int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[playerID]
	if !ok {
		return ErrNotFound
	}
	p.Name = name
	p.Chips = chips
	return nil
}

func (s *MemoryStore) DeletePlayer(ctx context.Context, playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.players[playerID]; !ok {
		return ErrNotFound
	}
	delete(s.players, playerID)
	for i, id := range s.order {
		if id == playerID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}
