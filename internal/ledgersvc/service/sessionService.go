package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/avvvet/chipledger-services/internal/ledgersvc/models"
	"github.com/avvvet/chipledger-services/internal/ledgersvc/store"
	"github.com/coder/quartz"
	log "github.com/sirupsen/logrus"
)

type SessionService struct {
	store SessionStore
	clock quartz.Clock
}

func NewSessionService(store SessionStore, clock quartz.Clock) *SessionService {
	return &SessionService{store: store, clock: clock}
}

// GetActiveSession returns ErrNoActiveSession when the owner has not opened
// a table yet.
func (s *SessionService) GetActiveSession(ctx context.Context, ownerID string) (*models.Session, error) {
	session, err := s.store.GetActiveSession(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrNoActiveSession
	}
	return session, nil
}

func (s *SessionService) ListSessions(ctx context.Context, ownerID string) ([]*models.Session, error) {
	return s.store.ListSessions(ctx, ownerID)
}

// OpenSession opens a table for ownerID. The store decides atomically; a
// second open while one is active fails with store.ErrActiveSessionExists.
func (s *SessionService) OpenSession(ctx context.Context, ownerID string) (*models.Session, error) {
	session, err := s.store.CreateActiveSession(ctx, ownerID, s.clock.Now())
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"owner": ownerID, "session": session.ID}).Info("session opened")
	return session, nil
}

// ArchiveSession closes the owner's session. Sessions of other owners look
// the same as missing ones.
func (s *SessionService) ArchiveSession(ctx context.Context, ownerID, sessionID string) error {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.OwnerID != ownerID {
		return fmt.Errorf("session %s: %w", sessionID, store.ErrNotFound)
	}
	if err := s.store.ArchiveSession(ctx, sessionID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("session %s is not active: %w", sessionID, err)
		}
		return err
	}
	log.WithFields(log.Fields{"owner": ownerID, "session": sessionID}).Info("session archived")
	return nil
}
