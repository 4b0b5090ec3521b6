package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avvvet/chipledger-services/internal/ledgersvc/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SessionStore struct {
	db *pgxpool.Pool
}

func NewSessionStore(db *pgxpool.Pool) *SessionStore {
	return &SessionStore{db: db}
}

// GetActiveSession returns the owner's active session, or nil when the
// table has not been opened yet.
func (s *SessionStore) GetActiveSession(ctx context.Context, ownerID string) (*models.Session, error) {
	query := `
		SELECT id, owner_id, date, is_active
		FROM sessions
		WHERE owner_id = $1 AND is_active
		ORDER BY date DESC
		LIMIT 1
	`

	session := &models.Session{}
	err := s.db.QueryRow(ctx, query, ownerID).Scan(
		&session.ID,
		&session.OwnerID,
		&session.Date,
		&session.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}

	return session, nil
}

func (s *SessionStore) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	query := `
		SELECT id, owner_id, date, is_active
		FROM sessions
		WHERE id = $1
	`

	session := &models.Session{}
	err := s.db.QueryRow(ctx, query, sessionID).Scan(
		&session.ID,
		&session.OwnerID,
		&session.Date,
		&session.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

// ListSessions returns every session of the owner, newest first.
func (s *SessionStore) ListSessions(ctx context.Context, ownerID string) ([]*models.Session, error) {
	query := `
		SELECT id, owner_id, date, is_active
		FROM sessions
		WHERE owner_id = $1
		ORDER BY date DESC
	`

	rows, err := s.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		var session models.Session
		err := rows.Scan(
			&session.ID,
			&session.OwnerID,
			&session.Date,
			&session.IsActive,
		)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, &session)
	}

	return sessions, rows.Err()
}

// CreateActiveSession opens a new session. The partial unique index on
// owner_id makes this a single compare-and-swap: a concurrent second open
// for the same owner fails with ErrActiveSessionExists.
func (s *SessionStore) CreateActiveSession(ctx context.Context, ownerID string, date time.Time) (*models.Session, error) {
	const query = `
INSERT INTO sessions (id, owner_id, date, is_active)
VALUES ($1, $2, $3, TRUE)
RETURNING id, owner_id, date, is_active;
`
	session := &models.Session{}
	err := s.db.QueryRow(ctx, query, uuid.NewString(), ownerID, date).Scan(
		&session.ID,
		&session.OwnerID,
		&session.Date,
		&session.IsActive,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == activeSessionConstraint {
			return nil, ErrActiveSessionExists
		}
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

func (s *SessionStore) ArchiveSession(ctx context.Context, sessionID string) error {
	ct, err := s.db.Exec(ctx, `UPDATE sessions SET is_active = FALSE WHERE id = $1 AND is_active`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to archive session: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
