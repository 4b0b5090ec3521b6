package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/avvvet/chipledger-services/internal/ledgersvc/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PlayerStore struct {
	db *pgxpool.Pool
}

func NewPlayerStore(db *pgxpool.Pool) *PlayerStore {
	return &PlayerStore{db: db}
}

// GetPlayersBySessionID returns the session's players ordered by seat,
// unseated players last.
func (s *PlayerStore) GetPlayersBySessionID(ctx context.Context, sessionID string) ([]*models.Player, error) {
	query := `
		SELECT id, session_id, name, chips, endgame_chips, seat
		FROM players
		WHERE session_id = $1
		ORDER BY seat ASC NULLS LAST, created_at ASC
	`

	rows, err := s.db.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []*models.Player
	for rows.Next() {
		var p models.Player
		err := rows.Scan(
			&p.ID,
			&p.SessionID,
			&p.Name,
			&p.Chips,
			&p.EndgameChips,
			&p.Seat,
		)
		if err != nil {
			return nil, err
		}
		players = append(players, &p)
	}

	return players, rows.Err()
}

func (s *PlayerStore) GetPlayer(ctx context.Context, playerID string) (*models.Player, error) {
	query := `
		SELECT id, session_id, name, chips, endgame_chips, seat
		FROM players
		WHERE id = $1
	`

	p := &models.Player{}
	err := s.db.QueryRow(ctx, query, playerID).Scan(
		&p.ID,
		&p.SessionID,
		&p.Name,
		&p.Chips,
		&p.EndgameChips,
		&p.Seat,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}

	return p, nil
}

// CreatePlayer inserts a player. It fails with ErrSeatTaken when the seat is
// already held in the same session (unique_session_seat), and with
// ErrNotFound when the session is missing or archived.
func (s *PlayerStore) CreatePlayer(ctx context.Context, player models.Player) (*models.Player, error) {
	// CTE locks the session row and enforces is_active
	const query = `
WITH locked_session AS (
  SELECT id
  FROM sessions
  WHERE id = $2
    AND is_active
  FOR UPDATE
)
INSERT INTO players (id, session_id, name, chips, endgame_chips, seat)
SELECT $1, ls.id, $3, $4, $5, $6
FROM locked_session ls
RETURNING id, session_id, name, chips, endgame_chips, seat;
`
	p := &models.Player{}
	err := s.db.QueryRow(ctx, query,
		uuid.NewString(), player.SessionID, player.Name, player.Chips, player.EndgameChips, player.Seat,
	).Scan(
		&p.ID,
		&p.SessionID,
		&p.Name,
		&p.Chips,
		&p.EndgameChips,
		&p.Seat,
	)
	if err != nil {
		// zero rows means the session isn't active (or doesn't exist)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("session %s: %w", player.SessionID, ErrNotFound)
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == sessionSeatConstraint {
			return nil, fmt.Errorf("seat %d: %w", player.SeatIndex(), ErrSeatTaken)
		}
		return nil, fmt.Errorf("failed to create player: %w", err)
	}

	return p, nil
}

func (s *PlayerStore) UpdateEndgameChips(ctx context.Context, playerID string, value int) error {
	ct, err := s.db.Exec(ctx, `UPDATE players SET endgame_chips = $2 WHERE id = $1`, playerID, value)
	if err != nil {
		return fmt.Errorf("failed to update endgame chips: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PlayerStore) UpdatePlayer(ctx context.Context, playerID, name string, chips int) error {
	ct, err := s.db.Exec(ctx, `UPDATE players SET name = $2, chips = $3 WHERE id = $1`, playerID, name, chips)
	if err != nil {
		return fmt.Errorf("failed to update player: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PlayerStore) DeletePlayer(ctx context.Context, playerID string) error {
	ct, err := s.db.Exec(ctx, `DELETE FROM players WHERE id = $1`, playerID)
	if err != nil {
		return fmt.Errorf("failed to delete player: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
