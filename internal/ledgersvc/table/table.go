// Package table holds the seat-indexed view of one session's players.
//
// A Table is owned by a single caller and mutated serially; it does no
// locking and no I/O.
package table

import (
	"errors"
	"fmt"

	"github.com/avvvet/chipledger-services/internal/ledgersvc/models"
)

// Seats is the fixed number of seats at a table.
const Seats = 8

var (
	ErrSeatOutOfRange = errors.New("seat out of range")
	ErrSeatOccupied   = errors.New("seat already occupied")
	ErrPlayerSeated   = errors.New("player already holds another seat")
	ErrPlayerNotFound = errors.New("player not found")
)

// Table is an 8-slot array of players for one session.
type Table struct {
	SessionID string
	seats     [Seats]*models.Player
	unseated  []*models.Player
	parse     ParsePolicy
}

// New returns an empty table for sessionID using strict chip parsing.
func New(sessionID string) *Table {
	return &Table{SessionID: sessionID, parse: ParseStrict}
}

// WithParsePolicy sets how UpdateEndgameChips reads raw input.
func (t *Table) WithParsePolicy(p ParsePolicy) *Table {
	t.parse = p
	return t
}

// Load re-indexes fetched players into seats. Unseated records are kept
// aside; out-of-range or colliding seats reject the whole load.
func Load(sessionID string, players []*models.Player) (*Table, error) {
	t := New(sessionID)
	for _, p := range players {
		if p == nil {
			continue
		}
		cp := p.Clone()
		if !cp.Seated() {
			t.unseated = append(t.unseated, &cp)
			continue
		}
		if err := t.PlacePlayer(*cp.Seat, &cp); err != nil {
			return nil, fmt.Errorf("load player %s: %w", cp.ID, err)
		}
	}
	return t, nil
}

func checkSeat(seat int) error {
	if seat < 0 || seat >= Seats {
		return fmt.Errorf("%w: %d not in [0,%d]", ErrSeatOutOfRange, seat, Seats-1)
	}
	return nil
}

// PlacePlayer assigns player to seat. Moving a seated player requires
// removing it from its old seat first.
func (t *Table) PlacePlayer(seat int, player *models.Player) error {
	if err := checkSeat(seat); err != nil {
		return err
	}
	if cur := t.seats[seat]; cur != nil {
		if cur.ID == player.ID {
			return nil
		}
		return fmt.Errorf("%w: seat %d held by %s", ErrSeatOccupied, seat, cur.Name)
	}
	if at := t.seatOf(player.ID); at >= 0 {
		return fmt.Errorf("%w: %s at seat %d", ErrPlayerSeated, player.Name, at)
	}

	player.Seat = models.SeatPtr(seat)
	t.seats[seat] = player
	t.dropUnseated(player.ID)
	return nil
}

// RemovePlayer clears seat. Clearing an empty seat is a no-op.
func (t *Table) RemovePlayer(seat int) error {
	if err := checkSeat(seat); err != nil {
		return err
	}
	t.seats[seat] = nil
	return nil
}

// UpdateEndgameChips parses raw with the table's parse policy and stores it
// as the end-game chips of playerID.
func (t *Table) UpdateEndgameChips(playerID, raw string) error {
	p := t.find(playerID)
	if p == nil {
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
	}
	n, err := t.parse(raw)
	if err != nil {
		return err
	}
	p.EndgameChips = n
	return nil
}

// SetEndgameChips is UpdateEndgameChips for already-typed values.
func (t *Table) SetEndgameChips(playerID string, n int) error {
	p := t.find(playerID)
	if p == nil {
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
	}
	if n < 0 || n > models.MaxChips {
		return fmt.Errorf("%w: %d", ErrInvalidChips, n)
	}
	p.EndgameChips = n
	return nil
}

// At returns the player at seat, or nil.
func (t *Table) At(seat int) *models.Player {
	if checkSeat(seat) != nil {
		return nil
	}
	return t.seats[seat]
}

// Player looks a seated player up by id.
func (t *Table) Player(playerID string) (*models.Player, bool) {
	p := t.find(playerID)
	return p, p != nil
}

// Players returns copies of the seated players in seat order.
func (t *Table) Players() []models.Player {
	out := make([]models.Player, 0, Seats)
	for _, p := range t.seats {
		if p != nil {
			out = append(out, p.Clone())
		}
	}
	return out
}

// SeatSlots returns all 8 seats with nil for empty ones.
func (t *Table) SeatSlots() []*models.Player {
	out := make([]*models.Player, Seats)
	for i, p := range t.seats {
		if p != nil {
			cp := p.Clone()
			out[i] = &cp
		}
	}
	return out
}

// Unseated returns the loaded players that hold no seat.
func (t *Table) Unseated() []models.Player {
	out := make([]models.Player, 0, len(t.unseated))
	for _, p := range t.unseated {
		out = append(out, p.Clone())
	}
	return out
}

// Len is the number of seated players.
func (t *Table) Len() int {
	n := 0
	for _, p := range t.seats {
		if p != nil {
			n++
		}
	}
	return n
}

// TotalChipsInPlay is the money on the table: buy-in chips of seated players.
func (t *Table) TotalChipsInPlay() int {
	total := 0
	for _, p := range t.seats {
		if p != nil {
			total += p.Chips
		}
	}
	return total
}

// TotalEndgameChips sums end-game chips of seated players.
func (t *Table) TotalEndgameChips() int {
	total := 0
	for _, p := range t.seats {
		if p != nil {
			total += p.EndgameChips
		}
	}
	return total
}

// Discrepancy is TotalEndgameChips minus TotalChipsInPlay. A nonzero value
// means chip counts were entered wrong; it is reported, never corrected.
func (t *Table) Discrepancy() int {
	return t.TotalEndgameChips() - t.TotalChipsInPlay()
}

// Snapshot returns a deep copy of the table.
func (t *Table) Snapshot() *Table {
	cp := &Table{SessionID: t.SessionID, parse: t.parse}
	for i, p := range t.seats {
		if p != nil {
			c := p.Clone()
			cp.seats[i] = &c
		}
	}
	for _, p := range t.unseated {
		c := p.Clone()
		cp.unseated = append(cp.unseated, &c)
	}
	return cp
}

func (t *Table) find(playerID string) *models.Player {
	for _, p := range t.seats {
		if p != nil && p.ID == playerID {
			return p
		}
	}
	return nil
}

func (t *Table) seatOf(playerID string) int {
	for i, p := range t.seats {
		if p != nil && p.ID == playerID {
			return i
		}
	}
	return -1
}

func (t *Table) dropUnseated(playerID string) {
	for i, p := range t.unseated {
		if p.ID == playerID {
			t.unseated = append(t.unseated[:i], t.unseated[i+1:]...)
			return
		}
	}
}
