package models

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

const (
	// MaxNameLength is the longest display name accepted for a player.
	MaxNameLength = 30

	// MaxChips bounds every chip count so table totals stay well inside int
	// and values fit the INTEGER columns of the postgres store.
	MaxChips = math.MaxInt32
)

var (
	ErrInvalidName   = errors.New("player name must not be empty")
	ErrNameTooLong   = fmt.Errorf("player name must be at most %d characters", MaxNameLength)
	ErrNegativeChips = errors.New("chips must not be negative")
	ErrTooManyChips  = fmt.Errorf("chips must be at most %d", MaxChips)
)

// Player is a seated participant of a session.
type Player struct {
	ID           string `json:"id"`            // Opaque id owned by the store
	Name         string `json:"name"`          // Display name
	Chips        int    `json:"chips"`         // Buy-in chips, committed at seating time
	EndgameChips int    `json:"endgame_chips"` // Chips at table breakup
	Seat         *int   `json:"seat"`          // 0..7, nil when unseated
	SessionID    string `json:"session_id"`    // FK to sessions(id)
}

// NewPlayer builds a validated player whose end-game chips start equal to the buy-in.
func NewPlayer(sessionID, name string, chips int, seat *int) (Player, error) {
	p := Player{
		Name:         strings.TrimSpace(name),
		Chips:        chips,
		EndgameChips: chips,
		Seat:         seat,
		SessionID:    sessionID,
	}
	if err := p.Validate(); err != nil {
		return Player{}, err
	}
	return p, nil
}

func (p Player) Validate() error {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return ErrInvalidName
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return ErrNameTooLong
	}
	if p.Chips < 0 || p.EndgameChips < 0 {
		return ErrNegativeChips
	}
	if p.Chips > MaxChips || p.EndgameChips > MaxChips {
		return ErrTooManyChips
	}
	return nil
}

// NetChange is end-game chips minus buy-in chips.
func (p Player) NetChange() int {
	return p.EndgameChips - p.Chips
}

// Seated reports whether the player holds a seat.
func (p Player) Seated() bool {
	return p.Seat != nil
}

// SeatIndex returns the seat or -1 when unseated.
func (p Player) SeatIndex() int {
	if p.Seat == nil {
		return -1
	}
	return *p.Seat
}

// Clone returns a copy that does not share the seat pointer.
func (p Player) Clone() Player {
	if p.Seat != nil {
		seat := *p.Seat
		p.Seat = &seat
	}
	return p
}

// SeatPtr is a small helper for building players in code and tests.
func SeatPtr(seat int) *int {
	return &seat
}
