package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/chipledger-services/internal/ledgersvc/models"
	"github.com/avvvet/chipledger-services/internal/ledgersvc/settlement"
)

func newPlayer(id string, chips int) *models.Player {
	return &models.Player{ID: id, Name: id, Chips: chips, EndgameChips: chips, SessionID: "s1"}
}

func TestPlacePlayer(t *testing.T) {
	tbl := New("s1")

	require.NoError(t, tbl.PlacePlayer(0, newPlayer("alice", 100)))
	require.NoError(t, tbl.PlacePlayer(7, newPlayer("bob", 50)))

	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, "alice", tbl.At(0).ID)
	assert.Equal(t, 7, *tbl.At(7).Seat)
	assert.Nil(t, tbl.At(3))
}

func TestPlacePlayerRejectsOutOfRange(t *testing.T) {
	tbl := New("s1")

	for _, seat := range []int{-1, 8, 100} {
		err := tbl.PlacePlayer(seat, newPlayer("alice", 100))
		assert.ErrorIs(t, err, ErrSeatOutOfRange, "seat %d", seat)
	}
	assert.Zero(t, tbl.Len())
}

func TestPlacePlayerRejectsOccupiedSeat(t *testing.T) {
	tbl := New("s1")
	require.NoError(t, tbl.PlacePlayer(2, newPlayer("alice", 100)))

	err := tbl.PlacePlayer(2, newPlayer("bob", 100))
	assert.ErrorIs(t, err, ErrSeatOccupied)
	assert.Equal(t, "alice", tbl.At(2).ID)

	// Same player again is fine.
	assert.NoError(t, tbl.PlacePlayer(2, newPlayer("alice", 100)))
}

func TestPlacePlayerRequiresClearingOldSeat(t *testing.T) {
	tbl := New("s1")
	alice := newPlayer("alice", 100)
	require.NoError(t, tbl.PlacePlayer(1, alice))

	assert.ErrorIs(t, tbl.PlacePlayer(4, alice), ErrPlayerSeated)

	require.NoError(t, tbl.RemovePlayer(1))
	require.NoError(t, tbl.PlacePlayer(4, alice))
	assert.Equal(t, 4, *tbl.At(4).Seat)
	assert.Nil(t, tbl.At(1))
}

func TestRemovePlayer(t *testing.T) {
	tbl := New("s1")
	require.NoError(t, tbl.PlacePlayer(3, newPlayer("alice", 100)))

	require.NoError(t, tbl.RemovePlayer(3))
	assert.Zero(t, tbl.Len())

	assert.NoError(t, tbl.RemovePlayer(3), "empty seat is a no-op")
	assert.ErrorIs(t, tbl.RemovePlayer(8), ErrSeatOutOfRange)
}

func TestUpdateEndgameChips(t *testing.T) {
	tbl := New("s1")
	require.NoError(t, tbl.PlacePlayer(0, newPlayer("alice", 100)))

	require.NoError(t, tbl.UpdateEndgameChips("alice", " 140 "))
	p, ok := tbl.Player("alice")
	require.True(t, ok)
	assert.Equal(t, 140, p.EndgameChips)

	assert.ErrorIs(t, tbl.UpdateEndgameChips("nobody", "10"), ErrPlayerNotFound)
	assert.ErrorIs(t, tbl.UpdateEndgameChips("alice", "abc"), ErrInvalidChips)
	assert.ErrorIs(t, tbl.UpdateEndgameChips("alice", "-5"), ErrInvalidChips)
	assert.ErrorIs(t, tbl.UpdateEndgameChips("alice", "+5"), ErrInvalidChips)
	assert.Equal(t, 140, p.EndgameChips, "rejected input leaves value unchanged")
}

func TestUpdateEndgameChipsLenient(t *testing.T) {
	tbl := New("s1").WithParsePolicy(ParseLenient)
	require.NoError(t, tbl.PlacePlayer(0, newPlayer("alice", 100)))

	tests := map[string]int{
		"abc":  0,
		"":     0,
		"12ab": 12,
		"-5":   0,
		"77":   77,
	}
	for raw, want := range tests {
		require.NoError(t, tbl.UpdateEndgameChips("alice", raw))
		p, _ := tbl.Player("alice")
		assert.Equal(t, want, p.EndgameChips, "input %q", raw)
	}
}

func TestParseStrictBounds(t *testing.T) {
	tests := map[string]struct {
		want int
		ok   bool
	}{
		"0":                   {0, true},
		"2147483647":          {models.MaxChips, true},
		"2147483648":          {0, false},
		"9223372036854775807": {0, false},
		"+5":                  {0, false},
		"5 5":                 {0, false},
	}
	for raw, tc := range tests {
		t.Run(raw, func(t *testing.T) {
			n, err := ParseStrict(raw)
			if !tc.ok {
				assert.ErrorIs(t, err, ErrInvalidChips)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, n)
		})
	}
}

func TestParseLenientCaps(t *testing.T) {
	tests := map[string]int{
		"2147483648":            models.MaxChips,
		"9223372036854775807":   models.MaxChips,
		"99999999999999999999x": models.MaxChips,
		"+5":                    0,
	}
	for raw, want := range tests {
		n, err := ParseLenient(raw)
		require.NoError(t, err)
		assert.Equal(t, want, n, "input %q", raw)
	}
}

func TestHugeEndgameChipsKeepTotalsSane(t *testing.T) {
	tbl := New("s1")
	require.NoError(t, tbl.PlacePlayer(0, newPlayer("alice", 0)))
	require.NoError(t, tbl.PlacePlayer(1, newPlayer("bob", 0)))

	assert.ErrorIs(t, tbl.UpdateEndgameChips("alice", "9223372036854775807"), ErrInvalidChips)
	assert.ErrorIs(t, tbl.SetEndgameChips("bob", models.MaxChips+1), ErrInvalidChips)

	require.NoError(t, tbl.UpdateEndgameChips("alice", "2147483647"))
	require.NoError(t, tbl.SetEndgameChips("bob", models.MaxChips))
	assert.Equal(t, 2*models.MaxChips, tbl.TotalEndgameChips())
	assert.Equal(t, 2*models.MaxChips, tbl.Discrepancy())
}

func TestSetEndgameChips(t *testing.T) {
	tbl := New("s1")
	require.NoError(t, tbl.PlacePlayer(0, newPlayer("alice", 100)))

	require.NoError(t, tbl.SetEndgameChips("alice", 0))
	assert.ErrorIs(t, tbl.SetEndgameChips("alice", -1), ErrInvalidChips)
	assert.ErrorIs(t, tbl.SetEndgameChips("bob", 1), ErrPlayerNotFound)
}

func TestTotals(t *testing.T) {
	tbl := New("s1")
	require.NoError(t, tbl.PlacePlayer(0, newPlayer("alice", 100)))
	require.NoError(t, tbl.PlacePlayer(5, newPlayer("bob", 200)))

	assert.Equal(t, 300, tbl.TotalChipsInPlay())
	assert.Equal(t, 300, tbl.TotalEndgameChips())
	assert.Zero(t, tbl.Discrepancy())

	require.NoError(t, tbl.SetEndgameChips("alice", 50))
	assert.Equal(t, 250, tbl.TotalEndgameChips())
	assert.Equal(t, -50, tbl.Discrepancy())

	require.NoError(t, tbl.SetEndgameChips("bob", 250))
	assert.Zero(t, tbl.Discrepancy())
}

func TestLoad(t *testing.T) {
	players := []*models.Player{
		{ID: "c", Name: "c", Chips: 30, EndgameChips: 30, Seat: models.SeatPtr(6)},
		{ID: "a", Name: "a", Chips: 10, EndgameChips: 10, Seat: models.SeatPtr(1)},
		{ID: "u", Name: "u", Chips: 5, EndgameChips: 5},
		nil,
	}

	tbl, err := Load("s1", players)
	require.NoError(t, err)

	got := tbl.Players()
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID, "players come back in seat order")
	assert.Equal(t, "c", got[1].ID)
	assert.Len(t, tbl.Unseated(), 1)
	assert.Equal(t, 40, tbl.TotalChipsInPlay())

	slots := tbl.SeatSlots()
	require.Len(t, slots, Seats)
	assert.NotNil(t, slots[1])
	assert.Nil(t, slots[0])
}

func TestLoadRejectsBadSeats(t *testing.T) {
	_, err := Load("s1", []*models.Player{{ID: "a", Seat: models.SeatPtr(9)}})
	assert.ErrorIs(t, err, ErrSeatOutOfRange)

	_, err = Load("s1", []*models.Player{
		{ID: "a", Seat: models.SeatPtr(2)},
		{ID: "b", Seat: models.SeatPtr(2)},
	})
	assert.ErrorIs(t, err, ErrSeatOccupied)
}

func TestLoadDoesNotAlias(t *testing.T) {
	src := &models.Player{ID: "a", Name: "a", Chips: 10, EndgameChips: 10, Seat: models.SeatPtr(0)}
	tbl, err := Load("s1", []*models.Player{src})
	require.NoError(t, err)

	require.NoError(t, tbl.SetEndgameChips("a", 99))
	assert.Equal(t, 10, src.EndgameChips)
}

func TestApply(t *testing.T) {
	tbl := New("s1")
	require.NoError(t, tbl.PlacePlayer(0, newPlayer("alice", 100)))

	res := Apply(tbl, func(t *Table) error { return t.UpdateEndgameChips("alice", "120") })
	require.True(t, res.Ok())
	p, _ := res.Table.Player("alice")
	assert.Equal(t, 120, p.EndgameChips)

	old, _ := tbl.Player("alice")
	assert.Equal(t, 100, old.EndgameChips, "prior state untouched")

	res = Apply(tbl, func(t *Table) error { return t.UpdateEndgameChips("alice", "x") })
	assert.False(t, res.Ok())
	assert.Nil(t, res.Table)
	assert.ErrorIs(t, res.Err, ErrInvalidChips)
}

func TestTableSettlement(t *testing.T) {
	tbl := New("s1")
	require.NoError(t, tbl.PlacePlayer(4, newPlayer("C", 100)))
	require.NoError(t, tbl.PlacePlayer(0, newPlayer("A", 100)))
	require.NoError(t, tbl.PlacePlayer(2, newPlayer("B", 100)))

	require.NoError(t, tbl.UpdateEndgameChips("A", "150"))
	require.NoError(t, tbl.UpdateEndgameChips("B", "120"))
	require.NoError(t, tbl.UpdateEndgameChips("C", "30"))
	require.Zero(t, tbl.Discrepancy())

	txs := settlement.Compute(tbl.Players())
	require.Len(t, txs, 2)
	assert.Equal(t, "A", txs[0].Lender)
	assert.Equal(t, "C", txs[0].Borrower)
	assert.Equal(t, 50, txs[0].Amount)
	assert.Equal(t, "B", txs[1].Lender)
	assert.Equal(t, 20, txs[1].Amount)
}
