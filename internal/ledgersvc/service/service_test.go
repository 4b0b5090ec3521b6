package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/chipledger-services/internal/ledgersvc/models"
	"github.com/avvvet/chipledger-services/internal/ledgersvc/store"
	"github.com/avvvet/chipledger-services/internal/ledgersvc/table"
)

type recordingPublisher struct {
	mu        sync.Mutex
	summaries []models.MoneySummary
}

func (p *recordingPublisher) PublishSummary(ownerID string, summary models.MoneySummary) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.summaries = append(p.summaries, summary)
}

func (p *recordingPublisher) last() models.MoneySummary {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.summaries[len(p.summaries)-1]
}

type fixture struct {
	ctx      context.Context
	store    *store.MemoryStore
	clock    *quartz.Mock
	sessions *SessionService
	tables   *TableService
	pub      *recordingPublisher
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	st := store.NewMemoryStore()
	clock := quartz.NewMock(t)
	clock.Set(time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC))
	pub := &recordingPublisher{}
	opts = append([]Option{WithPublisher(pub)}, opts...)
	return &fixture{
		ctx:      context.Background(),
		store:    st,
		clock:    clock,
		sessions: NewSessionService(st, clock),
		tables:   NewTableService(st, st, opts...),
		pub:      pub,
	}
}

func (f *fixture) seat(t *testing.T, owner string, seat int, name string, chips int) *models.Player {
	t.Helper()
	p, err := f.tables.SeatPlayer(f.ctx, owner, seat, name, chips)
	require.NoError(t, err)
	return p
}

func TestOpenSession(t *testing.T) {
	f := newFixture(t)

	_, err := f.sessions.GetActiveSession(f.ctx, "owner")
	assert.ErrorIs(t, err, ErrNoActiveSession)

	sess, err := f.sessions.OpenSession(f.ctx, "owner")
	require.NoError(t, err)
	assert.True(t, sess.IsActive)
	assert.Equal(t, "owner", sess.OwnerID)
	assert.Equal(t, f.clock.Now(), sess.Date)

	_, err = f.sessions.OpenSession(f.ctx, "owner")
	assert.ErrorIs(t, err, store.ErrActiveSessionExists)

	active, err := f.sessions.GetActiveSession(f.ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, sess.ID, active.ID)
}

func TestArchiveSession(t *testing.T) {
	f := newFixture(t)
	sess, err := f.sessions.OpenSession(f.ctx, "owner")
	require.NoError(t, err)

	err = f.sessions.ArchiveSession(f.ctx, "intruder", sess.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, f.sessions.ArchiveSession(f.ctx, "owner", sess.ID))
	assert.ErrorIs(t, f.sessions.ArchiveSession(f.ctx, "owner", sess.ID), store.ErrNotFound)

	f.clock.Advance(24 * time.Hour)
	next, err := f.sessions.OpenSession(f.ctx, "owner")
	require.NoError(t, err)

	list, err := f.sessions.ListSessions(f.ctx, "owner")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, next.ID, list[0].ID)
	assert.False(t, list[1].IsActive)
}

func TestLoadTableWithoutSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.tables.LoadTable(f.ctx, "owner")
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestLoadTableKeepsNewestOfSeveralActiveSessions(t *testing.T) {
	f := newFixture(t)
	old := time.Date(2025, 2, 1, 20, 0, 0, 0, time.UTC)
	f.store.PutSession(models.Session{ID: "old", OwnerID: "owner", Date: old, IsActive: true})
	f.store.PutSession(models.Session{ID: "new", OwnerID: "owner", Date: old.Add(time.Hour), IsActive: true})

	tbl, err := f.tables.LoadTable(f.ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, "new", tbl.SessionID)
}

func TestSeatPlayer(t *testing.T) {
	f := newFixture(t)
	_, err := f.tables.SeatPlayer(f.ctx, "owner", 0, "Alice", 100)
	assert.ErrorIs(t, err, ErrNoActiveSession)

	_, err = f.sessions.OpenSession(f.ctx, "owner")
	require.NoError(t, err)

	alice := f.seat(t, "owner", 0, "  Alice ", 100)
	assert.NotEmpty(t, alice.ID)
	assert.Equal(t, "Alice", alice.Name)
	assert.Equal(t, 100, alice.EndgameChips)

	_, err = f.tables.SeatPlayer(f.ctx, "owner", 0, "Bob", 100)
	assert.ErrorIs(t, err, table.ErrSeatOccupied)

	_, err = f.tables.SeatPlayer(f.ctx, "owner", 8, "Bob", 100)
	assert.ErrorIs(t, err, table.ErrSeatOutOfRange)

	_, err = f.tables.SeatPlayer(f.ctx, "owner", 1, "", 100)
	assert.ErrorIs(t, err, models.ErrInvalidName)

	_, err = f.tables.SeatPlayer(f.ctx, "owner", 1, "Bob", -5)
	assert.ErrorIs(t, err, models.ErrNegativeChips)

	tbl, err := f.tables.LoadTable(f.ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Len())
	assert.Equal(t, 100, f.pub.last().MoneyOnTable)
}

func TestOwnersAreIsolated(t *testing.T) {
	f := newFixture(t)
	_, err := f.sessions.OpenSession(f.ctx, "alice")
	require.NoError(t, err)
	_, err = f.sessions.OpenSession(f.ctx, "bob")
	require.NoError(t, err)

	p := f.seat(t, "alice", 0, "Carol", 100)

	got, err := f.tables.GetPlayer(f.ctx, "alice", p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Carol", got.Name)
	_, err = f.tables.GetPlayer(f.ctx, "bob", p.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.ErrorIs(t, f.tables.RemovePlayer(f.ctx, "bob", p.ID), store.ErrNotFound)
	_, err = f.tables.EditPlayer(f.ctx, "bob", p.ID, "Mallory", 1)
	assert.ErrorIs(t, err, store.ErrNotFound)

	res := f.tables.UpdateEndgameChips(f.ctx, "bob", p.ID, "50")
	assert.ErrorIs(t, res.Err, table.ErrPlayerNotFound)

	tbl, err := f.tables.LoadTable(f.ctx, "bob")
	require.NoError(t, err)
	assert.Zero(t, tbl.Len())
}

func TestRemovePlayer(t *testing.T) {
	f := newFixture(t)
	_, err := f.sessions.OpenSession(f.ctx, "owner")
	require.NoError(t, err)
	p := f.seat(t, "owner", 3, "Alice", 100)

	require.NoError(t, f.tables.RemovePlayer(f.ctx, "owner", p.ID))
	assert.ErrorIs(t, f.tables.RemovePlayer(f.ctx, "owner", p.ID), store.ErrNotFound)

	// the freed seat can be reused
	f.seat(t, "owner", 3, "Bob", 50)
}

func TestEditPlayer(t *testing.T) {
	f := newFixture(t)
	_, err := f.sessions.OpenSession(f.ctx, "owner")
	require.NoError(t, err)
	alice := f.seat(t, "owner", 0, "Alice", 100)
	bob := f.seat(t, "owner", 1, "Bob", 100)

	edited, err := f.tables.EditPlayer(f.ctx, "owner", alice.ID, "Alicia", 120)
	require.NoError(t, err)
	assert.Equal(t, "Alicia", edited.Name)
	assert.Equal(t, 120, edited.EndgameChips)

	require.True(t, f.tables.UpdateEndgameChips(f.ctx, "owner", bob.ID, "80").Ok())
	edited, err = f.tables.EditPlayer(f.ctx, "owner", bob.ID, "Bob", 90)
	require.NoError(t, err)
	assert.Equal(t, 80, edited.EndgameChips)

	_, err = f.tables.EditPlayer(f.ctx, "owner", bob.ID, " ", 90)
	assert.ErrorIs(t, err, models.ErrInvalidName)
}

func TestUpdateEndgameChips(t *testing.T) {
	f := newFixture(t)
	_, err := f.sessions.OpenSession(f.ctx, "owner")
	require.NoError(t, err)
	p := f.seat(t, "owner", 0, "Alice", 100)

	res := f.tables.UpdateEndgameChips(f.ctx, "owner", p.ID, "150")
	require.True(t, res.Ok())
	got, _ := res.Table.Player(p.ID)
	assert.Equal(t, 150, got.EndgameChips)

	res = f.tables.UpdateEndgameChips(f.ctx, "owner", p.ID, "lots")
	assert.ErrorIs(t, res.Err, table.ErrInvalidChips)
	assert.Nil(t, res.Table)

	stored, err := f.store.GetPlayer(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 150, stored.EndgameChips)
}

func TestUpdateEndgameChipsLenient(t *testing.T) {
	f := newFixture(t, WithParsePolicy(table.ParseLenient))
	_, err := f.sessions.OpenSession(f.ctx, "owner")
	require.NoError(t, err)
	p := f.seat(t, "owner", 0, "Alice", 100)

	res := f.tables.UpdateEndgameChips(f.ctx, "owner", p.ID, "lots")
	require.True(t, res.Ok())
	got, _ := res.Table.Player(p.ID)
	assert.Zero(t, got.EndgameChips)
}

func TestSaveEndgameChips(t *testing.T) {
	f := newFixture(t)
	_, err := f.sessions.OpenSession(f.ctx, "owner")
	require.NoError(t, err)
	a := f.seat(t, "owner", 0, "A", 100)
	b := f.seat(t, "owner", 1, "B", 100)
	c := f.seat(t, "owner", 2, "C", 100)

	_, err = f.tables.SaveEndgameChips(f.ctx, "owner", map[string]int{a.ID: 100})
	assert.ErrorIs(t, err, ErrNoChanges)

	n, err := f.tables.SaveEndgameChips(f.ctx, "owner", map[string]int{a.ID: 150, b.ID: 50, c.ID: 100})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	summary, err := f.tables.Summary(f.ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, []models.Transaction{
		{Lender: "A", Borrower: "B", Amount: 50, LenderID: a.ID, BorrowerID: b.ID},
	}, summary.Transactions)
	assert.Zero(t, summary.Discrepancy)

	_, err = f.tables.SaveEndgameChips(f.ctx, "owner", map[string]int{"ghost": 1})
	assert.ErrorIs(t, err, table.ErrPlayerNotFound)

	_, err = f.tables.SaveEndgameChips(f.ctx, "owner", map[string]int{a.ID: -1})
	assert.ErrorIs(t, err, table.ErrInvalidChips)
}

func TestSummaryUsesChipValue(t *testing.T) {
	f := newFixture(t, WithChipValue(decimal.RequireFromString("0.25")))
	_, err := f.sessions.OpenSession(f.ctx, "owner")
	require.NoError(t, err)
	a := f.seat(t, "owner", 0, "A", 100)
	b := f.seat(t, "owner", 1, "B", 100)

	require.True(t, f.tables.UpdateEndgameChips(f.ctx, "owner", a.ID, "120").Ok())
	require.True(t, f.tables.UpdateEndgameChips(f.ctx, "owner", b.ID, "90").Ok())

	summary, err := f.tables.Summary(f.ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, 200, summary.MoneyOnTable)
	assert.Equal(t, 210, summary.TotalEndgameChips)
	assert.Equal(t, 10, summary.Discrepancy)
	assert.Equal(t, []string{"2.50"}, summary.CashValues)
	assert.Equal(t, map[string]int{a.ID: 10}, summary.Unsettled)
	assert.Equal(t, summary, f.pub.last())
}
