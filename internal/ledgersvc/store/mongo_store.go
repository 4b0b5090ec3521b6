package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/avvvet/chipledger-services/internal/ledgersvc/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	sessionsCollection = "sessions"
	playersCollection  = "players"
)

type sessionDoc struct {
	ID       string    `bson:"_id"`
	OwnerID  string    `bson:"owner_id"`
	Date     time.Time `bson:"date"`
	IsActive bool      `bson:"is_active"`
}

func (d sessionDoc) model() *models.Session {
	return &models.Session{ID: d.ID, OwnerID: d.OwnerID, Date: d.Date, IsActive: d.IsActive}
}

type playerDoc struct {
	ID           string `bson:"_id"`
	SessionID    string `bson:"session_id"`
	Name         string `bson:"name"`
	Chips        int    `bson:"chips"`
	EndgameChips int    `bson:"endgame_chips"`
	Seat         *int   `bson:"seat,omitempty"`
}

func (d playerDoc) model() *models.Player {
	return &models.Player{
		ID:           d.ID,
		SessionID:    d.SessionID,
		Name:         d.Name,
		Chips:        d.Chips,
		EndgameChips: d.EndgameChips,
		Seat:         d.Seat,
	}
}

// MongoStore keeps sessions and players as documents in two collections.
type MongoStore struct {
	sessions *mongo.Collection
	players  *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		sessions: db.Collection(sessionsCollection),
		players:  db.Collection(playersCollection),
	}
}

// EnsureIndexes creates the indexes that back the one-active-session and
// one-player-per-seat invariants.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.sessions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "owner_id", Value: 1}},
			Options: options.Index().
				SetName(activeSessionConstraint).
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"is_active": true}),
		},
		{
			Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "date", Value: -1}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create session indexes: %w", err)
	}

	_, err = s.players.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "seat", Value: 1}},
		Options: options.Index().
			SetName(sessionSeatConstraint).
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"seat": bson.M{"$exists": true}}),
	})
	if err != nil {
		return fmt.Errorf("failed to create player indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) GetActiveSession(ctx context.Context, ownerID string) (*models.Session, error) {
	var doc sessionDoc
	opts := options.FindOne().SetSort(bson.D{{Key: "date", Value: -1}})
	err := s.sessions.FindOne(ctx, bson.M{"owner_id": ownerID, "is_active": true}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}
	return doc.model(), nil
}

func (s *MongoStore) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	var doc sessionDoc
	err := s.sessions.FindOne(ctx, bson.M{"_id": sessionID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return doc.model(), nil
}

func (s *MongoStore) ListSessions(ctx context.Context, ownerID string) ([]*models.Session, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	cur, err := s.sessions.Find(ctx, bson.M{"owner_id": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	var docs []sessionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}

	sessions := make([]*models.Session, 0, len(docs))
	for _, d := range docs {
		sessions = append(sessions, d.model())
	}
	return sessions, nil
}

func (s *MongoStore) CreateActiveSession(ctx context.Context, ownerID string, date time.Time) (*models.Session, error) {
	doc := sessionDoc{
		ID:       uuid.NewString(),
		OwnerID:  ownerID,
		Date:     date.UTC(),
		IsActive: true,
	}
	if _, err := s.sessions.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrActiveSessionExists
		}
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return doc.model(), nil
}

func (s *MongoStore) ArchiveSession(ctx context.Context, sessionID string) error {
	res, err := s.sessions.UpdateOne(ctx,
		bson.M{"_id": sessionID, "is_active": true},
		bson.M{"$set": bson.M{"is_active": false}},
	)
	if err != nil {
		return fmt.Errorf("failed to archive session: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) GetPlayersBySessionID(ctx context.Context, sessionID string) ([]*models.Player, error) {
	cur, err := s.players.Find(ctx, bson.M{"session_id": sessionID})
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}

	var docs []playerDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode players: %w", err)
	}

	players := make([]*models.Player, 0, len(docs))
	for _, d := range docs {
		players = append(players, d.model())
	}
	sortBySeat(players)
	return players, nil
}

func (s *MongoStore) GetPlayer(ctx context.Context, playerID string) (*models.Player, error) {
	var doc playerDoc
	err := s.players.FindOne(ctx, bson.M{"_id": playerID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return doc.model(), nil
}

// CreatePlayer checks the session is active before inserting. Unlike the
// postgres store the check and insert are two round trips; the seat index
// still rejects collisions.
func (s *MongoStore) CreatePlayer(ctx context.Context, player models.Player) (*models.Player, error) {
	n, err := s.sessions.CountDocuments(ctx, bson.M{"_id": player.SessionID, "is_active": true})
	if err != nil {
		return nil, fmt.Errorf("failed to check session: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("session %s: %w", player.SessionID, ErrNotFound)
	}

	doc := playerDoc{
		ID:           uuid.NewString(),
		SessionID:    player.SessionID,
		Name:         player.Name,
		Chips:        player.Chips,
		EndgameChips: player.EndgameChips,
		Seat:         player.Seat,
	}
	if _, err := s.players.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("seat %d: %w", player.SeatIndex(), ErrSeatTaken)
		}
		return nil, fmt.Errorf("failed to create player: %w", err)
	}
	return doc.model(), nil
}

func (s *MongoStore) UpdateEndgameChips(ctx context.Context, playerID string, value int) error {
	return s.updatePlayer(ctx, playerID, bson.M{"endgame_chips": value})
}

func (s *MongoStore) UpdatePlayer(ctx context.Context, playerID, name string, chips int) error {
	return s.updatePlayer(ctx, playerID, bson.M{"name": name, "chips": chips})
}

func (s *MongoStore) updatePlayer(ctx context.Context, playerID string, set bson.M) error {
	res, err := s.players.UpdateOne(ctx, bson.M{"_id": playerID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update player: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeletePlayer(ctx context.Context, playerID string) error {
	res, err := s.players.DeleteOne(ctx, bson.M{"_id": playerID})
	if err != nil {
		return fmt.Errorf("failed to delete player: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// sortBySeat orders players by seat with unseated players last.
func sortBySeat(players []*models.Player) {
	sort.SliceStable(players, func(i, j int) bool {
		a, b := players[i].SeatIndex(), players[j].SeatIndex()
		if a < 0 || b < 0 {
			return b < 0 && a >= 0
		}
		return a < b
	})
}
