package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sheetviz/access-api/internal/core/domain"
)

const collectionTransitions = "user_transitions"

// TransitionRepository implements ports.TransitionLog using MongoDB.
type TransitionRepository struct {
	col *mongo.Collection
}

func NewTransitionRepository(db *mongo.Database) *TransitionRepository {
	return &TransitionRepository{col: db.Collection(collectionTransitions)}
}

type mongoTransition struct {
	ID        string    `bson:"_id"`
	Kind      string    `bson:"kind"`
	UserID    string    `bson:"user_id"`
	ActorID   string    `bson:"actor_id"`
	ActorRole string    `bson:"actor_role"`
	From      string    `bson:"from"`
	To        string    `bson:"to"`
	At        time.Time `bson:"at"`
}

// Record persists an event to the user_transitions audit collection.
func (r *TransitionRepository) Record(ctx context.Context, event *domain.TransitionEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.InsertOne(ctx, mongoTransition{
		ID:        event.ID,
		Kind:      string(event.Kind),
		UserID:    event.UserID,
		ActorID:   event.ActorID,
		ActorRole: string(event.ActorRole),
		From:      string(event.From),
		To:        string(event.To),
		At:        event.At.UTC(),
	})
	if err != nil {
		return fmt.Errorf("insert transition: %w", err)
	}
	return nil
}

func (r *TransitionRepository) ListByUser(ctx context.Context, userID string) ([]domain.TransitionEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "at", Value: 1}})
	cursor, err := r.col.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []mongoTransition
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode transitions: %w", err)
	}

	events := make([]domain.TransitionEvent, 0, len(docs))
	for _, d := range docs {
		events = append(events, domain.TransitionEvent{
			ID:        d.ID,
			Kind:      domain.TransitionKind(d.Kind),
			UserID:    d.UserID,
			ActorID:   d.ActorID,
			ActorRole: domain.Role(d.ActorRole),
			From:      domain.State(d.From),
			To:        domain.State(d.To),
			At:        d.At,
		})
	}
	return events, nil
}

// EnsureIndexes creates the per-user history index.
func (r *TransitionRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "at", Value: 1}},
	})
	return err
}
