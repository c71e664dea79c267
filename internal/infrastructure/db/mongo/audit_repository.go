package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pressify/reprint-hub/internal/core/domain"
)

const authEventsCollection = "auth_events"

// AuditRepository is the append-only auth audit trail.
type AuditRepository struct {
	coll *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{coll: db.Collection(authEventsCollection)}
}

type mongoAuthEvent struct {
	Kind       string    `bson:"kind"`
	UserID     int64     `bson:"user_id,omitempty"`
	Username   string    `bson:"username,omitempty"`
	Surface    string    `bson:"surface,omitempty"`
	IP         string    `bson:"ip,omitempty"`
	OccurredAt time.Time `bson:"occurred_at"`
}

func (r *AuditRepository) Insert(ctx context.Context, event *domain.AuthEvent) error {
	doc := mongoAuthEvent{
		Kind:       string(event.Kind),
		UserID:     event.UserID,
		Username:   event.Username,
		Surface:    event.Surface,
		IP:         event.IP,
		OccurredAt: event.OccurredAt.UTC(),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert auth event: %w", err)
	}
	return nil
}

func (r *AuditRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]domain.AuthEvent, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "occurred_at", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := r.coll.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list auth events: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoAuthEvent
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode auth events: %w", err)
	}

	events := make([]domain.AuthEvent, 0, len(docs))
	for _, d := range docs {
		events = append(events, domain.AuthEvent{
			Kind:       domain.AuthEventKind(d.Kind),
			UserID:     d.UserID,
			Username:   d.Username,
			Surface:    d.Surface,
			IP:         d.IP,
			OccurredAt: d.OccurredAt,
		})
	}
	return events, nil
}

func (r *AuditRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"occurred_at": bson.M{"$lt": cutoff.UTC()}})
	if err != nil {
		return 0, fmt.Errorf("delete old auth events: %w", err)
	}
	return res.DeletedCount, nil
}
