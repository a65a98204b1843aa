package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/centauromax/prep-center-sub000/internal/domain"
)

// DedupStore tracks the last accepted delivery per (shipmentId, eventKind)
// pair. The unique index makes acceptance atomic: when two duplicate
// deliveries race, the insert succeeds for exactly one of them and the loser
// falls through to the conditional update.
type DedupStore struct {
	collection *mongo.Collection
}

type dedupRecord struct {
	ShipmentID string           `bson:"shipmentId"`
	EventKind  domain.EventKind `bson:"eventKind"`
	EventID    string           `bson:"eventId"`
	AcceptedAt time.Time        `bson:"acceptedAt"`
}

func NewDedupStore(db *mongo.Database) *DedupStore {
	store := &DedupStore{
		collection: db.Collection("event_dedup"),
	}
	store.ensureIndexes(context.Background())
	return store
}

func (s *DedupStore) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "shipmentId", Value: 1},
				{Key: "eventKind", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("uniq_shipmentId_eventKind"),
		},
		{
			// Stale pairs expire after a day; correctness only needs the
			// window, this just keeps the collection small.
			Keys:    bson.D{{Key: "acceptedAt", Value: 1}},
			Options: options.Index().SetName("idx_acceptedAt_ttl").SetExpireAfterSeconds(86400),
		},
	}
	s.collection.Indexes().CreateMany(ctx, indexes)
}

// TryAccept attempts to record an accepted delivery. It returns false with
// the previously accepted event id when the same pair was already accepted
// inside the window ending at now.
func (s *DedupStore) TryAccept(ctx context.Context, shipmentID string, kind domain.EventKind, eventID string, now time.Time, window time.Duration) (bool, string, error) {
	record := dedupRecord{
		ShipmentID: shipmentID,
		EventKind:  kind,
		EventID:    eventID,
		AcceptedAt: now,
	}

	_, err := s.collection.InsertOne(ctx, record)
	if err == nil {
		return true, "", nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return false, "", fmt.Errorf("failed to record dedup acceptance: %w", err)
	}

	// A record exists. Take over the pair only if its acceptance is older
	// than the window; the conditional update keeps this race-free.
	cutoff := now.Add(-window)
	filter := bson.M{
		"shipmentId": shipmentID,
		"eventKind":  kind,
		"acceptedAt": bson.M{"$lt": cutoff},
	}
	update := bson.M{"$set": bson.M{"acceptedAt": now, "eventId": eventID}}

	updated, err := s.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, "", fmt.Errorf("failed to refresh dedup record: %w", err)
	}
	if updated.ModifiedCount > 0 {
		return true, "", nil
	}

	var existing dedupRecord
	err = s.collection.FindOne(ctx, bson.M{"shipmentId": shipmentID, "eventKind": kind}).Decode(&existing)
	if err == mongo.ErrNoDocuments {
		// Record vanished between the insert and the lookup (TTL sweep);
		// treat the delivery as fresh.
		return true, "", nil
	}
	if err != nil {
		return false, "", fmt.Errorf("failed to load dedup record: %w", err)
	}
	return false, existing.EventID, nil
}

// Release deletes the acceptance recorded under eventID. Filtering on eventId
// keeps a concurrent later acceptance of the same pair intact.
func (s *DedupStore) Release(ctx context.Context, shipmentID string, kind domain.EventKind, eventID string) error {
	_, err := s.collection.DeleteOne(ctx, bson.M{
		"shipmentId": shipmentID,
		"eventKind":  kind,
		"eventId":    eventID,
	})
	if err != nil {
		return fmt.Errorf("failed to release dedup record: %w", err)
	}
	return nil
}
