package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/centauromax/prep-center-sub000/internal/domain"
	pkgmongo "github.com/centauromax/prep-center-sub000/pkg/mongodb"
)

// EventRepository persists shipment events in the append-only event log
type EventRepository struct {
	collection *mongo.Collection
}

func NewEventRepository(db *mongo.Database) *EventRepository {
	repo := &EventRepository{
		collection: db.Collection("shipment_events"),
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *EventRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "externalShipmentId", Value: 1},
			{Key: "eventKind", Value: 1},
			{Key: "receivedAt", Value: -1},
		}},
		{Keys: bson.D{{Key: "processed", Value: 1}}},
		{Keys: bson.D{{Key: "receivedAt", Value: -1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

// Append persists a new event record. Records are insert-only; the processing
// outcome is the only part updated later, through MarkProcessed.
func (r *EventRepository) Append(ctx context.Context, event *domain.ShipmentEvent) error {
	if event.ID.IsZero() {
		event.ID = pkgmongo.GenerateID()
	}
	if _, err := r.collection.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("failed to append shipment event: %w", err)
	}
	return nil
}

func (r *EventRepository) FindByID(ctx context.Context, id string) (*domain.ShipmentEvent, error) {
	objectID, err := pkgmongo.ParseID(id)
	if err != nil {
		return nil, domain.ErrEventNotFound
	}

	var event domain.ShipmentEvent
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&event)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &event, err
}

// MarkProcessed sets the processing outcome. The filter requires
// processed=false so a record is never overwritten by a late double write.
func (r *EventRepository) MarkProcessed(ctx context.Context, id string, result domain.ProcessingResult, at time.Time) error {
	objectID, err := pkgmongo.ParseID(id)
	if err != nil {
		return domain.ErrEventNotFound
	}

	filter := bson.M{"_id": objectID, "processed": false}
	update := bson.M{"$set": bson.M{
		"processed":        true,
		"processingResult": result,
		"processedAt":      at,
	}}

	updated, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	if updated.MatchedCount == 0 {
		exists, err := r.collection.CountDocuments(ctx, bson.M{"_id": objectID})
		if err != nil {
			return fmt.Errorf("failed to mark event processed: %w", err)
		}
		if exists == 0 {
			return domain.ErrEventNotFound
		}
		return domain.ErrEventAlreadyProcessed
	}
	return nil
}

// ResetProcessed clears the processing outcome so the event can be re-run
func (r *EventRepository) ResetProcessed(ctx context.Context, id string) error {
	objectID, err := pkgmongo.ParseID(id)
	if err != nil {
		return domain.ErrEventNotFound
	}

	update := bson.M{
		"$set":   bson.M{"processed": false},
		"$unset": bson.M{"processingResult": "", "processedAt": ""},
	}
	updated, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to reset event: %w", err)
	}
	if updated.MatchedCount == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

// SetMerchantName fills the merchant-name audit field once resolved
func (r *EventRepository) SetMerchantName(ctx context.Context, id string, name string) error {
	objectID, err := pkgmongo.ParseID(id)
	if err != nil {
		return domain.ErrEventNotFound
	}

	updated, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{
		"$set": bson.M{"merchantName": name},
	})
	if err != nil {
		return fmt.Errorf("failed to set merchant name: %w", err)
	}
	if updated.MatchedCount == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

func (r *EventRepository) List(ctx context.Context, filter domain.EventFilter, pagination domain.Pagination) ([]*domain.ShipmentEvent, error) {
	pagination = pagination.Normalize()
	opts := options.Find().
		SetSort(pkgmongo.SortDescending("receivedAt")).
		SetSkip(pagination.Offset).
		SetLimit(pagination.Limit)

	cursor, err := r.collection.Find(ctx, buildEventFilter(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []*domain.ShipmentEvent
	err = cursor.All(ctx, &events)
	return events, err
}

func (r *EventRepository) Count(ctx context.Context, filter domain.EventFilter) (int64, error) {
	return r.collection.CountDocuments(ctx, buildEventFilter(filter))
}

func buildEventFilter(filter domain.EventFilter) bson.M {
	query := bson.M{}
	if filter.ExternalShipmentID != nil {
		query["externalShipmentId"] = *filter.ExternalShipmentID
	}
	if filter.EventKind != nil {
		query["eventKind"] = *filter.EventKind
	}
	if filter.Processed != nil {
		query["processed"] = *filter.Processed
	}
	return query
}
