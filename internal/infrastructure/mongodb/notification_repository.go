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

// NotificationRepository persists the notification delivery queue
type NotificationRepository struct {
	collection *mongo.Collection
}

func NewNotificationRepository(db *mongo.Database) *NotificationRepository {
	repo := &NotificationRepository{
		collection: db.Collection("notifications"),
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *NotificationRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "status", Value: 1},
			{Key: "createdAt", Value: 1},
		}},
		{Keys: bson.D{{Key: "shipmentId", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

func (r *NotificationRepository) Save(ctx context.Context, notification *domain.Notification) error {
	if notification.ID.IsZero() {
		notification.ID = pkgmongo.GenerateID()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = pkgmongo.Now()
	}
	if notification.Status == "" {
		notification.Status = domain.NotificationStatusPending
	}

	if _, err := r.collection.InsertOne(ctx, notification); err != nil {
		return fmt.Errorf("failed to save notification: %w", err)
	}
	return nil
}

func (r *NotificationRepository) FindPending(ctx context.Context, limit int) ([]*domain.Notification, error) {
	filter := bson.M{
		"status":   domain.NotificationStatusPending,
		"attempts": bson.M{"$lt": domain.MaxNotificationAttempts},
	}
	opts := options.Find().
		SetSort(pkgmongo.SortAscending("createdAt")).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var notifications []*domain.Notification
	err = cursor.All(ctx, &notifications)
	return notifications, err
}

func (r *NotificationRepository) MarkSent(ctx context.Context, id string, providerMessageID string, at time.Time) error {
	objectID, err := pkgmongo.ParseID(id)
	if err != nil {
		return fmt.Errorf("invalid notification id: %w", err)
	}

	update := bson.M{"$set": bson.M{
		"status":            domain.NotificationStatusSent,
		"providerMessageId": providerMessageID,
		"sentAt":            at,
	}}
	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}
	return nil
}

// MarkAttemptFailed increments the attempt count; the status flips to failed
// once attempts are exhausted, otherwise the notification stays pending and
// will be picked up again.
func (r *NotificationRepository) MarkAttemptFailed(ctx context.Context, id string, deliveryErr string) error {
	objectID, err := pkgmongo.ParseID(id)
	if err != nil {
		return fmt.Errorf("invalid notification id: %w", err)
	}

	update := bson.M{
		"$inc": bson.M{"attempts": 1},
		"$set": bson.M{"lastError": deliveryErr},
	}
	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to record notification failure: %w", err)
	}

	// Exhausted notifications are parked as failed so FindPending skips them.
	exhausted := bson.M{
		"_id":      objectID,
		"attempts": bson.M{"$gte": domain.MaxNotificationAttempts},
	}
	_, err = r.collection.UpdateOne(ctx, exhausted, bson.M{
		"$set": bson.M{"status": domain.NotificationStatusFailed},
	})
	if err != nil {
		return fmt.Errorf("failed to park exhausted notification: %w", err)
	}
	return nil
}
