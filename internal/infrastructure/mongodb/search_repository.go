package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/centauromax/prep-center-sub000/internal/domain"
)

// SearchResultRepository accumulates the rows produced by background
// product-search jobs. Pollers read these incrementally while the job runs.
type SearchResultRepository struct {
	collection *mongo.Collection
}

func NewSearchResultRepository(db *mongo.Database) *SearchResultRepository {
	repo := &SearchResultRepository{
		collection: db.Collection("search_results"),
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *SearchResultRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "searchId", Value: 1},
			{Key: "createdAt", Value: 1},
		}},
		{
			// Results are ephemeral; poll output older than an hour is dead.
			Keys:    bson.D{{Key: "createdAt", Value: 1}},
			Options: options.Index().SetName("idx_createdAt_ttl").SetExpireAfterSeconds(3600),
		},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

func (r *SearchResultRepository) Save(ctx context.Context, item *domain.SearchResultItem) error {
	if item.ID.IsZero() {
		item.ID = primitive.NewObjectID()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	if _, err := r.collection.InsertOne(ctx, item); err != nil {
		return fmt.Errorf("failed to save search result: %w", err)
	}
	return nil
}

func (r *SearchResultRepository) FindBySearchID(ctx context.Context, searchID string) ([]*domain.SearchResultItem, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"searchId": searchID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var items []*domain.SearchResultItem
	err = cursor.All(ctx, &items)
	return items, err
}

// JobFlagStore holds TTL'd done-flags for asynchronous jobs
type JobFlagStore struct {
	collection *mongo.Collection
}

type jobFlag struct {
	Key       string    `bson:"_id"`
	Done      bool      `bson:"done"`
	CreatedAt time.Time `bson:"createdAt"`
}

func NewJobFlagStore(db *mongo.Database) *JobFlagStore {
	store := &JobFlagStore{
		collection: db.Collection("job_flags"),
	}
	store.ensureIndexes(context.Background())
	return store
}

func (s *JobFlagStore) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{
			// A flag only needs to outlive its pollers.
			Keys:    bson.D{{Key: "createdAt", Value: 1}},
			Options: options.Index().SetName("idx_createdAt_ttl").SetExpireAfterSeconds(600),
		},
	}
	s.collection.Indexes().CreateMany(ctx, indexes)
}

func (s *JobFlagStore) SetDone(ctx context.Context, key string) error {
	opts := options.Update().SetUpsert(true)
	update := bson.M{"$set": bson.M{"done": true, "createdAt": time.Now()}}
	if _, err := s.collection.UpdateOne(ctx, bson.M{"_id": key}, update, opts); err != nil {
		return fmt.Errorf("failed to set job flag: %w", err)
	}
	return nil
}

func (s *JobFlagStore) IsDone(ctx context.Context, key string) (bool, error) {
	var flag jobFlag
	err := s.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&flag)
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read job flag: %w", err)
	}
	return flag.Done, nil
}
