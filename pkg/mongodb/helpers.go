package mongodb

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GenerateID generates a new MongoDB ObjectID
func GenerateID() primitive.ObjectID {
	return primitive.NewObjectID()
}

// ParseID parses a string into a MongoDB ObjectID
func ParseID(id string) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(id)
}

// Now returns the current time in UTC
func Now() time.Time {
	return time.Now().UTC()
}

// SortAscending creates an ascending sort option
func SortAscending(field string) bson.D {
	return bson.D{{Key: field, Value: 1}}
}

// SortDescending creates a descending sort option
func SortDescending(field string) bson.D {
	return bson.D{{Key: field, Value: -1}}
}
