package domain

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SearchResultItem is one shipment line matched by a background product search
type SearchResultItem struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SearchID     string             `bson:"searchId" json:"searchId"`
	ShipmentID   string             `bson:"shipmentId" json:"shipmentId"`
	ShipmentName string             `bson:"shipmentName,omitempty" json:"shipmentName,omitempty"`
	SKU          string             `bson:"sku,omitempty" json:"sku,omitempty"`
	ASIN         string             `bson:"asin,omitempty" json:"asin,omitempty"`
	FNSKU        string             `bson:"fnsku,omitempty" json:"fnsku,omitempty"`
	Title        string             `bson:"title,omitempty" json:"title,omitempty"`
	Quantity     int                `bson:"quantity" json:"quantity"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}

// MatchesKeywords reports whether every keyword appears in at least one of
// the item's identifying fields, case-insensitively.
func (s *SearchResultItem) MatchesKeywords(keywords []string) bool {
	haystack := strings.ToLower(strings.Join([]string{s.SKU, s.ASIN, s.FNSKU, s.Title}, " "))
	for _, keyword := range keywords {
		if keyword == "" {
			continue
		}
		if !strings.Contains(haystack, strings.ToLower(keyword)) {
			return false
		}
	}
	return true
}
