package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification delivery states
type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "pending"
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusFailed  NotificationStatus = "failed"
)

// MaxNotificationAttempts bounds delivery retries per notification
const MaxNotificationAttempts = 3

// Notification is a queued, localized message for a merchant contact.
// Delivery is asynchronous and independent of the event that produced it.
type Notification struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ChatID            string             `bson:"chatId" json:"chatId"`
	Locale            string             `bson:"locale" json:"locale"`
	EventKind         EventKind          `bson:"eventKind" json:"eventKind"`
	ShipmentID        string             `bson:"shipmentId" json:"shipmentId"`
	ShipmentName      string             `bson:"shipmentName,omitempty" json:"shipmentName,omitempty"`
	MerchantID        string             `bson:"merchantId,omitempty" json:"merchantId,omitempty"`
	MerchantName      string             `bson:"merchantName,omitempty" json:"merchantName,omitempty"`
	Message           string             `bson:"message" json:"message"`
	Status            NotificationStatus `bson:"status" json:"status"`
	Attempts          int                `bson:"attempts" json:"attempts"`
	ProviderMessageID string             `bson:"providerMessageId,omitempty" json:"providerMessageId,omitempty"`
	LastError         string             `bson:"lastError,omitempty" json:"lastError,omitempty"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	SentAt            *time.Time         `bson:"sentAt,omitempty" json:"sentAt,omitempty"`
}

// CanRetry reports whether another delivery attempt is allowed
func (n *Notification) CanRetry() bool {
	return n.Attempts < MaxNotificationAttempts
}
