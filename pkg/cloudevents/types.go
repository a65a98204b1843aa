package cloudevents

import (
	"time"
)

// EventType constants for prep-center domain events
const (
	ShipmentEventProcessed  = "prepcenter.shipment.event-processed"
	ResidualShipmentCreated = "prepcenter.shipment.residual-created"
	NotificationQueued      = "prepcenter.notification.queued"
)

// Source constants for event sources
const (
	SourceEventsService = "/prepcenter/events-service"
)

// PrepCloudEvent represents a CloudEvents v1.0 compliant event
type PrepCloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	Type            string      `json:"type"`
	Source          string      `json:"source"`
	Subject         string      `json:"subject,omitempty"`
	ID              string      `json:"id"`
	Time            time.Time   `json:"time"`
	DataContentType string      `json:"datacontenttype"`
	Data            interface{} `json:"data"`

	// Prep-center extensions
	CorrelationID string `json:"prepcorrelationid,omitempty"`
	MerchantID    string `json:"prepmerchantid,omitempty"`
	ShipmentID    string `json:"prepshipmentid,omitempty"`
}

// ShipmentEventProcessedData is the payload for ShipmentEventProcessed events
type ShipmentEventProcessedData struct {
	EventID           string    `json:"eventId"`
	ShipmentID        string    `json:"shipmentId"`
	EventKind         string    `json:"eventKind"`
	Success           bool      `json:"success"`
	Message           string    `json:"message,omitempty"`
	DerivedShipmentID string    `json:"derivedShipmentId,omitempty"`
	ProcessedAt       time.Time `json:"processedAt"`
	PreviousStatus    string    `json:"previousStatus,omitempty"`
	NewStatus         string    `json:"newStatus,omitempty"`
}

// ResidualLine is one leftover SKU line on a residual shipment
type ResidualLine struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
	Title    string `json:"title,omitempty"`
}

// ResidualShipmentCreatedData is the payload for ResidualShipmentCreated events
type ResidualShipmentCreatedData struct {
	SourceOutboundID  string         `json:"sourceOutboundId"`
	SourceInboundID   string         `json:"sourceInboundId"`
	CreatedShipmentID string         `json:"createdShipmentId"`
	Name              string         `json:"name"`
	Lines             []ResidualLine `json:"lines"`
}
