package domain

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ShipmentEvent errors
var (
	ErrEventNotFound         = errors.New("shipment event not found")
	ErrEventAlreadyProcessed = errors.New("shipment event already processed")
	ErrInvalidEventKind      = errors.New("invalid event kind")
)

// EventKind classifies what happened to a shipment upstream. The webhook
// payload carries no explicit type field, so the kind is always inferred.
type EventKind string

const (
	EventKindInboundCreated  EventKind = "inbound.created"
	EventKindInboundShipped  EventKind = "inbound.shipped"
	EventKindInboundReceived EventKind = "inbound.received"
	EventKindInboundUpdated  EventKind = "inbound.updated"
	EventKindOutboundCreated EventKind = "outbound.created"
	EventKindOutboundShipped EventKind = "outbound.shipped"
	EventKindOutboundClosed  EventKind = "outbound.closed"
	EventKindOutboundUpdated EventKind = "outbound.updated"
	EventKindOther           EventKind = "other"
)

// IsValid checks if the event kind is one of the known values
func (k EventKind) IsValid() bool {
	switch k {
	case EventKindInboundCreated, EventKindInboundShipped, EventKindInboundReceived,
		EventKindInboundUpdated, EventKindOutboundCreated, EventKindOutboundShipped,
		EventKindOutboundClosed, EventKindOutboundUpdated, EventKindOther:
		return true
	default:
		return false
	}
}

// IsInbound returns true for inbound-family kinds
func (k EventKind) IsInbound() bool {
	switch k {
	case EventKindInboundCreated, EventKindInboundShipped, EventKindInboundReceived, EventKindInboundUpdated:
		return true
	default:
		return false
	}
}

// IsOutbound returns true for outbound-family kinds
func (k EventKind) IsOutbound() bool {
	switch k {
	case EventKindOutboundCreated, EventKindOutboundShipped, EventKindOutboundClosed, EventKindOutboundUpdated:
		return true
	default:
		return false
	}
}

// BypassesDedup reports whether duplicate deliveries of this kind must all be
// accepted. Re-closing an outbound shipment can carry a changed item set, so
// reconciliation has to re-run every time.
func (k EventKind) BypassesDedup() bool {
	return k == EventKindOutboundClosed
}

// TriggersNotification reports whether processing this kind enqueues a
// merchant notification.
func (k EventKind) TriggersNotification() bool {
	switch k {
	case EventKindInboundCreated, EventKindInboundReceived,
		EventKindOutboundCreated, EventKindOutboundClosed:
		return true
	default:
		return false
	}
}

// EntityKind identifies which side of the warehouse the shipment belongs to
type EntityKind string

const (
	EntityKindInboundShipment  EntityKind = "inbound_shipment"
	EntityKindOutboundShipment EntityKind = "outbound_shipment"
)

// ProcessingResult is the structured outcome of dispatching an event
type ProcessingResult struct {
	Success           bool   `bson:"success" json:"success"`
	Message           string `bson:"message" json:"message"`
	DerivedShipmentID string `bson:"derivedShipmentId,omitempty" json:"derivedShipmentId,omitempty"`
}

// ShipmentEvent is the durable record of one ingested webhook delivery.
// Everything except the processing-outcome fields is immutable after creation;
// rawPayload in particular is kept verbatim for audit and replay.
type ShipmentEvent struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ExternalShipmentID string             `bson:"externalShipmentId" json:"externalShipmentId"`
	EventKind          EventKind          `bson:"eventKind" json:"eventKind"`
	EntityKind         EntityKind         `bson:"entityKind" json:"entityKind"`
	ShipmentName       string             `bson:"shipmentName,omitempty" json:"shipmentName,omitempty"`
	PreviousStatus     string             `bson:"previousStatus,omitempty" json:"previousStatus,omitempty"`
	NewStatus          string             `bson:"newStatus,omitempty" json:"newStatus,omitempty"`
	MerchantID         string             `bson:"merchantId,omitempty" json:"merchantId,omitempty"`
	MerchantName       string             `bson:"merchantName,omitempty" json:"merchantName,omitempty"`
	RawPayload         []byte             `bson:"rawPayload" json:"-"`
	ReceivedAt         time.Time          `bson:"receivedAt" json:"receivedAt"`
	Processed          bool               `bson:"processed" json:"processed"`
	ProcessingResult   *ProcessingResult  `bson:"processingResult,omitempty" json:"processingResult,omitempty"`
	ProcessedAt        *time.Time         `bson:"processedAt,omitempty" json:"processedAt,omitempty"`
}

// NewShipmentEvent creates an unprocessed event record from a classified payload
func NewShipmentEvent(payload *WebhookPayload, kind EventKind, entity EntityKind, receivedAt time.Time) *ShipmentEvent {
	event := &ShipmentEvent{
		ID:                 primitive.NewObjectID(),
		ExternalShipmentID: payload.ShipmentID(),
		EventKind:          kind,
		EntityKind:         entity,
		ShipmentName:       payload.Name,
		PreviousStatus:     payload.PreviousStatus,
		NewStatus:          payload.Status,
		MerchantID:         payload.MerchantID(),
		RawPayload:         payload.Raw(),
		ReceivedAt:         receivedAt,
		Processed:          false,
	}
	return event
}

// MarkProcessed records the handler outcome. Returns an error if the event
// was already processed; the reset path must be used first to re-run it.
func (e *ShipmentEvent) MarkProcessed(result ProcessingResult, at time.Time) error {
	if e.Processed {
		return ErrEventAlreadyProcessed
	}
	e.Processed = true
	e.ProcessingResult = &result
	e.ProcessedAt = &at
	return nil
}

// ResetProcessed clears the processing outcome so the event can be re-run
func (e *ShipmentEvent) ResetProcessed() {
	e.Processed = false
	e.ProcessingResult = nil
	e.ProcessedAt = nil
}
