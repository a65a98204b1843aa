package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventFactory creates CloudEvents for prep-center domain events
type EventFactory struct {
	source string
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source}
}

// CreateEvent creates a new PrepCloudEvent with the given parameters
func (f *EventFactory) CreateEvent(
	ctx context.Context,
	eventType string,
	subject string,
	data interface{},
) *PrepCloudEvent {
	return &PrepCloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            data,
	}
}

// CreateShipmentEventProcessed creates a ShipmentEventProcessed event
func (f *EventFactory) CreateShipmentEventProcessed(
	ctx context.Context,
	data ShipmentEventProcessedData,
) *PrepCloudEvent {
	event := f.CreateEvent(ctx, ShipmentEventProcessed, "shipment/"+data.ShipmentID, data)
	event.ShipmentID = data.ShipmentID
	return event
}

// CreateResidualShipmentCreated creates a ResidualShipmentCreated event
func (f *EventFactory) CreateResidualShipmentCreated(
	ctx context.Context,
	merchantID string,
	data ResidualShipmentCreatedData,
) *PrepCloudEvent {
	event := f.CreateEvent(ctx, ResidualShipmentCreated, "shipment/"+data.CreatedShipmentID, data)
	event.MerchantID = merchantID
	event.ShipmentID = data.CreatedShipmentID
	return event
}
