package application

import (
	"context"

	"github.com/centauromax/prep-center-sub000/internal/domain"
	"github.com/centauromax/prep-center-sub000/internal/infrastructure/prepapi"
)

// PrepClient is the slice of the remote prep service the application layer
// needs. Satisfied by prepapi.Client; tests inject fakes.
type PrepClient interface {
	GetOutboundItems(ctx context.Context, shipmentID, merchantID string) ([]domain.OutboundItem, error)
	GetInboundShipments(ctx context.Context, merchantID, status string) ([]prepapi.InboundShipmentSummary, error)
	GetInboundItems(ctx context.Context, shipmentID, merchantID string) ([]domain.InboundItem, error)
	CreateInboundShipment(ctx context.Context, request prepapi.CreateInboundShipmentRequest) (string, error)
	GetMerchants(ctx context.Context) ([]prepapi.Merchant, error)
}

// Notifier enqueues merchant notifications for processed events. Enqueue
// failures are logged and dropped; they never fail event processing.
type Notifier interface {
	Enqueue(ctx context.Context, event *domain.ShipmentEvent) error
}
