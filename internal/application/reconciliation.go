package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/centauromax/prep-center-sub000/internal/domain"
	"github.com/centauromax/prep-center-sub000/internal/infrastructure/prepapi"
	"github.com/centauromax/prep-center-sub000/pkg/cloudevents"
	"github.com/centauromax/prep-center-sub000/pkg/kafka"
	"github.com/centauromax/prep-center-sub000/pkg/logging"
	"github.com/centauromax/prep-center-sub000/pkg/metrics"
	"github.com/centauromax/prep-center-sub000/pkg/outbox"
)

// ReconciliationEngine diffs a closed outbound shipment against the inbound
// shipment that stocked it, and opens a follow-up inbound shipment holding
// whatever was received but never shipped out.
//
// Every remote failure is terminal for this run: the outcome is recorded on
// the event and recovery is an operator reprocess, never an automatic retry.
type ReconciliationEngine struct {
	client       PrepClient
	outboxRepo   outbox.Repository
	eventFactory *cloudevents.EventFactory
	logger       *logging.Logger
	metrics      *metrics.Metrics
}

func NewReconciliationEngine(
	client PrepClient,
	outboxRepo outbox.Repository,
	eventFactory *cloudevents.EventFactory,
	logger *logging.Logger,
	m *metrics.Metrics,
) *ReconciliationEngine {
	return &ReconciliationEngine{
		client:       client,
		outboxRepo:   outboxRepo,
		eventFactory: eventFactory,
		logger:       logger.WithComponent("reconciliation"),
		metrics:      m,
	}
}

// Reconcile handles an outbound.closed event
func (e *ReconciliationEngine) Reconcile(ctx context.Context, event *domain.ShipmentEvent) domain.ProcessingResult {
	shipped, err := e.client.GetOutboundItems(ctx, event.ExternalShipmentID, event.MerchantID)
	if err != nil {
		return e.failure(event, "fetch outbound items", err)
	}

	inbound, err := e.findSourceInbound(ctx, event)
	if err != nil {
		return e.failure(event, "find source inbound shipment", err)
	}
	if inbound == nil {
		// Not an error: outbound shipments without a same-named inbound
		// sibling (manual orders, direct forwards) have nothing to reconcile.
		return domain.ProcessingResult{
			Success: true,
			Message: fmt.Sprintf("no open inbound shipment named %q; nothing to reconcile", event.ShipmentName),
		}
	}

	received, err := e.client.GetInboundItems(ctx, inbound.ID, event.MerchantID)
	if err != nil {
		return e.failure(event, "fetch inbound items", err)
	}

	residual := domain.ComputeResidual(received, shipped)
	if len(residual) == 0 {
		return domain.ProcessingResult{
			Success: true,
			Message: "nothing residual; all received inventory was shipped",
		}
	}

	request := prepapi.CreateInboundShipmentRequest{
		Name:        domain.ResidualShipmentName(inbound.Name),
		MerchantID:  event.MerchantID,
		WarehouseID: inbound.WarehouseID,
		Items:       make([]prepapi.NewShipmentItem, 0, len(residual)),
	}
	for _, line := range residual {
		request.Items = append(request.Items, prepapi.NewShipmentItem{
			SKU:      line.SKU,
			Quantity: line.Quantity,
		})
	}

	createdID, err := e.client.CreateInboundShipment(ctx, request)
	if err != nil {
		return e.failure(event, "create residual shipment", err)
	}

	if e.metrics != nil {
		e.metrics.RecordResidualShipmentCreated()
	}
	e.logger.Info("Created residual shipment",
		"sourceOutboundId", event.ExternalShipmentID,
		"sourceInboundId", inbound.ID,
		"createdShipmentId", createdID,
		"lines", len(residual),
	)
	e.appendOutboxRecord(ctx, event, inbound.ID, createdID, residual)

	return domain.ProcessingResult{
		Success:           true,
		Message:           fmt.Sprintf("created residual shipment with %d lines", len(residual)),
		DerivedShipmentID: createdID,
	}
}

// findSourceInbound looks up the merchant's open inbound shipment whose name
// equals the outbound shipment's name, case-insensitively. First hit wins.
func (e *ReconciliationEngine) findSourceInbound(ctx context.Context, event *domain.ShipmentEvent) (*prepapi.InboundShipmentSummary, error) {
	if event.ShipmentName == "" {
		return nil, nil
	}

	shipments, err := e.client.GetInboundShipments(ctx, event.MerchantID, domain.StatusOpen)
	if err != nil {
		return nil, err
	}

	for i := range shipments {
		if strings.EqualFold(shipments[i].Name, event.ShipmentName) {
			if countByName(shipments, event.ShipmentName) > 1 {
				e.logger.Warn("Multiple open inbound shipments share a name; using first",
					"name", event.ShipmentName,
					"merchantId", event.MerchantID,
				)
			}
			return &shipments[i], nil
		}
	}
	return nil, nil
}

func countByName(shipments []prepapi.InboundShipmentSummary, name string) int {
	count := 0
	for i := range shipments {
		if strings.EqualFold(shipments[i].Name, name) {
			count++
		}
	}
	return count
}

// appendOutboxRecord fans out the residual creation as a CloudEvent. Outbox
// failures are logged only; the residual shipment already exists remotely.
func (e *ReconciliationEngine) appendOutboxRecord(
	ctx context.Context,
	event *domain.ShipmentEvent,
	sourceInboundID string,
	createdID string,
	residual []domain.ResidualItem,
) {
	if e.outboxRepo == nil || e.eventFactory == nil {
		return
	}

	data := cloudevents.ResidualShipmentCreatedData{
		SourceOutboundID:  event.ExternalShipmentID,
		SourceInboundID:   sourceInboundID,
		CreatedShipmentID: createdID,
		Name:              domain.ResidualShipmentName(event.ShipmentName),
		Lines:             make([]cloudevents.ResidualLine, 0, len(residual)),
	}
	for _, line := range residual {
		data.Lines = append(data.Lines, cloudevents.ResidualLine{
			SKU:      line.SKU,
			Quantity: line.Quantity,
			Title:    line.Title,
		})
	}

	cloudEvent := e.eventFactory.CreateResidualShipmentCreated(ctx, event.MerchantID, data)
	record, err := outbox.NewOutboxEventFromCloudEvent(createdID, "InboundShipment", kafka.Topics.ShipmentEvents, cloudEvent)
	if err != nil {
		e.logger.WithError(err).Error("Failed to build residual outbox record", "createdShipmentId", createdID)
		return
	}
	if err := e.outboxRepo.Save(ctx, record); err != nil {
		e.logger.WithError(err).Error("Failed to save residual outbox record", "createdShipmentId", createdID)
	}
}

func (e *ReconciliationEngine) failure(event *domain.ShipmentEvent, step string, err error) domain.ProcessingResult {
	e.logger.WithError(err).Error("Reconciliation failed",
		"step", step,
		"shipmentId", event.ExternalShipmentID,
	)
	return domain.ProcessingResult{
		Success: false,
		Message: fmt.Sprintf("%s: %v", step, err),
	}
}
