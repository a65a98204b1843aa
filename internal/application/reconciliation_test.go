package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centauromax/prep-center-sub000/internal/domain"
	"github.com/centauromax/prep-center-sub000/internal/infrastructure/prepapi"
	"github.com/centauromax/prep-center-sub000/pkg/cloudevents"
)

func closedOutboundEvent(t *testing.T, name string) *domain.ShipmentEvent {
	t.Helper()
	payload, err := domain.ParseWebhookPayload([]byte(`{"id": 42, "team_id": 7, "name": "` + name + `", "status": "closed", "shipped_at": "2024-05-01T10:00:00Z"}`))
	require.NoError(t, err)
	return domain.NewShipmentEvent(payload, domain.EventKindOutboundClosed, domain.EntityKindOutboundShipment, time.Now())
}

func TestReconcileCreatesResidualShipment(t *testing.T) {
	var created prepapi.CreateInboundShipmentRequest

	client := &fakePrepClient{
		getOutboundItemsFunc: func(ctx context.Context, shipmentID, merchantID string) ([]domain.OutboundItem, error) {
			assert.Equal(t, "42", shipmentID)
			assert.Equal(t, "7", merchantID)
			return []domain.OutboundItem{
				{SKU: "P1", QuantityShipped: 5},
				{SKU: "P2", QuantityShipped: 5},
				{SKU: "P3", QuantityShipped: 2},
				{SKU: "P4", QuantityShipped: 0},
				{SKU: "P5", QuantityShipped: 4},
				{SKU: "P6", QuantityShipped: 15},
			}, nil
		},
		getInboundShipmentsFunc: func(ctx context.Context, merchantID, status string) ([]prepapi.InboundShipmentSummary, error) {
			assert.Equal(t, domain.StatusOpen, status)
			return []prepapi.InboundShipmentSummary{
				{ID: "11", Name: "spring RESTOCK", Status: "open", WarehouseID: "W1"},
			}, nil
		},
		getInboundItemsFunc: func(ctx context.Context, shipmentID, merchantID string) ([]domain.InboundItem, error) {
			assert.Equal(t, "11", shipmentID)
			return []domain.InboundItem{
				{SKU: "P1", QuantityReceived: 10},
				{SKU: "P2", QuantityReceived: 5},
				{SKU: "P3", QuantityReceived: 3},
				{SKU: "P4", QuantityReceived: 0},
				{SKU: "P5", QuantityReceived: 4},
				{SKU: "P6", QuantityReceived: 21},
			}, nil
		},
		createInboundShipmentFunc: func(ctx context.Context, request prepapi.CreateInboundShipmentRequest) (string, error) {
			created = request
			return "77", nil
		},
	}

	engine := NewReconciliationEngine(client, nil, nil, testLogger(), nil)
	// Name match is case-insensitive.
	result := engine.Reconcile(context.Background(), closedOutboundEvent(t, "Spring Restock"))

	assert.True(t, result.Success)
	assert.Equal(t, "77", result.DerivedShipmentID)
	assert.Equal(t, "spring RESTOCK - RESIDUAL", created.Name)
	assert.Equal(t, "W1", created.WarehouseID)
	assert.Equal(t, "7", created.MerchantID)
	assert.Equal(t, []prepapi.NewShipmentItem{
		{SKU: "P1", Quantity: 5},
		{SKU: "P3", Quantity: 1},
		{SKU: "P6", Quantity: 6},
	}, created.Items)
}

func TestReconcileNoMatchingInboundIsTerminalSuccess(t *testing.T) {
	createCalled := false
	client := &fakePrepClient{
		getInboundShipmentsFunc: func(ctx context.Context, merchantID, status string) ([]prepapi.InboundShipmentSummary, error) {
			return []prepapi.InboundShipmentSummary{
				{ID: "11", Name: "something else", Status: "open"},
			}, nil
		},
		createInboundShipmentFunc: func(ctx context.Context, request prepapi.CreateInboundShipmentRequest) (string, error) {
			createCalled = true
			return "", nil
		},
	}

	engine := NewReconciliationEngine(client, nil, nil, testLogger(), nil)
	result := engine.Reconcile(context.Background(), closedOutboundEvent(t, "Spring Restock"))

	assert.True(t, result.Success)
	assert.Contains(t, result.Message, "nothing to reconcile")
	assert.Empty(t, result.DerivedShipmentID)
	assert.False(t, createCalled)
}

func TestReconcileEmptyResidualCreatesNothing(t *testing.T) {
	createCalled := false
	client := &fakePrepClient{
		getOutboundItemsFunc: func(ctx context.Context, shipmentID, merchantID string) ([]domain.OutboundItem, error) {
			return []domain.OutboundItem{{SKU: "P1", QuantityShipped: 10}}, nil
		},
		getInboundShipmentsFunc: func(ctx context.Context, merchantID, status string) ([]prepapi.InboundShipmentSummary, error) {
			return []prepapi.InboundShipmentSummary{{ID: "11", Name: "Spring Restock", Status: "open"}}, nil
		},
		getInboundItemsFunc: func(ctx context.Context, shipmentID, merchantID string) ([]domain.InboundItem, error) {
			return []domain.InboundItem{{SKU: "P1", QuantityReceived: 10}}, nil
		},
		createInboundShipmentFunc: func(ctx context.Context, request prepapi.CreateInboundShipmentRequest) (string, error) {
			createCalled = true
			return "", nil
		},
	}

	engine := NewReconciliationEngine(client, nil, nil, testLogger(), nil)
	result := engine.Reconcile(context.Background(), closedOutboundEvent(t, "Spring Restock"))

	assert.True(t, result.Success)
	assert.Contains(t, result.Message, "nothing residual")
	assert.False(t, createCalled)
}

func TestReconcileRemoteFailureIsRecordedNotThrown(t *testing.T) {
	client := &fakePrepClient{
		getOutboundItemsFunc: func(ctx context.Context, shipmentID, merchantID string) ([]domain.OutboundItem, error) {
			return nil, assert.AnError
		},
	}

	engine := NewReconciliationEngine(client, nil, nil, testLogger(), nil)
	result := engine.Reconcile(context.Background(), closedOutboundEvent(t, "Spring Restock"))

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "fetch outbound items")
}

func TestReconcileFirstNameMatchWins(t *testing.T) {
	client := &fakePrepClient{
		getOutboundItemsFunc: func(ctx context.Context, shipmentID, merchantID string) ([]domain.OutboundItem, error) {
			return []domain.OutboundItem{{SKU: "P1", QuantityShipped: 1}}, nil
		},
		getInboundShipmentsFunc: func(ctx context.Context, merchantID, status string) ([]prepapi.InboundShipmentSummary, error) {
			return []prepapi.InboundShipmentSummary{
				{ID: "first", Name: "Spring Restock", Status: "open", WarehouseID: "W1"},
				{ID: "second", Name: "Spring Restock", Status: "open", WarehouseID: "W2"},
			}, nil
		},
		getInboundItemsFunc: func(ctx context.Context, shipmentID, merchantID string) ([]domain.InboundItem, error) {
			require.Equal(t, "first", shipmentID)
			return []domain.InboundItem{{SKU: "P1", QuantityReceived: 1}}, nil
		},
	}

	engine := NewReconciliationEngine(client, nil, nil, testLogger(), nil)
	result := engine.Reconcile(context.Background(), closedOutboundEvent(t, "Spring Restock"))
	assert.True(t, result.Success)
}

func TestReconcileRecordsResidualCreationInOutbox(t *testing.T) {
	client := &fakePrepClient{
		getOutboundItemsFunc: func(ctx context.Context, shipmentID, merchantID string) ([]domain.OutboundItem, error) {
			return []domain.OutboundItem{{SKU: "P1", QuantityShipped: 2}}, nil
		},
		getInboundShipmentsFunc: func(ctx context.Context, merchantID, status string) ([]prepapi.InboundShipmentSummary, error) {
			return []prepapi.InboundShipmentSummary{{ID: "11", Name: "Spring Restock", Status: "open", WarehouseID: "W1"}}, nil
		},
		getInboundItemsFunc: func(ctx context.Context, shipmentID, merchantID string) ([]domain.InboundItem, error) {
			return []domain.InboundItem{{SKU: "P1", QuantityReceived: 5}}, nil
		},
		createInboundShipmentFunc: func(ctx context.Context, request prepapi.CreateInboundShipmentRequest) (string, error) {
			return "77", nil
		},
	}

	outboxRepo := &fakeOutboxRepository{}
	factory := cloudevents.NewEventFactory(cloudevents.SourceEventsService)
	engine := NewReconciliationEngine(client, outboxRepo, factory, testLogger(), nil)

	result := engine.Reconcile(context.Background(), closedOutboundEvent(t, "Spring Restock"))

	require.True(t, result.Success)
	require.Equal(t, 1, outboxRepo.savedCount())
	record := outboxRepo.saved[0]
	assert.Equal(t, cloudevents.ResidualShipmentCreated, record.EventType)
	assert.Equal(t, "77", record.AggregateID)
}
