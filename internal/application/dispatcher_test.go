package application

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centauromax/prep-center-sub000/internal/domain"
	"github.com/centauromax/prep-center-sub000/pkg/cloudevents"
)

func newTestEvent(t *testing.T, kind domain.EventKind, body string) *domain.ShipmentEvent {
	t.Helper()
	payload, err := domain.ParseWebhookPayload([]byte(body))
	require.NoError(t, err)
	entity := domain.EntityKindInboundShipment
	if kind.IsOutbound() {
		entity = domain.EntityKindOutboundShipment
	}
	return domain.NewShipmentEvent(payload, kind, entity, time.Now())
}

func newTestDispatcher(events *fakeEventRepository, notifier *fakeNotifier, outboxRepo *fakeOutboxRepository) *EventDispatcher {
	return NewEventDispatcher(
		events,
		notifier,
		outboxRepo,
		cloudevents.NewEventFactory(cloudevents.SourceEventsService),
		nil,
		testLogger(),
		nil,
		clockwork.NewFakeClock(),
	)
}

func TestDispatcherDefaultHandlerAcknowledges(t *testing.T) {
	events := newFakeEventRepository()
	dispatcher := newTestDispatcher(events, &fakeNotifier{}, &fakeOutboxRepository{})

	event := newTestEvent(t, domain.EventKindInboundUpdated, `{"id": 1, "name": "Restock", "status": "draft"}`)
	require.NoError(t, events.Append(context.Background(), event))

	result := dispatcher.Handle(context.Background(), event)

	assert.True(t, result.Success)
	assert.Contains(t, result.Message, "acknowledged")
}

func TestDispatcherPersistsOutcomeOnce(t *testing.T) {
	events := newFakeEventRepository()
	dispatcher := newTestDispatcher(events, &fakeNotifier{}, &fakeOutboxRepository{})

	event := newTestEvent(t, domain.EventKindInboundUpdated, `{"id": 1, "status": "draft"}`)
	require.NoError(t, events.Append(context.Background(), event))

	dispatcher.Handle(context.Background(), event)

	stored, err := events.FindByID(context.Background(), event.ID.Hex())
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.Processed)
	require.NotNil(t, stored.ProcessingResult)
	assert.True(t, stored.ProcessingResult.Success)
	require.NotNil(t, stored.ProcessedAt)
}

func TestDispatcherNeverPanics(t *testing.T) {
	events := newFakeEventRepository()
	dispatcher := newTestDispatcher(events, &fakeNotifier{}, &fakeOutboxRepository{})
	dispatcher.RegisterHandler(domain.EventKindInboundCreated, func(ctx context.Context, event *domain.ShipmentEvent) domain.ProcessingResult {
		panic("handler exploded")
	})

	event := newTestEvent(t, domain.EventKindInboundCreated, `{"id": 1, "status": "open"}`)
	require.NoError(t, events.Append(context.Background(), event))

	var result domain.ProcessingResult
	assert.NotPanics(t, func() {
		result = dispatcher.Handle(context.Background(), event)
	})

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "panic")

	// The failure is still recorded as a processed outcome.
	stored, err := events.FindByID(context.Background(), event.ID.Hex())
	require.NoError(t, err)
	assert.True(t, stored.Processed)
	assert.False(t, stored.ProcessingResult.Success)
}

func TestDispatcherNotificationAllowList(t *testing.T) {
	tests := []struct {
		kind       domain.EventKind
		body       string
		wantNotify bool
	}{
		{domain.EventKindInboundCreated, `{"id": 1, "status": "open"}`, true},
		{domain.EventKindInboundReceived, `{"id": 1, "status": "received"}`, true},
		{domain.EventKindOutboundCreated, `{"id": 1, "status": "open", "outbound_items": []}`, true},
		{domain.EventKindOutboundClosed, `{"id": 1, "status": "closed", "shipped_at": "2024-05-01T10:00:00Z"}`, true},
		{domain.EventKindInboundShipped, `{"id": 1, "shipped_at": "2024-05-01T10:00:00Z"}`, false},
		{domain.EventKindInboundUpdated, `{"id": 1, "status": "draft"}`, false},
		{domain.EventKindOutboundUpdated, `{"id": 1, "status": "draft"}`, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			events := newFakeEventRepository()
			notifier := &fakeNotifier{}
			dispatcher := newTestDispatcher(events, notifier, &fakeOutboxRepository{})

			event := newTestEvent(t, tt.kind, tt.body)
			require.NoError(t, events.Append(context.Background(), event))

			dispatcher.Handle(context.Background(), event)

			if tt.wantNotify {
				assert.Equal(t, 1, notifier.enqueuedCount())
			} else {
				assert.Equal(t, 0, notifier.enqueuedCount())
			}
		})
	}
}

func TestDispatcherNotifierFailureDoesNotFailProcessing(t *testing.T) {
	events := newFakeEventRepository()
	notifier := &fakeNotifier{err: assert.AnError}
	dispatcher := newTestDispatcher(events, notifier, &fakeOutboxRepository{})

	event := newTestEvent(t, domain.EventKindInboundCreated, `{"id": 1, "status": "open"}`)
	require.NoError(t, events.Append(context.Background(), event))

	result := dispatcher.Handle(context.Background(), event)

	assert.True(t, result.Success)
	stored, _ := events.FindByID(context.Background(), event.ID.Hex())
	assert.True(t, stored.Processed)
}

func TestDispatcherPersistsBackfilledMerchantName(t *testing.T) {
	events := newFakeEventRepository()
	notifier := &fakeNotifier{merchantName: "Acme"}
	dispatcher := newTestDispatcher(events, notifier, &fakeOutboxRepository{})

	event := newTestEvent(t, domain.EventKindInboundCreated, `{"id": 1, "team_id": 7, "status": "open"}`)
	require.NoError(t, events.Append(context.Background(), event))

	dispatcher.Handle(context.Background(), event)

	stored, err := events.FindByID(context.Background(), event.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "Acme", stored.MerchantName)
}

func TestDispatcherAppendsOutboxRecord(t *testing.T) {
	events := newFakeEventRepository()
	outboxRepo := &fakeOutboxRepository{}
	dispatcher := newTestDispatcher(events, &fakeNotifier{}, outboxRepo)

	event := newTestEvent(t, domain.EventKindInboundUpdated, `{"id": 1, "status": "draft"}`)
	require.NoError(t, events.Append(context.Background(), event))

	dispatcher.Handle(context.Background(), event)

	require.Equal(t, 1, outboxRepo.savedCount())
	assert.Equal(t, cloudevents.ShipmentEventProcessed, outboxRepo.saved[0].EventType)
}
