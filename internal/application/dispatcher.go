package application

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/centauromax/prep-center-sub000/internal/domain"
	"github.com/centauromax/prep-center-sub000/pkg/cloudevents"
	"github.com/centauromax/prep-center-sub000/pkg/kafka"
	"github.com/centauromax/prep-center-sub000/pkg/logging"
	"github.com/centauromax/prep-center-sub000/pkg/metrics"
	"github.com/centauromax/prep-center-sub000/pkg/outbox"
)

// EventHandler processes one event kind
type EventHandler func(ctx context.Context, event *domain.ShipmentEvent) domain.ProcessingResult

// EventDispatcher routes classified events to their handlers and owns the
// processing-outcome fields of the event record.
//
// Handle never returns an error: handler failures become a stored
// ProcessingResult{success:false}, never an HTTP failure for the webhook
// caller. The order after handling is fixed — notify, persist outcome,
// outbox — so a crash before persistence leaves processed=false and the
// event safely re-runnable.
type EventDispatcher struct {
	events       domain.EventRepository
	notifier     Notifier
	outboxRepo   outbox.Repository
	eventFactory *cloudevents.EventFactory
	logger       *logging.Logger
	metrics      *metrics.Metrics
	clock        clockwork.Clock
	handlers     map[domain.EventKind]EventHandler
}

func NewEventDispatcher(
	events domain.EventRepository,
	notifier Notifier,
	outboxRepo outbox.Repository,
	eventFactory *cloudevents.EventFactory,
	reconciliation *ReconciliationEngine,
	logger *logging.Logger,
	m *metrics.Metrics,
	clock clockwork.Clock,
) *EventDispatcher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	dispatcher := &EventDispatcher{
		events:       events,
		notifier:     notifier,
		outboxRepo:   outboxRepo,
		eventFactory: eventFactory,
		logger:       logger.WithComponent("dispatcher"),
		metrics:      m,
		clock:        clock,
		handlers:     make(map[domain.EventKind]EventHandler),
	}

	// Only closing an outbound shipment has a side effect today; every other
	// kind is tracked for audit and (for some kinds) notification.
	if reconciliation != nil {
		dispatcher.handlers[domain.EventKindOutboundClosed] = reconciliation.Reconcile
	}
	return dispatcher
}

// RegisterHandler installs or replaces the handler for an event kind
func (d *EventDispatcher) RegisterHandler(kind domain.EventKind, handler EventHandler) {
	d.handlers[kind] = handler
}

// Handle processes an appended event and persists the outcome
func (d *EventDispatcher) Handle(ctx context.Context, event *domain.ShipmentEvent) domain.ProcessingResult {
	result := d.invoke(ctx, event)

	if event.EventKind.TriggersNotification() && d.notifier != nil {
		nameBefore := event.MerchantName
		if err := d.notifier.Enqueue(ctx, event); err != nil {
			d.logger.WithError(err).Warn("Failed to enqueue notification",
				"eventId", event.ID.Hex(),
				"eventKind", event.EventKind,
			)
		}
		// The notifier backfills the merchant name while resolving the
		// recipient; persist it so the audit field survives the request.
		if event.MerchantName != nameBefore {
			if err := d.events.SetMerchantName(ctx, event.ID.Hex(), event.MerchantName); err != nil {
				d.logger.WithError(err).Warn("Failed to persist merchant name",
					"eventId", event.ID.Hex(),
				)
			}
		}
	}

	processedAt := d.clock.Now()
	if err := d.events.MarkProcessed(ctx, event.ID.Hex(), result, processedAt); err != nil {
		d.logger.WithError(err).Error("Failed to persist processing outcome",
			"eventId", event.ID.Hex(),
		)
	} else {
		event.Processed = true
		event.ProcessingResult = &result
		event.ProcessedAt = &processedAt
	}

	d.appendOutboxRecord(ctx, event, result)

	if d.metrics != nil {
		d.metrics.RecordEventProcessed(string(event.EventKind), result.Success)
	}
	return result
}

// invoke runs the routed handler, converting panics into failure results
func (d *EventDispatcher) invoke(ctx context.Context, event *domain.ShipmentEvent) (result domain.ProcessingResult) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Panic(ctx, r)
			result = domain.ProcessingResult{
				Success: false,
				Message: fmt.Sprintf("handler panic: %v", r),
			}
		}
	}()

	handler, ok := d.handlers[event.EventKind]
	if !ok {
		return domain.ProcessingResult{
			Success: true,
			Message: fmt.Sprintf("event %s acknowledged", event.EventKind),
		}
	}
	return handler(ctx, event)
}

func (d *EventDispatcher) appendOutboxRecord(ctx context.Context, event *domain.ShipmentEvent, result domain.ProcessingResult) {
	if d.outboxRepo == nil || d.eventFactory == nil {
		return
	}

	data := cloudevents.ShipmentEventProcessedData{
		EventID:           event.ID.Hex(),
		ShipmentID:        event.ExternalShipmentID,
		EventKind:         string(event.EventKind),
		Success:           result.Success,
		Message:           result.Message,
		DerivedShipmentID: result.DerivedShipmentID,
		ProcessedAt:       d.clock.Now(),
		PreviousStatus:    event.PreviousStatus,
		NewStatus:         event.NewStatus,
	}

	cloudEvent := d.eventFactory.CreateShipmentEventProcessed(ctx, data)
	record, err := outbox.NewOutboxEventFromCloudEvent(
		event.ExternalShipmentID,
		"ShipmentEvent",
		kafka.Topics.ShipmentEvents,
		cloudEvent,
	)
	if err != nil {
		d.logger.WithError(err).Error("Failed to build outbox record", "eventId", event.ID.Hex())
		return
	}
	if err := d.outboxRepo.Save(ctx, record); err != nil {
		d.logger.WithError(err).Error("Failed to save outbox record", "eventId", event.ID.Hex())
	}
}
