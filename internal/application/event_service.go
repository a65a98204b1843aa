package application

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/centauromax/prep-center-sub000/internal/domain"
	apperrors "github.com/centauromax/prep-center-sub000/pkg/errors"
	"github.com/centauromax/prep-center-sub000/pkg/logging"
	"github.com/centauromax/prep-center-sub000/pkg/metrics"
)

// Ingestion outcomes reported to the webhook caller
const (
	IngestStatusProcessed = "processed"
	IngestStatusDuplicate = "duplicate"
)

// IngestOutcome is the result of running a webhook delivery through the
// classify -> dedup -> append -> dispatch pipeline.
type IngestOutcome struct {
	Status    string
	Message   string
	EventKind domain.EventKind
	Event     *domain.ShipmentEvent
}

// EventService owns webhook ingestion and the event-log query surface
type EventService struct {
	events     domain.EventRepository
	guard      *DedupGuard
	dispatcher *EventDispatcher
	logger     *logging.Logger
	metrics    *metrics.Metrics
	clock      clockwork.Clock
}

func NewEventService(
	events domain.EventRepository,
	guard *DedupGuard,
	dispatcher *EventDispatcher,
	logger *logging.Logger,
	m *metrics.Metrics,
	clock clockwork.Clock,
) *EventService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &EventService{
		events:     events,
		guard:      guard,
		dispatcher: dispatcher,
		logger:     logger.WithComponent("events"),
		metrics:    m,
		clock:      clock,
	}
}

// IngestWebhook runs one webhook delivery through the full pipeline. The
// whole pipeline completes synchronously before the HTTP reply: there is no
// separate processing queue, so an event is either fully handled or left
// unprocessed for a later retry.
func (s *EventService) IngestWebhook(ctx context.Context, body []byte) (*IngestOutcome, error) {
	payload, err := domain.ParseWebhookPayload(body)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordWebhookReceived("malformed")
		}
		return nil, apperrors.ErrBadRequest("malformed webhook payload")
	}

	kind, entity := domain.Classify(payload)
	if s.metrics != nil {
		s.metrics.RecordEventClassified(string(kind))
	}

	event := domain.NewShipmentEvent(payload, kind, entity, s.clock.Now())

	accepted, existingID, err := s.guard.Check(ctx, event.ExternalShipmentID, kind, event.ID.Hex())
	if err != nil {
		// Fail the request so the upstream retries; accepting without a
		// dedup record would let a later redelivery double-fire.
		return nil, fmt.Errorf("dedup check: %w", err)
	}
	if !accepted {
		if s.metrics != nil {
			s.metrics.RecordWebhookReceived("duplicate")
			s.metrics.RecordDuplicateSuppressed(string(kind))
		}
		existing, err := s.events.FindByID(ctx, existingID)
		if err != nil {
			s.logger.WithError(err).Warn("Failed to load suppressing event", "eventId", existingID)
		}
		s.logger.Info("Duplicate delivery suppressed",
			"shipmentId", event.ExternalShipmentID,
			"eventKind", kind,
			"existingEventId", existingID,
		)
		return &IngestOutcome{
			Status:    IngestStatusDuplicate,
			Message:   fmt.Sprintf("duplicate %s delivery suppressed", kind),
			EventKind: kind,
			Event:     existing,
		}, nil
	}

	if err := s.events.Append(ctx, event); err != nil {
		// Give the dedup slot back: the record was never stored, and the
		// upstream retry must not be suppressed as its duplicate.
		if releaseErr := s.guard.Release(ctx, event.ExternalShipmentID, kind, event.ID.Hex()); releaseErr != nil {
			s.logger.WithError(releaseErr).Warn("Failed to release dedup acceptance",
				"shipmentId", event.ExternalShipmentID,
				"eventKind", kind,
			)
		}
		return nil, fmt.Errorf("append event: %w", err)
	}
	if s.metrics != nil {
		s.metrics.RecordWebhookReceived("accepted")
	}

	result := s.dispatcher.Handle(ctx, event)

	return &IngestOutcome{
		Status:    IngestStatusProcessed,
		Message:   result.Message,
		EventKind: kind,
		Event:     event,
	}, nil
}

// Reprocess resets an event's outcome and re-runs the dispatcher on it
func (s *EventService) Reprocess(ctx context.Context, eventID string) (*domain.ShipmentEvent, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, domain.ErrEventNotFound
	}

	if err := s.events.ResetProcessed(ctx, eventID); err != nil {
		return nil, err
	}
	event.ResetProcessed()

	s.logger.Info("Reprocessing event",
		"eventId", eventID,
		"eventKind", event.EventKind,
		"shipmentId", event.ExternalShipmentID,
	)

	s.dispatcher.Handle(ctx, event)
	return event, nil
}

// GetEvent retrieves a single event record
func (s *EventService) GetEvent(ctx context.Context, eventID string) (*domain.ShipmentEvent, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, domain.ErrEventNotFound
	}
	return event, nil
}

// ListEvents retrieves event records matching the filter, newest first
func (s *EventService) ListEvents(ctx context.Context, filter domain.EventFilter, pagination domain.Pagination) ([]*domain.ShipmentEvent, int64, error) {
	events, err := s.events.List(ctx, filter, pagination)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.events.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}
