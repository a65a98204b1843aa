package domain

import (
	"context"
	"time"
)

// DefaultDedupWindow is how long a non-bypassing event kind suppresses
// redeliveries of the same (shipmentId, eventKind) pair.
const DefaultDedupWindow = 5 * time.Minute

// EventRepository defines the interface for the append-only event log
type EventRepository interface {
	// Append persists a new event record
	Append(ctx context.Context, event *ShipmentEvent) error

	// FindByID retrieves an event by its record id (hex ObjectID)
	FindByID(ctx context.Context, id string) (*ShipmentEvent, error)

	// MarkProcessed sets processed=true with the handler outcome
	MarkProcessed(ctx context.Context, id string, result ProcessingResult, at time.Time) error

	// ResetProcessed clears the processing outcome so the event can be re-run
	ResetProcessed(ctx context.Context, id string) error

	// SetMerchantName fills the merchant-name audit field once resolved
	SetMerchantName(ctx context.Context, id string, name string) error

	// List retrieves events matching the filter, newest first
	List(ctx context.Context, filter EventFilter, pagination Pagination) ([]*ShipmentEvent, error)

	// Count returns the number of events matching the filter
	Count(ctx context.Context, filter EventFilter) (int64, error)
}

// EventFilter represents filter options for querying the event log
type EventFilter struct {
	ExternalShipmentID *string
	EventKind          *EventKind
	Processed          *bool
}

// Pagination represents pagination options
type Pagination struct {
	Limit  int64
	Offset int64
}

// Normalize clamps pagination to sane bounds
func (p Pagination) Normalize() Pagination {
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Limit > 500 {
		p.Limit = 500
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// DedupStore records accepted deliveries per (shipmentId, eventKind) pair.
// TryAccept must be atomic: when two duplicate deliveries race, exactly one
// is accepted. On rejection it returns the record id of the event accepted
// inside the window.
type DedupStore interface {
	TryAccept(ctx context.Context, shipmentID string, kind EventKind, eventID string, now time.Time, window time.Duration) (accepted bool, existingEventID string, err error)

	// Release removes an acceptance this caller recorded, so the next
	// delivery of the pair is treated as fresh. Only the record holding
	// eventID is removed; a concurrent later acceptance stays untouched.
	Release(ctx context.Context, shipmentID string, kind EventKind, eventID string) error
}

// NotificationRepository defines the interface for the notification queue
type NotificationRepository interface {
	// Save persists a new pending notification
	Save(ctx context.Context, notification *Notification) error

	// FindPending retrieves pending notifications with remaining attempts,
	// oldest first
	FindPending(ctx context.Context, limit int) ([]*Notification, error)

	// MarkSent records a successful delivery
	MarkSent(ctx context.Context, id string, providerMessageID string, at time.Time) error

	// MarkAttemptFailed increments attempts and records the error; the
	// status moves to failed once attempts are exhausted
	MarkAttemptFailed(ctx context.Context, id string, deliveryErr string) error
}

// SearchResultRepository defines the interface for background search results
type SearchResultRepository interface {
	// Save persists one matched line
	Save(ctx context.Context, item *SearchResultItem) error

	// FindBySearchID retrieves all results accumulated for a search job
	FindBySearchID(ctx context.Context, searchID string) ([]*SearchResultItem, error)
}

// JobFlagStore holds TTL'd done-flags for asynchronous jobs. A missing flag
// means the job is still running (or expired).
type JobFlagStore interface {
	// SetDone marks a job key as finished
	SetDone(ctx context.Context, key string) error

	// IsDone reports whether a job key has been marked finished
	IsDone(ctx context.Context, key string) (bool, error)
}
