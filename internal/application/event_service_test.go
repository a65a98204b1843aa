package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centauromax/prep-center-sub000/internal/domain"
	apperrors "github.com/centauromax/prep-center-sub000/pkg/errors"
)

func newTestEventService(t *testing.T) (*EventService, *fakeEventRepository, *fakeNotifier) {
	t.Helper()
	events := newFakeEventRepository()
	notifier := &fakeNotifier{}
	dispatcher := newTestDispatcher(events, notifier, &fakeOutboxRepository{})
	guard := NewDedupGuard(newFakeDedupStore(), 5*time.Minute, clockwork.NewFakeClock())
	service := NewEventService(events, guard, dispatcher, testLogger(), nil, clockwork.NewFakeClock())
	return service, events, notifier
}

func TestIngestWebhookProcessesEvent(t *testing.T) {
	service, events, _ := newTestEventService(t)

	outcome, err := service.IngestWebhook(context.Background(), []byte(`{"id": 42, "team_id": 7, "name": "Restock", "status": "open"}`))
	require.NoError(t, err)

	assert.Equal(t, IngestStatusProcessed, outcome.Status)
	assert.Equal(t, domain.EventKindInboundCreated, outcome.EventKind)
	require.NotNil(t, outcome.Event)

	stored, err := events.FindByID(context.Background(), outcome.Event.ID.Hex())
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.Processed)
	assert.Equal(t, "42", stored.ExternalShipmentID)
	assert.JSONEq(t, `{"id": 42, "team_id": 7, "name": "Restock", "status": "open"}`, string(stored.RawPayload))
}

func TestIngestWebhookMalformedBody(t *testing.T) {
	service, _, _ := newTestEventService(t)

	_, err := service.IngestWebhook(context.Background(), []byte(`{"id":`))
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.CodeBadRequest, appErr.Code)
}

func TestIngestWebhookSuppressesDuplicates(t *testing.T) {
	service, _, notifier := newTestEventService(t)
	body := []byte(`{"id": 42, "team_id": 7, "name": "Restock", "status": "open"}`)

	first, err := service.IngestWebhook(context.Background(), body)
	require.NoError(t, err)
	require.Equal(t, IngestStatusProcessed, first.Status)

	second, err := service.IngestWebhook(context.Background(), body)
	require.NoError(t, err)
	assert.Equal(t, IngestStatusDuplicate, second.Status)
	require.NotNil(t, second.Event)
	assert.Equal(t, first.Event.ID, second.Event.ID)

	// The duplicate never reached the dispatcher, so only one notification.
	assert.Equal(t, 1, notifier.enqueuedCount())
}

func TestIngestWebhookAppendFailureReleasesDedupSlot(t *testing.T) {
	service, events, _ := newTestEventService(t)
	body := []byte(`{"id": 42, "team_id": 7, "name": "Restock", "status": "open"}`)

	events.appendErr = assert.AnError
	_, err := service.IngestWebhook(context.Background(), body)
	require.Error(t, err)

	// The retry of the same delivery must not be suppressed as a duplicate
	// of a record that was never stored.
	events.appendErr = nil
	outcome, err := service.IngestWebhook(context.Background(), body)
	require.NoError(t, err)
	assert.Equal(t, IngestStatusProcessed, outcome.Status)

	count, err := events.Count(context.Background(), domain.EventFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestIngestWebhookOutboundClosedNeverSuppressed(t *testing.T) {
	service, events, _ := newTestEventService(t)
	body := []byte(`{"id": 42, "team_id": 7, "name": "Transfer", "status": "closed", "shipped_at": "2024-05-01T10:00:00Z"}`)

	first, err := service.IngestWebhook(context.Background(), body)
	require.NoError(t, err)
	second, err := service.IngestWebhook(context.Background(), body)
	require.NoError(t, err)

	assert.Equal(t, IngestStatusProcessed, first.Status)
	assert.Equal(t, IngestStatusProcessed, second.Status)
	assert.NotEqual(t, first.Event.ID, second.Event.ID)

	count, err := events.Count(context.Background(), domain.EventFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestReprocessResetsAndReruns(t *testing.T) {
	service, events, _ := newTestEventService(t)

	outcome, err := service.IngestWebhook(context.Background(), []byte(`{"id": 42, "status": "open"}`))
	require.NoError(t, err)
	eventID := outcome.Event.ID.Hex()

	reprocessed, err := service.Reprocess(context.Background(), eventID)
	require.NoError(t, err)
	assert.Equal(t, eventID, reprocessed.ID.Hex())

	stored, err := events.FindByID(context.Background(), eventID)
	require.NoError(t, err)
	assert.True(t, stored.Processed)
}

func TestReprocessUnknownEvent(t *testing.T) {
	service, _, _ := newTestEventService(t)

	_, err := service.Reprocess(context.Background(), "64b000000000000000000000")
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
}
