package application

import (
	"context"
	"sync"
	"time"

	"github.com/centauromax/prep-center-sub000/internal/domain"
	"github.com/centauromax/prep-center-sub000/internal/infrastructure/prepapi"
	"github.com/centauromax/prep-center-sub000/pkg/logging"
	"github.com/centauromax/prep-center-sub000/pkg/outbox"
)

func testLogger() *logging.Logger {
	return logging.New(logging.DefaultConfig("application-test"))
}

// fakeEventRepository is an in-memory domain.EventRepository
type fakeEventRepository struct {
	mu        sync.Mutex
	events    map[string]*domain.ShipmentEvent
	appendErr error
	markErr   error
}

func newFakeEventRepository() *fakeEventRepository {
	return &fakeEventRepository{events: make(map[string]*domain.ShipmentEvent)}
}

func (f *fakeEventRepository) Append(ctx context.Context, event *domain.ShipmentEvent) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *event
	f.events[event.ID.Hex()] = &copied
	return nil
}

func (f *fakeEventRepository) FindByID(ctx context.Context, id string) (*domain.ShipmentEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.events[id]
	if !ok {
		return nil, nil
	}
	copied := *event
	return &copied, nil
}

func (f *fakeEventRepository) MarkProcessed(ctx context.Context, id string, result domain.ProcessingResult, at time.Time) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.events[id]
	if !ok {
		return domain.ErrEventNotFound
	}
	if event.Processed {
		return domain.ErrEventAlreadyProcessed
	}
	event.Processed = true
	event.ProcessingResult = &result
	event.ProcessedAt = &at
	return nil
}

func (f *fakeEventRepository) ResetProcessed(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.events[id]
	if !ok {
		return domain.ErrEventNotFound
	}
	event.ResetProcessed()
	return nil
}

func (f *fakeEventRepository) SetMerchantName(ctx context.Context, id string, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.events[id]
	if !ok {
		return domain.ErrEventNotFound
	}
	event.MerchantName = name
	return nil
}

func (f *fakeEventRepository) List(ctx context.Context, filter domain.EventFilter, pagination domain.Pagination) ([]*domain.ShipmentEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.ShipmentEvent
	for _, event := range f.events {
		copied := *event
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeEventRepository) Count(ctx context.Context, filter domain.EventFilter) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.events)), nil
}

// fakeDedupStore mirrors the Mongo store's window semantics in memory
type fakeDedupStore struct {
	mu      sync.Mutex
	records map[string]struct {
		acceptedAt time.Time
		eventID    string
	}
	err error
}

func newFakeDedupStore() *fakeDedupStore {
	return &fakeDedupStore{records: make(map[string]struct {
		acceptedAt time.Time
		eventID    string
	})}
}

func (f *fakeDedupStore) TryAccept(ctx context.Context, shipmentID string, kind domain.EventKind, eventID string, now time.Time, window time.Duration) (bool, string, error) {
	if f.err != nil {
		return false, "", f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	key := shipmentID + "|" + string(kind)
	existing, ok := f.records[key]
	if ok && existing.acceptedAt.After(now.Add(-window)) {
		return false, existing.eventID, nil
	}
	f.records[key] = struct {
		acceptedAt time.Time
		eventID    string
	}{now, eventID}
	return true, "", nil
}

func (f *fakeDedupStore) Release(ctx context.Context, shipmentID string, kind domain.EventKind, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := shipmentID + "|" + string(kind)
	if existing, ok := f.records[key]; ok && existing.eventID == eventID {
		delete(f.records, key)
	}
	return nil
}

// fakePrepClient is a func-field fake of the remote prep service
type fakePrepClient struct {
	getOutboundItemsFunc      func(ctx context.Context, shipmentID, merchantID string) ([]domain.OutboundItem, error)
	getInboundShipmentsFunc   func(ctx context.Context, merchantID, status string) ([]prepapi.InboundShipmentSummary, error)
	getInboundItemsFunc       func(ctx context.Context, shipmentID, merchantID string) ([]domain.InboundItem, error)
	createInboundShipmentFunc func(ctx context.Context, request prepapi.CreateInboundShipmentRequest) (string, error)
	getMerchantsFunc          func(ctx context.Context) ([]prepapi.Merchant, error)
}

func (f *fakePrepClient) GetOutboundItems(ctx context.Context, shipmentID, merchantID string) ([]domain.OutboundItem, error) {
	if f.getOutboundItemsFunc != nil {
		return f.getOutboundItemsFunc(ctx, shipmentID, merchantID)
	}
	return nil, nil
}

func (f *fakePrepClient) GetInboundShipments(ctx context.Context, merchantID, status string) ([]prepapi.InboundShipmentSummary, error) {
	if f.getInboundShipmentsFunc != nil {
		return f.getInboundShipmentsFunc(ctx, merchantID, status)
	}
	return nil, nil
}

func (f *fakePrepClient) GetInboundItems(ctx context.Context, shipmentID, merchantID string) ([]domain.InboundItem, error) {
	if f.getInboundItemsFunc != nil {
		return f.getInboundItemsFunc(ctx, shipmentID, merchantID)
	}
	return nil, nil
}

func (f *fakePrepClient) CreateInboundShipment(ctx context.Context, request prepapi.CreateInboundShipmentRequest) (string, error) {
	if f.createInboundShipmentFunc != nil {
		return f.createInboundShipmentFunc(ctx, request)
	}
	return "", nil
}

func (f *fakePrepClient) GetMerchants(ctx context.Context) ([]prepapi.Merchant, error) {
	if f.getMerchantsFunc != nil {
		return f.getMerchantsFunc(ctx)
	}
	return nil, nil
}

// fakeNotifier records enqueued events. When merchantName is set it backfills
// the event's audit field the way the notify gateway does.
type fakeNotifier struct {
	mu           sync.Mutex
	enqueued     []*domain.ShipmentEvent
	merchantName string
	err          error
}

func (f *fakeNotifier) Enqueue(ctx context.Context, event *domain.ShipmentEvent) error {
	if f.err != nil {
		return f.err
	}
	if f.merchantName != "" && event.MerchantName == "" {
		event.MerchantName = f.merchantName
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueued = append(f.enqueued, event)
	return nil
}

func (f *fakeNotifier) enqueuedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.enqueued)
}

// fakeOutboxRepository records saved outbox events
type fakeOutboxRepository struct {
	mu    sync.Mutex
	saved []*outbox.OutboxEvent
}

func (f *fakeOutboxRepository) Save(ctx context.Context, event *outbox.OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, event)
	return nil
}

func (f *fakeOutboxRepository) FindUnpublished(ctx context.Context, limit int) ([]*outbox.OutboxEvent, error) {
	return nil, nil
}

func (f *fakeOutboxRepository) MarkPublished(ctx context.Context, eventID string) error {
	return nil
}

func (f *fakeOutboxRepository) IncrementRetry(ctx context.Context, eventID string, errorMsg string) error {
	return nil
}

func (f *fakeOutboxRepository) DeletePublished(ctx context.Context, olderThanSeconds int64) error {
	return nil
}

func (f *fakeOutboxRepository) savedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

// fakeSearchResultRepository is an in-memory domain.SearchResultRepository
type fakeSearchResultRepository struct {
	mu      sync.Mutex
	items   []*domain.SearchResultItem
	saveErr error
}

func (f *fakeSearchResultRepository) Save(ctx context.Context, item *domain.SearchResultItem) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, item)
	return nil
}

func (f *fakeSearchResultRepository) FindBySearchID(ctx context.Context, searchID string) ([]*domain.SearchResultItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.SearchResultItem
	for _, item := range f.items {
		if item.SearchID == searchID {
			out = append(out, item)
		}
	}
	return out, nil
}

// fakeJobFlagStore is an in-memory domain.JobFlagStore
type fakeJobFlagStore struct {
	mu    sync.Mutex
	flags map[string]bool
}

func newFakeJobFlagStore() *fakeJobFlagStore {
	return &fakeJobFlagStore{flags: make(map[string]bool)}
}

func (f *fakeJobFlagStore) SetDone(ctx context.Context, key string) error {
	// The real store refuses writes on an expired context.
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flags[key] = true
	return nil
}

func (f *fakeJobFlagStore) IsDone(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flags[key], nil
}
