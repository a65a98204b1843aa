package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centauromax/prep-center-sub000/internal/domain"
)

type countingProvider struct {
	mu       sync.Mutex
	sends    int
	failures int
}

func (p *countingProvider) Send(ctx context.Context, chatID, message string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sends++
	if p.failures > 0 {
		p.failures--
		return "", assert.AnError
	}
	return "msg-1", nil
}

func (p *countingProvider) sendCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sends
}

func pendingNotification(chatID string) *domain.Notification {
	return &domain.Notification{
		ChatID:    chatID,
		Locale:    LocaleEN,
		EventKind: domain.EventKindInboundCreated,
		Message:   "Inbound shipment \"X\" has been created.",
		Status:    domain.NotificationStatusPending,
		CreatedAt: time.Now(),
	}
}

func startWorker(t *testing.T, repo *fakeNotificationRepo, provider Provider) *Worker {
	t.Helper()
	worker := NewWorker(repo, provider, testLogger(), nil, &WorkerConfig{
		Workers:      2,
		PollInterval: 5 * time.Millisecond,
		BatchSize:    10,
	})
	require.NoError(t, worker.Start(context.Background()))
	t.Cleanup(func() { worker.Stop() })
	return worker
}

func waitFor(t *testing.T, timeout time.Duration, condition func() bool) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		if condition() {
			return
		}
		select {
		case <-deadline:
			t.Fatal("condition not met in time")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestWorkerDeliversPendingNotification(t *testing.T) {
	repo := &fakeNotificationRepo{}
	require.NoError(t, repo.Save(context.Background(), pendingNotification("chat-1")))

	provider := &countingProvider{}
	startWorker(t, repo, provider)

	waitFor(t, 2*time.Second, func() bool {
		return repo.get(0).Status == domain.NotificationStatusSent
	})

	sent := repo.get(0)
	assert.Equal(t, "msg-1", sent.ProviderMessageID)
	assert.NotNil(t, sent.SentAt)
}

func TestWorkerRetriesThenSucceeds(t *testing.T) {
	repo := &fakeNotificationRepo{}
	require.NoError(t, repo.Save(context.Background(), pendingNotification("chat-1")))

	provider := &countingProvider{failures: 2}
	startWorker(t, repo, provider)

	waitFor(t, 2*time.Second, func() bool {
		return repo.get(0).Status == domain.NotificationStatusSent
	})

	assert.Equal(t, 2, repo.get(0).Attempts)
}

func TestWorkerParksExhaustedNotification(t *testing.T) {
	repo := &fakeNotificationRepo{}
	require.NoError(t, repo.Save(context.Background(), pendingNotification("chat-1")))

	provider := &countingProvider{failures: 100}
	startWorker(t, repo, provider)

	waitFor(t, 2*time.Second, func() bool {
		return repo.get(0).Status == domain.NotificationStatusFailed
	})

	failed := repo.get(0)
	assert.GreaterOrEqual(t, failed.Attempts, domain.MaxNotificationAttempts)
	assert.NotEmpty(t, failed.LastError)

	// Parked notifications must not be retried further. Let in-flight
	// deliveries drain before sampling the send count.
	time.Sleep(50 * time.Millisecond)
	sendsAtFailure := provider.sendCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, sendsAtFailure, provider.sendCount())
}

func TestWorkerStopIsIdempotentPerLifecycle(t *testing.T) {
	repo := &fakeNotificationRepo{}
	worker := NewWorker(repo, &countingProvider{}, testLogger(), nil, &WorkerConfig{
		Workers:      1,
		PollInterval: 5 * time.Millisecond,
		BatchSize:    10,
	})

	require.NoError(t, worker.Start(context.Background()))
	require.Error(t, worker.Start(context.Background()))
	require.NoError(t, worker.Stop())
	require.Error(t, worker.Stop())
}
