package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/centauromax/prep-center-sub000/internal/domain"
	"github.com/centauromax/prep-center-sub000/pkg/logging"
	"github.com/centauromax/prep-center-sub000/pkg/metrics"
)

// Worker drains the notification queue through a Provider. Each notification
// gets up to domain.MaxNotificationAttempts deliveries; exhausted ones are
// parked as failed by the repository.
type Worker struct {
	repo     domain.NotificationRepository
	provider Provider
	logger   *logging.Logger
	metrics  *metrics.Metrics

	workers   int
	interval  time.Duration
	batchSize int

	mu        sync.Mutex
	running   bool
	stopCh    chan struct{}
	stoppedCh chan struct{}
	wg        sync.WaitGroup
}

// WorkerConfig holds configuration for the delivery worker pool
type WorkerConfig struct {
	Workers      int
	PollInterval time.Duration
	BatchSize    int
}

// DefaultWorkerConfig returns default configuration
func DefaultWorkerConfig() *WorkerConfig {
	return &WorkerConfig{
		Workers:      2,
		PollInterval: 2 * time.Second,
		BatchSize:    50,
	}
}

func NewWorker(
	repo domain.NotificationRepository,
	provider Provider,
	logger *logging.Logger,
	m *metrics.Metrics,
	config *WorkerConfig,
) *Worker {
	if config == nil {
		config = DefaultWorkerConfig()
	}
	if config.Workers <= 0 {
		config.Workers = DefaultWorkerConfig().Workers
	}
	return &Worker{
		repo:      repo,
		provider:  provider,
		logger:    logger.WithComponent("notify-worker"),
		metrics:   m,
		workers:   config.Workers,
		interval:  config.PollInterval,
		batchSize: config.BatchSize,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Start launches the poll loop and the delivery workers
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("notification worker already running")
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("Starting notification worker",
		"workers", w.workers,
		"interval", w.interval,
	)

	jobs := make(chan *domain.Notification, w.batchSize)

	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.deliverLoop(ctx, jobs)
	}

	go w.pollLoop(ctx, jobs)
	return nil
}

// Stop drains the workers and blocks until they exit
func (w *Worker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return fmt.Errorf("notification worker not running")
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.stoppedCh
	w.wg.Wait()

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("Notification worker stopped")
	return nil
}

func (w *Worker) pollLoop(ctx context.Context, jobs chan<- *domain.Notification) {
	defer close(w.stoppedCh)
	defer close(jobs)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.dispatchPending(ctx, jobs)
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *Worker) dispatchPending(ctx context.Context, jobs chan<- *domain.Notification) {
	pending, err := w.repo.FindPending(ctx, w.batchSize)
	if err != nil {
		w.logger.WithError(err).Error("Failed to load pending notifications")
		return
	}

	for _, notification := range pending {
		select {
		case jobs <- notification:
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *Worker) deliverLoop(ctx context.Context, jobs <-chan *domain.Notification) {
	defer w.wg.Done()
	for notification := range jobs {
		w.deliver(ctx, notification)
	}
}

func (w *Worker) deliver(ctx context.Context, notification *domain.Notification) {
	messageID, err := w.provider.Send(ctx, notification.ChatID, notification.Message)
	if err != nil {
		w.logger.WithError(err).Warn("Notification delivery failed",
			"notificationId", notification.ID.Hex(),
			"attempt", notification.Attempts+1,
		)
		if w.metrics != nil {
			w.metrics.RecordNotification("failed_attempt")
		}
		if err := w.repo.MarkAttemptFailed(ctx, notification.ID.Hex(), err.Error()); err != nil {
			w.logger.WithError(err).Error("Failed to record delivery failure",
				"notificationId", notification.ID.Hex(),
			)
		}
		return
	}

	if err := w.repo.MarkSent(ctx, notification.ID.Hex(), messageID, time.Now()); err != nil {
		w.logger.WithError(err).Error("Failed to mark notification sent",
			"notificationId", notification.ID.Hex(),
		)
		return
	}
	if w.metrics != nil {
		w.metrics.RecordNotification("sent")
	}
}
