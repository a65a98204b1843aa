package notify

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/centauromax/prep-center-sub000/internal/domain"
	"github.com/centauromax/prep-center-sub000/internal/infrastructure/prepapi"
	"github.com/centauromax/prep-center-sub000/pkg/logging"
	"github.com/centauromax/prep-center-sub000/pkg/metrics"
)

// MerchantDirectory resolves notification recipients
type MerchantDirectory interface {
	GetMerchants(ctx context.Context) ([]prepapi.Merchant, error)
}

// Gateway turns processed events into queued, localized notifications.
// Recipient resolution failures skip the notification; they never fail the
// event that triggered it.
type Gateway struct {
	directory MerchantDirectory
	repo      domain.NotificationRepository
	logger    *logging.Logger
	metrics   *metrics.Metrics
	clock     clockwork.Clock
}

func NewGateway(
	directory MerchantDirectory,
	repo domain.NotificationRepository,
	logger *logging.Logger,
	m *metrics.Metrics,
	clock clockwork.Clock,
) *Gateway {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Gateway{
		directory: directory,
		repo:      repo,
		logger:    logger.WithComponent("notify"),
		metrics:   m,
		clock:     clock,
	}
}

// Enqueue inserts a pending notification for the event's merchant
func (g *Gateway) Enqueue(ctx context.Context, event *domain.ShipmentEvent) error {
	merchant, err := g.resolveMerchant(ctx, event.MerchantID)
	if err != nil {
		return fmt.Errorf("resolve merchant %s: %w", event.MerchantID, err)
	}
	if merchant != nil && event.MerchantName == "" {
		// Backfill the audit field; the caller persists the change.
		event.MerchantName = merchant.Name
	}
	if merchant == nil || merchant.ChatID == "" {
		g.logger.Info("No notification contact for merchant; skipping",
			"merchantId", event.MerchantID,
			"eventKind", event.EventKind,
		)
		return nil
	}

	locale := normalizeLocale(merchant.Locale)
	message, ok := RenderMessage(event.EventKind, locale, event.ShipmentName)
	if !ok {
		return nil
	}

	notification := &domain.Notification{
		ChatID:       merchant.ChatID,
		Locale:       locale,
		EventKind:    event.EventKind,
		ShipmentID:   event.ExternalShipmentID,
		ShipmentName: event.ShipmentName,
		MerchantID:   merchant.ID,
		MerchantName: merchant.Name,
		Message:      message,
		Status:       domain.NotificationStatusPending,
		CreatedAt:    g.clock.Now(),
	}

	if err := g.repo.Save(ctx, notification); err != nil {
		return fmt.Errorf("queue notification: %w", err)
	}

	if g.metrics != nil {
		g.metrics.RecordNotification("queued")
	}
	g.logger.Debug("Notification queued",
		"merchantId", merchant.ID,
		"eventKind", event.EventKind,
		"locale", locale,
	)
	return nil
}

func (g *Gateway) resolveMerchant(ctx context.Context, merchantID string) (*prepapi.Merchant, error) {
	if merchantID == "" {
		return nil, nil
	}
	merchants, err := g.directory.GetMerchants(ctx)
	if err != nil {
		return nil, err
	}
	for i := range merchants {
		if merchants[i].ID == merchantID {
			return &merchants[i], nil
		}
	}
	return nil, nil
}
