package application

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/centauromax/prep-center-sub000/internal/domain"
	"github.com/centauromax/prep-center-sub000/pkg/logging"
	"github.com/centauromax/prep-center-sub000/pkg/metrics"
)

// SearchStatus is a poll snapshot of a background search job. done=false
// with zero results means the job is still running.
type SearchStatus struct {
	SearchID string                     `json:"searchId"`
	Results  []*domain.SearchResultItem `json:"results"`
	Done     bool                       `json:"done"`
}

// SearchService runs cross-shipment product searches in the background.
// Results stream into the result store while the job walks shipments, and a
// TTL'd done-flag signals completion; pollers see partial results early.
type SearchService struct {
	client    PrepClient
	results   domain.SearchResultRepository
	flags     domain.JobFlagStore
	logger    *logging.Logger
	metrics   *metrics.Metrics
	semaphore chan struct{}
	timeout   time.Duration
}

func NewSearchService(
	client PrepClient,
	results domain.SearchResultRepository,
	flags domain.JobFlagStore,
	logger *logging.Logger,
	m *metrics.Metrics,
	maxConcurrent int,
) *SearchService {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &SearchService{
		client:    client,
		results:   results,
		flags:     flags,
		logger:    logger.WithComponent("search"),
		metrics:   m,
		semaphore: make(chan struct{}, maxConcurrent),
		timeout:   5 * time.Minute,
	}
}

// StartSearch launches a background search and returns its id immediately
func (s *SearchService) StartSearch(ctx context.Context, merchantID string, keywords []string) string {
	searchID := uuid.New().String()

	go s.run(searchID, merchantID, keywords)

	s.logger.Info("Search job started",
		"searchId", searchID,
		"merchantId", merchantID,
		"keywords", keywords,
	)
	return searchID
}

// Poll returns the rows accumulated so far plus the done-flag
func (s *SearchService) Poll(ctx context.Context, searchID string) (*SearchStatus, error) {
	results, err := s.results.FindBySearchID(ctx, searchID)
	if err != nil {
		return nil, err
	}
	done, err := s.flags.IsDone(ctx, searchID)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []*domain.SearchResultItem{}
	}
	return &SearchStatus{
		SearchID: searchID,
		Results:  results,
		Done:     done,
	}, nil
}

// run walks the merchant's inbound shipments and records every item line
// matching all keywords. The job is detached from the request context.
func (s *SearchService) run(searchID, merchantID string, keywords []string) {
	s.semaphore <- struct{}{}
	defer func() { <-s.semaphore }()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	succeeded := false

	// The done-flag is set unconditionally: pollers must learn the job
	// ended even when it panicked or failed halfway.
	defer func() {
		if r := recover(); r != nil {
			s.logger.Panic(ctx, r)
		}
		// The job ctx may already be expired (timeout death is exactly when
		// the flag matters most), so the write gets its own context.
		flagCtx, flagCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer flagCancel()
		if err := s.flags.SetDone(flagCtx, searchID); err != nil {
			s.logger.WithError(err).Error("Failed to set search done flag", "searchId", searchID)
		}
		if s.metrics != nil {
			outcome := "failed"
			if succeeded {
				outcome = "completed"
			}
			s.metrics.RecordSearchJob(outcome)
		}
	}()

	shipments, err := s.client.GetInboundShipments(ctx, merchantID, "")
	if err != nil {
		s.logger.WithError(err).Error("Search job failed to list shipments", "searchId", searchID)
		return
	}

	matched := 0
	for _, shipment := range shipments {
		items, err := s.client.GetInboundItems(ctx, shipment.ID, merchantID)
		if err != nil {
			// Skip unreadable shipments rather than aborting the whole job.
			s.logger.WithError(err).Warn("Search job skipping shipment",
				"searchId", searchID,
				"shipmentId", shipment.ID,
			)
			continue
		}

		for _, item := range items {
			candidate := &domain.SearchResultItem{
				SearchID:     searchID,
				ShipmentID:   shipment.ID,
				ShipmentName: shipment.Name,
				SKU:          item.SKU,
				ASIN:         item.ASIN,
				FNSKU:        item.FNSKU,
				Title:        item.Title,
				Quantity:     item.QuantityReceived,
			}
			if !candidate.MatchesKeywords(keywords) {
				continue
			}
			if err := s.results.Save(ctx, candidate); err != nil {
				s.logger.WithError(err).Error("Failed to save search result", "searchId", searchID)
				return
			}
			matched++
		}
	}

	succeeded = true
	s.logger.Info("Search job finished",
		"searchId", searchID,
		"shipments", len(shipments),
		"matches", matched,
	)
}
