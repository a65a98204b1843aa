package dto

import (
	"time"

	"github.com/centauromax/prep-center-sub000/internal/application"
	"github.com/centauromax/prep-center-sub000/internal/domain"
)

// WebhookResponse acknowledges a webhook delivery. Duplicates report the
// suppressing record's id so the upstream can correlate redeliveries.
type WebhookResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	UpdateID  string `json:"updateId,omitempty"`
	EventKind string `json:"eventKind,omitempty"`
}

// ProcessingResultResponse is the stored handler outcome
type ProcessingResultResponse struct {
	Success           bool   `json:"success"`
	Message           string `json:"message"`
	DerivedShipmentID string `json:"derivedShipmentId,omitempty"`
}

// EventResponse represents one event-log record
type EventResponse struct {
	ID                 string                    `json:"id"`
	ExternalShipmentID string                    `json:"externalShipmentId"`
	EventKind          string                    `json:"eventKind"`
	EntityKind         string                    `json:"entityKind"`
	ShipmentName       string                    `json:"shipmentName,omitempty"`
	NewStatus          string                    `json:"newStatus,omitempty"`
	MerchantID         string                    `json:"merchantId,omitempty"`
	ReceivedAt         time.Time                 `json:"receivedAt"`
	Processed          bool                      `json:"processed"`
	ProcessingResult   *ProcessingResultResponse `json:"processingResult,omitempty"`
	ProcessedAt        *time.Time                `json:"processedAt,omitempty"`
}

// EventListResponse is a paged event-log listing
type EventListResponse struct {
	Events []EventResponse `json:"events"`
	Total  int64           `json:"total"`
	Limit  int64           `json:"limit"`
	Offset int64           `json:"offset"`
}

// SearchStartedResponse acknowledges a launched search job
type SearchStartedResponse struct {
	SearchID string `json:"searchId"`
}

// SearchResultResponse is one matched shipment line
type SearchResultResponse struct {
	ShipmentID   string `json:"shipmentId"`
	ShipmentName string `json:"shipmentName,omitempty"`
	SKU          string `json:"sku,omitempty"`
	ASIN         string `json:"asin,omitempty"`
	FNSKU        string `json:"fnsku,omitempty"`
	Title        string `json:"title,omitempty"`
	Quantity     int    `json:"quantity"`
}

// SearchStatusResponse is a poll snapshot of a search job
type SearchStatusResponse struct {
	SearchID string                 `json:"searchId"`
	Results  []SearchResultResponse `json:"results"`
	Count    int                    `json:"count"`
	Done     bool                   `json:"done"`
}

// FromEvent converts a domain event record to its API shape
func FromEvent(event *domain.ShipmentEvent) EventResponse {
	response := EventResponse{
		ID:                 event.ID.Hex(),
		ExternalShipmentID: event.ExternalShipmentID,
		EventKind:          string(event.EventKind),
		EntityKind:         string(event.EntityKind),
		ShipmentName:       event.ShipmentName,
		NewStatus:          event.NewStatus,
		MerchantID:         event.MerchantID,
		ReceivedAt:         event.ReceivedAt,
		Processed:          event.Processed,
		ProcessedAt:        event.ProcessedAt,
	}
	if event.ProcessingResult != nil {
		response.ProcessingResult = &ProcessingResultResponse{
			Success:           event.ProcessingResult.Success,
			Message:           event.ProcessingResult.Message,
			DerivedShipmentID: event.ProcessingResult.DerivedShipmentID,
		}
	}
	return response
}

// FromEvents converts a slice of event records
func FromEvents(events []*domain.ShipmentEvent) []EventResponse {
	out := make([]EventResponse, 0, len(events))
	for _, event := range events {
		out = append(out, FromEvent(event))
	}
	return out
}

// FromSearchStatus converts a poll snapshot to its API shape
func FromSearchStatus(status *application.SearchStatus) SearchStatusResponse {
	results := make([]SearchResultResponse, 0, len(status.Results))
	for _, item := range status.Results {
		results = append(results, SearchResultResponse{
			ShipmentID:   item.ShipmentID,
			ShipmentName: item.ShipmentName,
			SKU:          item.SKU,
			ASIN:         item.ASIN,
			FNSKU:        item.FNSKU,
			Title:        item.Title,
			Quantity:     item.Quantity,
		})
	}
	return SearchStatusResponse{
		SearchID: status.SearchID,
		Results:  results,
		Count:    len(results),
		Done:     status.Done,
	}
}
