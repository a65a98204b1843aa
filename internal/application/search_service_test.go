package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centauromax/prep-center-sub000/internal/domain"
	"github.com/centauromax/prep-center-sub000/internal/infrastructure/prepapi"
)

func waitForDone(t *testing.T, service *SearchService, searchID string) *SearchStatus {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		status, err := service.Poll(context.Background(), searchID)
		require.NoError(t, err)
		if status.Done {
			return status
		}
		select {
		case <-deadline:
			t.Fatal("search job did not finish in time")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSearchFindsMatchingItems(t *testing.T) {
	client := &fakePrepClient{
		getInboundShipmentsFunc: func(ctx context.Context, merchantID, status string) ([]prepapi.InboundShipmentSummary, error) {
			return []prepapi.InboundShipmentSummary{
				{ID: "1", Name: "Spring restock"},
				{ID: "2", Name: "Summer restock"},
			}, nil
		},
		getInboundItemsFunc: func(ctx context.Context, shipmentID, merchantID string) ([]domain.InboundItem, error) {
			if shipmentID == "1" {
				return []domain.InboundItem{
					{SKU: "WID-1", Title: "Blue Widget", QuantityReceived: 5},
					{SKU: "GAD-1", Title: "Red Gadget", QuantityReceived: 2},
				}, nil
			}
			return []domain.InboundItem{
				{SKU: "WID-2", Title: "Green Widget", QuantityReceived: 7},
			}, nil
		},
	}

	results := &fakeSearchResultRepository{}
	service := NewSearchService(client, results, newFakeJobFlagStore(), testLogger(), nil, 2)

	searchID := service.StartSearch(context.Background(), "7", []string{"widget"})
	status := waitForDone(t, service, searchID)

	require.Len(t, status.Results, 2)
	skus := []string{status.Results[0].SKU, status.Results[1].SKU}
	assert.ElementsMatch(t, []string{"WID-1", "WID-2"}, skus)
}

func TestSearchSetsDoneFlagOnFailure(t *testing.T) {
	client := &fakePrepClient{
		getInboundShipmentsFunc: func(ctx context.Context, merchantID, status string) ([]prepapi.InboundShipmentSummary, error) {
			return nil, assert.AnError
		},
	}

	service := NewSearchService(client, &fakeSearchResultRepository{}, newFakeJobFlagStore(), testLogger(), nil, 2)

	searchID := service.StartSearch(context.Background(), "7", []string{"widget"})
	status := waitForDone(t, service, searchID)

	assert.True(t, status.Done)
	assert.Empty(t, status.Results)
}

func TestSearchSkipsUnreadableShipments(t *testing.T) {
	client := &fakePrepClient{
		getInboundShipmentsFunc: func(ctx context.Context, merchantID, status string) ([]prepapi.InboundShipmentSummary, error) {
			return []prepapi.InboundShipmentSummary{
				{ID: "bad", Name: "Broken"},
				{ID: "good", Name: "Fine"},
			}, nil
		},
		getInboundItemsFunc: func(ctx context.Context, shipmentID, merchantID string) ([]domain.InboundItem, error) {
			if shipmentID == "bad" {
				return nil, assert.AnError
			}
			return []domain.InboundItem{{SKU: "WID-1", Title: "Widget", QuantityReceived: 1}}, nil
		},
	}

	service := NewSearchService(client, &fakeSearchResultRepository{}, newFakeJobFlagStore(), testLogger(), nil, 2)

	searchID := service.StartSearch(context.Background(), "7", []string{"widget"})
	status := waitForDone(t, service, searchID)

	require.Len(t, status.Results, 1)
	assert.Equal(t, "good", status.Results[0].ShipmentID)
}

func TestSearchSetsDoneFlagAfterJobTimeout(t *testing.T) {
	client := &fakePrepClient{
		getInboundShipmentsFunc: func(ctx context.Context, merchantID, status string) ([]prepapi.InboundShipmentSummary, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}

	service := NewSearchService(client, &fakeSearchResultRepository{}, newFakeJobFlagStore(), testLogger(), nil, 2)
	service.timeout = 10 * time.Millisecond

	searchID := service.StartSearch(context.Background(), "7", []string{"widget"})
	status := waitForDone(t, service, searchID)

	assert.True(t, status.Done)
	assert.Empty(t, status.Results)
}

func TestPollUnknownSearchIsRunning(t *testing.T) {
	service := NewSearchService(&fakePrepClient{}, &fakeSearchResultRepository{}, newFakeJobFlagStore(), testLogger(), nil, 2)

	status, err := service.Poll(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, status.Done)
	assert.Empty(t, status.Results)
}
