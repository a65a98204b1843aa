package prepapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/centauromax/prep-center-sub000/internal/domain"
	"github.com/centauromax/prep-center-sub000/pkg/logging"
	"github.com/centauromax/prep-center-sub000/pkg/resilience"
)

// Config holds the prep service connection settings
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Timeout: 15 * time.Second,
	}
}

// Client is a typed HTTP client for the remote prep (shipment) service.
// All calls go through a circuit breaker so a dead upstream fails fast
// instead of piling up webhook handler goroutines.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	logger     *logging.Logger
}

// NewClient creates a prep service client
func NewClient(config *Config, logger *logging.Logger) *Client {
	if config.Timeout == 0 {
		config.Timeout = DefaultConfig().Timeout
	}

	breaker := resilience.NewCircuitBreaker(
		resilience.DefaultCircuitBreakerConfig("prep-service"),
		logger.Logger,
	)

	return &Client{
		baseURL:    config.BaseURL,
		apiKey:     config.APIKey,
		httpClient: &http.Client{Timeout: config.Timeout},
		breaker:    breaker,
		logger:     logger.WithComponent("prepapi"),
	}
}

// GetOutboundItems fetches the shipped item lines of an outbound shipment
func (c *Client) GetOutboundItems(ctx context.Context, shipmentID, merchantID string) ([]domain.OutboundItem, error) {
	var response outboundItemsResponse
	path := fmt.Sprintf("/api/shipments/outbound/%s/items", url.PathEscape(shipmentID))
	if err := c.doJSON(ctx, http.MethodGet, path, merchantQuery(merchantID), nil, &response); err != nil {
		return nil, fmt.Errorf("get outbound items for shipment %s: %w", shipmentID, err)
	}

	items := make([]domain.OutboundItem, 0, len(response.Items))
	for _, item := range response.Items {
		items = append(items, domain.OutboundItem{
			SKU:             item.SKU,
			QuantityShipped: item.Quantity,
		})
	}
	return items, nil
}

// GetInboundShipments lists a merchant's inbound shipments, optionally
// filtered by status.
func (c *Client) GetInboundShipments(ctx context.Context, merchantID, status string) ([]InboundShipmentSummary, error) {
	query := merchantQuery(merchantID)
	if status != "" {
		query.Set("status", status)
	}

	var response inboundShipmentsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/shipments/inbound", query, nil, &response); err != nil {
		return nil, fmt.Errorf("list inbound shipments for merchant %s: %w", merchantID, err)
	}
	return response.Shipments, nil
}

// GetInboundItems fetches the received item lines of an inbound shipment
func (c *Client) GetInboundItems(ctx context.Context, shipmentID, merchantID string) ([]domain.InboundItem, error) {
	var response inboundItemsResponse
	path := fmt.Sprintf("/api/shipments/inbound/%s/items", url.PathEscape(shipmentID))
	if err := c.doJSON(ctx, http.MethodGet, path, merchantQuery(merchantID), nil, &response); err != nil {
		return nil, fmt.Errorf("get inbound items for shipment %s: %w", shipmentID, err)
	}

	items := make([]domain.InboundItem, 0, len(response.Items))
	for _, item := range response.Items {
		items = append(items, domain.InboundItem{
			SKU:              item.SKU,
			Title:            item.Title,
			ASIN:             item.ASIN,
			FNSKU:            item.FNSKU,
			QuantityReceived: item.QuantityReceived,
		})
	}
	return items, nil
}

// CreateInboundShipment opens a new inbound shipment and returns its id
func (c *Client) CreateInboundShipment(ctx context.Context, request CreateInboundShipmentRequest) (string, error) {
	var response createShipmentResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/shipments/inbound", nil, request, &response); err != nil {
		return "", fmt.Errorf("create inbound shipment %q: %w", request.Name, err)
	}
	return response.Shipment.ID, nil
}

// GetMerchants lists all merchants with their notification contact data
func (c *Client) GetMerchants(ctx context.Context) ([]Merchant, error) {
	var response merchantsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/merchants", nil, nil, &response); err != nil {
		return nil, fmt.Errorf("list merchants: %w", err)
	}
	return response.Merchants, nil
}

func merchantQuery(merchantID string) url.Values {
	query := url.Values{}
	if merchantID != "" {
		query.Set("merchant", merchantID)
	}
	return query
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	_, err := c.breaker.Execute(ctx, func() (interface{}, error) {
		return nil, c.doOnce(ctx, method, path, query, body, out)
	})
	return err
}

func (c *Client) doOnce(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	request.Header.Set("Authorization", "Bearer "+c.apiKey)
	request.Header.Set("Accept", "application/json")
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("call prep service: %w", err)
	}
	defer response.Body.Close()

	c.logger.Debug("Prep service call",
		"method", method,
		"path", path,
		"status", response.StatusCode,
		"durationMs", time.Since(start).Milliseconds(),
	)

	switch {
	case response.StatusCode == http.StatusUnauthorized || response.StatusCode == http.StatusForbidden:
		return ErrAuthentication
	case response.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case response.StatusCode >= 400:
		// Bodies of failed calls are small; keep a slice for diagnostics.
		detail, _ := io.ReadAll(io.LimitReader(response.Body, 512))
		return fmt.Errorf("prep service returned %d: %s", response.StatusCode, string(detail))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(response.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
