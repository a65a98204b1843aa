package prepapi

import "errors"

// Client errors. Authentication failures are kept distinct so callers can
// surface a rotated API key differently from a flaky upstream.
var (
	ErrAuthentication = errors.New("prep service authentication failed")
	ErrNotFound       = errors.New("prep service resource not found")
)

// Merchant is a team registered on the prep service
type Merchant struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Locale string `json:"locale,omitempty"`
	ChatID string `json:"chat_id,omitempty"`
}

// InboundShipmentSummary is a shipment header returned by the listing endpoint
type InboundShipmentSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	WarehouseID string `json:"warehouse_id"`
}

// NewShipmentItem is one requested line of a shipment to create
type NewShipmentItem struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

// CreateInboundShipmentRequest asks the prep service to open a new inbound shipment
type CreateInboundShipmentRequest struct {
	Name        string            `json:"name"`
	MerchantID  string            `json:"merchant_id"`
	WarehouseID string            `json:"warehouse_id"`
	Items       []NewShipmentItem `json:"items"`
}

// wire formats

type outboundItemDTO struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

type inboundItemDTO struct {
	SKU              string `json:"sku"`
	Title            string `json:"title"`
	ASIN             string `json:"asin"`
	FNSKU            string `json:"fnsku"`
	QuantityReceived int    `json:"quantity_received"`
}

type outboundItemsResponse struct {
	Items []outboundItemDTO `json:"items"`
}

type inboundItemsResponse struct {
	Items []inboundItemDTO `json:"items"`
}

type inboundShipmentsResponse struct {
	Shipments []InboundShipmentSummary `json:"shipments"`
}

type merchantsResponse struct {
	Merchants []Merchant `json:"merchants"`
}

type createShipmentResponse struct {
	Shipment InboundShipmentSummary `json:"shipment"`
}
