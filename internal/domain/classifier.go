package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Upstream shipment status strings
const (
	StatusOpen     = "open"
	StatusReceived = "received"
	StatusShipped  = "shipped"
	StatusClosed   = "closed"
)

// Name tokens that mark a shipment as synthetic follow-up inventory created
// by the reconciliation engine. Such shipments must never be routed back into
// the reconciliation path.
const (
	ResidualToken = "RESIDUAL"
	PartialToken  = "PARTIAL"
)

// WebhookPayload is the lenient decoding of an upstream shipment webhook.
// The upstream schema is loose: most fields are optional, timestamps arrive
// as strings, and there is no event-type field at all.
type WebhookPayload struct {
	ID              int64           `json:"id"`
	TeamID          int64           `json:"team_id"`
	WarehouseID     int64           `json:"warehouse_id"`
	Name            string          `json:"name"`
	Notes           string          `json:"notes"`
	Status          string          `json:"status"`
	PreviousStatus  string          `json:"previous_status"`
	ShippedAt       *string         `json:"shipped_at"`
	ReceivedAt      *string         `json:"received_at"`
	OutboundItems   json.RawMessage `json:"outbound_items"`
	Items           json.RawMessage `json:"items"`
	ShipFromAddress json.RawMessage `json:"ship_from_address"`
	CaseForwarding  json.RawMessage `json:"case_forwarding"`

	raw []byte
}

// ParseWebhookPayload decodes a webhook body. Both the enveloped form
// {"data": {...}} and the flat shipment object are accepted.
func ParseWebhookPayload(body []byte) (*WebhookPayload, error) {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	shipment := body
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	if len(envelope.Data) > 0 && !isJSONNull(envelope.Data) {
		shipment = envelope.Data
	}

	var payload WebhookPayload
	if err := json.Unmarshal(shipment, &payload); err != nil {
		return nil, err
	}
	payload.raw = shipment
	return &payload, nil
}

// Raw returns the shipment object exactly as delivered
func (p *WebhookPayload) Raw() []byte {
	return p.raw
}

// ShipmentID returns the upstream shipment identifier as a string
func (p *WebhookPayload) ShipmentID() string {
	if p.ID == 0 {
		return ""
	}
	return strconv.FormatInt(p.ID, 10)
}

// MerchantID returns the upstream merchant (team) identifier as a string
func (p *WebhookPayload) MerchantID() string {
	if p.TeamID == 0 {
		return ""
	}
	return strconv.FormatInt(p.TeamID, 10)
}

// HasShippedAt reports whether the payload carries a non-null shipped_at
func (p *WebhookPayload) HasShippedAt() bool {
	return p.ShippedAt != nil && *p.ShippedAt != ""
}

// IsResidual reports whether the shipment name or notes carry the RESIDUAL
// or PARTIAL token, case-insensitively.
func (p *WebhookPayload) IsResidual() bool {
	text := strings.ToUpper(p.Name + " " + p.Notes)
	return strings.Contains(text, ResidualToken) || strings.Contains(text, PartialToken)
}

// Classify derives the event kind and entity kind from a shipment payload.
// It is deterministic and total: unrecognized shapes fall back to an
// "updated" kind, and a payload without a shipment id classifies as other.
func Classify(p *WebhookPayload) (EventKind, EntityKind) {
	if p == nil || p.ShipmentID() == "" {
		return EventKindOther, EntityKindInboundShipment
	}

	// Synthetic residual shipments are forced inbound no matter what
	// outbound-looking fields the payload carries.
	if p.IsResidual() {
		return classifyInbound(p), EntityKindInboundShipment
	}

	if looksOutbound(p) {
		return classifyOutbound(p), EntityKindOutboundShipment
	}
	return classifyInbound(p), EntityKindInboundShipment
}

// looksOutbound applies the outbound heuristics. Any single signal flags the
// shipment as outbound.
func looksOutbound(p *WebhookPayload) bool {
	if isJSONPresent(p.OutboundItems) {
		return true
	}
	if strings.Contains(strings.ToLower(string(p.raw)), "outbound") {
		return true
	}
	if strings.EqualFold(p.Status, StatusClosed) && p.HasShippedAt() {
		return true
	}
	if isJSONPresent(p.ShipFromAddress) || isJSONPresent(p.CaseForwarding) {
		return true
	}
	return false
}

func classifyInbound(p *WebhookPayload) EventKind {
	switch {
	case strings.EqualFold(p.Status, StatusOpen):
		return EventKindInboundCreated
	case strings.EqualFold(p.Status, StatusReceived):
		return EventKindInboundReceived
	case p.HasShippedAt():
		return EventKindInboundShipped
	default:
		return EventKindInboundUpdated
	}
}

func classifyOutbound(p *WebhookPayload) EventKind {
	switch {
	case strings.EqualFold(p.Status, StatusOpen):
		return EventKindOutboundCreated
	case strings.EqualFold(p.Status, StatusClosed) && p.HasShippedAt():
		return EventKindOutboundClosed
	case p.HasShippedAt():
		return EventKindOutboundShipped
	default:
		return EventKindOutboundUpdated
	}
}

func isJSONPresent(raw json.RawMessage) bool {
	return len(raw) > 0 && !isJSONNull(raw)
}

func isJSONNull(raw json.RawMessage) bool {
	return string(raw) == "null"
}
