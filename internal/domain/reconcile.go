package domain

// ResidualShipmentSuffix is appended to the source shipment name when the
// reconciliation engine creates a follow-up inbound shipment.
const ResidualShipmentSuffix = " - RESIDUAL"

// InboundItem is one received line of an inbound shipment
type InboundItem struct {
	SKU              string `json:"sku"`
	Title            string `json:"title,omitempty"`
	ASIN             string `json:"asin,omitempty"`
	FNSKU            string `json:"fnsku,omitempty"`
	QuantityReceived int    `json:"quantityReceived"`
}

// OutboundItem is one shipped line of an outbound shipment
type OutboundItem struct {
	SKU             string `json:"sku"`
	QuantityShipped int    `json:"quantityShipped"`
}

// ResidualItem is inventory received inbound but never shipped out
type ResidualItem struct {
	SKU      string `json:"sku"`
	Title    string `json:"title,omitempty"`
	ASIN     string `json:"asin,omitempty"`
	FNSKU    string `json:"fnsku,omitempty"`
	Quantity int    `json:"quantity"`
}

// ComputeResidual diffs an inbound shipment's received quantities against the
// outbound quantities that consumed it. Per SKU the residual is
// received - shipped, clamped at zero; upstream miscounts can ship more than
// was received and must never produce a negative line. SKUs that only appear
// on the outbound side are ignored. Output order follows the inbound item
// order, so results are deterministic for a given input.
func ComputeResidual(received []InboundItem, shipped []OutboundItem) []ResidualItem {
	shippedBySKU := make(map[string]int, len(shipped))
	for _, item := range shipped {
		shippedBySKU[item.SKU] += item.QuantityShipped
	}

	// Duplicate inbound lines for the same SKU are merged onto the first
	// occurrence, keeping its display metadata.
	residuals := make([]ResidualItem, 0, len(received))
	index := make(map[string]int, len(received))
	for _, item := range received {
		if pos, seen := index[item.SKU]; seen {
			residuals[pos].Quantity += item.QuantityReceived
			continue
		}
		index[item.SKU] = len(residuals)
		residuals = append(residuals, ResidualItem{
			SKU:      item.SKU,
			Title:    item.Title,
			ASIN:     item.ASIN,
			FNSKU:    item.FNSKU,
			Quantity: item.QuantityReceived,
		})
	}

	result := make([]ResidualItem, 0, len(residuals))
	for _, item := range residuals {
		item.Quantity -= shippedBySKU[item.SKU]
		if item.Quantity > 0 {
			result = append(result, item)
		}
	}
	return result
}

// ResidualShipmentName builds the name of the follow-up inbound shipment
func ResidualShipmentName(sourceName string) string {
	return sourceName + ResidualShipmentSuffix
}
