package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeResidual(t *testing.T) {
	received := []InboundItem{
		{SKU: "P1", Title: "Product 1", QuantityReceived: 10},
		{SKU: "P2", Title: "Product 2", QuantityReceived: 5},
		{SKU: "P3", Title: "Product 3", QuantityReceived: 3},
		{SKU: "P4", Title: "Product 4", QuantityReceived: 0},
		{SKU: "P5", Title: "Product 5", QuantityReceived: 4},
		{SKU: "P6", Title: "Product 6", QuantityReceived: 21},
	}
	shipped := []OutboundItem{
		{SKU: "P1", QuantityShipped: 5},
		{SKU: "P2", QuantityShipped: 5},
		{SKU: "P3", QuantityShipped: 2},
		{SKU: "P4", QuantityShipped: 0},
		{SKU: "P5", QuantityShipped: 4},
		{SKU: "P6", QuantityShipped: 15},
	}

	residual := ComputeResidual(received, shipped)

	assert.Equal(t, []ResidualItem{
		{SKU: "P1", Title: "Product 1", Quantity: 5},
		{SKU: "P3", Title: "Product 3", Quantity: 1},
		{SKU: "P6", Title: "Product 6", Quantity: 6},
	}, residual)
}

func TestComputeResidualClampsNegative(t *testing.T) {
	// Shipping more than was received happens when the upstream count was
	// wrong; it must never produce a negative residual line.
	received := []InboundItem{
		{SKU: "A", QuantityReceived: 3},
		{SKU: "B", QuantityReceived: 8},
	}
	shipped := []OutboundItem{
		{SKU: "A", QuantityShipped: 7},
		{SKU: "B", QuantityShipped: 2},
	}

	residual := ComputeResidual(received, shipped)

	assert.Equal(t, []ResidualItem{{SKU: "B", Quantity: 6}}, residual)
}

func TestComputeResidualIgnoresOutboundOnlySKUs(t *testing.T) {
	received := []InboundItem{{SKU: "A", QuantityReceived: 2}}
	shipped := []OutboundItem{
		{SKU: "A", QuantityShipped: 1},
		{SKU: "Z", QuantityShipped: 99},
	}

	residual := ComputeResidual(received, shipped)

	assert.Equal(t, []ResidualItem{{SKU: "A", Quantity: 1}}, residual)
}

func TestComputeResidualEmptyOutcomes(t *testing.T) {
	assert.Empty(t, ComputeResidual(nil, nil))
	assert.Empty(t, ComputeResidual(nil, []OutboundItem{{SKU: "A", QuantityShipped: 1}}))

	// Fully consumed inbound yields an empty, non-error residual set.
	residual := ComputeResidual(
		[]InboundItem{{SKU: "A", QuantityReceived: 2}},
		[]OutboundItem{{SKU: "A", QuantityShipped: 2}},
	)
	assert.Empty(t, residual)
}

func TestComputeResidualMergesDuplicateLines(t *testing.T) {
	received := []InboundItem{
		{SKU: "A", Title: "First", QuantityReceived: 2},
		{SKU: "A", Title: "Second", QuantityReceived: 3},
	}
	shipped := []OutboundItem{
		{SKU: "A", QuantityShipped: 1},
		{SKU: "A", QuantityShipped: 1},
	}

	residual := ComputeResidual(received, shipped)

	assert.Equal(t, []ResidualItem{{SKU: "A", Title: "First", Quantity: 3}}, residual)
}

func TestResidualShipmentName(t *testing.T) {
	assert.Equal(t, "Spring restock - RESIDUAL", ResidualShipmentName("Spring restock"))
}

func TestComputeResidualKeepsItemMetadata(t *testing.T) {
	received := []InboundItem{
		{SKU: "A", Title: "Widget", ASIN: "B00TEST001", FNSKU: "X001ABC", QuantityReceived: 4},
	}
	shipped := []OutboundItem{{SKU: "A", QuantityShipped: 1}}

	residual := ComputeResidual(received, shipped)

	assert.Len(t, residual, 1)
	assert.Equal(t, "Widget", residual[0].Title)
	assert.Equal(t, "B00TEST001", residual[0].ASIN)
	assert.Equal(t, "X001ABC", residual[0].FNSKU)
}
