package dto

// StartSearchRequest launches a background product search across a
// merchant's inbound shipments.
type StartSearchRequest struct {
	MerchantID string   `json:"merchantId" binding:"required"`
	Keywords   []string `json:"keywords" binding:"required,min=1,dive,min=1"`
}

// ListEventsRequest filters the event log listing
type ListEventsRequest struct {
	ShipmentID string `form:"shipmentId"`
	Kind       string `form:"kind"`
	Processed  *bool  `form:"processed"`
	Limit      int64  `form:"limit"`
	Offset     int64  `form:"offset"`
}
