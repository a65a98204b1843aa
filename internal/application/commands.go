package application

import (
	"github.com/centauromax/prep-center-sub000/internal/domain"
)

// ListEventsQuery filters the event log
type ListEventsQuery struct {
	ShipmentID string `form:"shipmentId"`
	EventKind  string `form:"kind"`
	Processed  *bool  `form:"processed"`
	Limit      int64  `form:"limit"`
	Offset     int64  `form:"offset"`
}

// ToFilter converts the query into a domain filter and pagination pair
func (q ListEventsQuery) ToFilter() (domain.EventFilter, domain.Pagination) {
	filter := domain.EventFilter{}
	if q.ShipmentID != "" {
		filter.ExternalShipmentID = &q.ShipmentID
	}
	if q.EventKind != "" {
		kind := domain.EventKind(q.EventKind)
		filter.EventKind = &kind
	}
	filter.Processed = q.Processed

	pagination := domain.Pagination{Limit: q.Limit, Offset: q.Offset}.Normalize()
	return filter, pagination
}
