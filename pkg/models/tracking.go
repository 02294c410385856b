package models

import "encoding/json"

// TrackingQuery carries the identifying parameters of a tracking request.
// Not persisted.
type TrackingQuery struct {
	TrackingNumber string
	SearchOption   string
	CompanyID      int64  // explicit local company id, 0 when absent
	Brand          string // upper-cased at the HTTP edge, empty when absent
}

// ShipmentDocument is a downstream document enriched with display metadata.
type ShipmentDocument struct {
	Category      string `json:"category"`
	CategoryLabel string `json:"categoryLabel"`
	DisplayName   string `json:"displayName"`
	URL           string `json:"url"`
}

// AggregatedTrackingResult is the assembled tracking response. All four
// fields are always present in the serialized form; absent branches are
// null (coordinates) or empty (documents). Not persisted.
type AggregatedTrackingResult struct {
	TrackingData        json.RawMessage    `json:"trackingData"`
	Company             *Company           `json:"company"`
	ShipmentCoordinates json.RawMessage    `json:"shipmentCoordinates"`
	ShipmentDocuments   []ShipmentDocument `json:"shipmentDocuments"`
}
