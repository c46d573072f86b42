package domain

import "time"

// LatLng is a coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DriverPosition is the driver's latest known coordinate.
type DriverPosition struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
}

// TrackingSnapshot is the live position data attached to an envelope. Absent values serialize as null.
type TrackingSnapshot struct {
	ETAMinutes       *int            `json:"etaMinutes"`
	DistanceKm       *float64        `json:"distanceKm"`
	DriverLocation   *DriverPosition `json:"driverLocation"`
	DeliveryLocation *LatLng         `json:"deliveryLocation"`
}
