// Package domain defines driver telemetry frames, the canonical location snapshot, and the frame parser.
package domain

import (
	"encoding/json"
	"time"
)

// Frame is a validated inbound telemetry frame. Optional fields are nil when absent or malformed.
type Frame struct {
	Lat              float64
	Lng              float64
	SpeedKph         *float64
	Heading          *float64
	AccuracyMeters   *float64
	AltitudeMeters   *float64
	BatteryLevelPct  *float64
	Source           *string
	OrderID          *string
	DeliveryID       *string
	RecordedAt       *time.Time
	Metadata         map[string]any
	IsManualOverride bool
}

// LocationUpdate is a frame attributed to the authenticated driver.
type LocationUpdate struct {
	DriverID string
	Frame
}

// Snapshot is a persisted location as broadcast to viewers. Absent values serialize as null.
type Snapshot struct {
	ID               int64          `json:"-"`
	DriverID         string         `json:"driverId"`
	Lat              float64        `json:"lat"`
	Lng              float64        `json:"lng"`
	SpeedKph         *float64       `json:"speedKph"`
	Heading          *float64       `json:"heading"`
	AccuracyMeters   *float64       `json:"accuracyMeters"`
	AltitudeMeters   *float64       `json:"altitudeMeters"`
	BatteryLevelPct  *float64       `json:"batteryLevelPct"`
	OrderID          *string        `json:"orderId"`
	DeliveryID       *string        `json:"deliveryId"`
	Source           *string        `json:"source"`
	IsManualOverride bool           `json:"isManualOverride"`
	Timestamp        time.Time      `json:"timestamp"`
	RecordedAt       *time.Time     `json:"-"`
	Metadata         map[string]any `json:"-"`
}

// MarshalFrame serializes s as an outbound telemetry frame.
func (s *Snapshot) MarshalFrame() ([]byte, error) {
	return json.Marshal(s)
}

// HistoryQuery bounds a location history read. Zero values mean no bound.
type HistoryQuery struct {
	Limit        int
	SinceMinutes int
}
