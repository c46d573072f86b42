// Package mirror copies persisted driver locations into an InfluxDB bucket for time-series dashboards.
package mirror

import (
	"context"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"laundry-ops/backend/internal/driverlocation/domain"
)

// Measurement is the Influx measurement driver locations are written to.
const Measurement = "driver_location"

// InfluxMirror writes one point per persisted location.
type InfluxMirror struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
}

// NewInfluxMirror returns a mirror for the given server. Returns nil when url is empty.
func NewInfluxMirror(url, token, org, bucket string) *InfluxMirror {
	if url == "" {
		return nil
	}
	client := influxdb2.NewClient(url, token)
	return &InfluxMirror{client: client, writeAPI: client.WriteAPIBlocking(org, bucket)}
}

// Mirror writes s. A nil mirror does nothing.
func (m *InfluxMirror) Mirror(ctx context.Context, s *domain.Snapshot) error {
	if m == nil || s == nil {
		return nil
	}
	return m.writeAPI.WritePoint(ctx, Point(s))
}

// Close releases the client. Safe on a nil mirror.
func (m *InfluxMirror) Close() {
	if m != nil && m.client != nil {
		m.client.Close()
	}
}

// Point converts s to an Influx point tagged by driver, order and source. Absent values are left out.
func Point(s *domain.Snapshot) *write.Point {
	tags := map[string]string{"driverId": s.DriverID}
	if s.OrderID != nil {
		tags["orderId"] = *s.OrderID
	}
	if s.DeliveryID != nil {
		tags["deliveryId"] = *s.DeliveryID
	}
	if s.Source != nil {
		tags["source"] = *s.Source
	}

	fields := map[string]interface{}{
		"lat":              s.Lat,
		"lng":              s.Lng,
		"isManualOverride": s.IsManualOverride,
	}
	optional := map[string]*float64{
		"speedKph":        s.SpeedKph,
		"heading":         s.Heading,
		"accuracyMeters":  s.AccuracyMeters,
		"altitudeMeters":  s.AltitudeMeters,
		"batteryLevelPct": s.BatteryLevelPct,
	}
	for k, v := range optional {
		if v != nil {
			fields[k] = *v
		}
	}

	ts := s.Timestamp
	if s.RecordedAt != nil {
		ts = *s.RecordedAt
	}
	return write.NewPoint(Measurement, tags, fields, ts)
}
