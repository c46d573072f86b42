// Package tracking computes the live tracking snapshot attached to delivery events.
package tracking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"laundry-ops/backend/internal/delivery/domain"
	locationdomain "laundry-ops/backend/internal/driverlocation/domain"
)

const (
	earthRadiusKm = 6371.0
	// minReportedSpeedKph is the lowest reported speed trusted for ETA; slower drivers are assumed stopped.
	minReportedSpeedKph = 5.0
)

// Provider returns the tracking snapshot for an order, or nil when there is nothing to report.
type Provider interface {
	DeliveryTrackingSnapshot(ctx context.Context, orderID string) (*domain.TrackingSnapshot, error)
}

// LatestLocations is the slice of the driver location store the provider needs.
type LatestLocations interface {
	LatestDriverLocations(ctx context.Context, driverIDs []string) ([]*locationdomain.Snapshot, error)
}

// Delivery is the part of a delivery row relevant to tracking.
type Delivery struct {
	OrderID  string
	DriverID string
	Dropoff  *domain.LatLng
}

// PostgresProvider reads the delivery row and the assigned driver's latest location.
type PostgresProvider struct {
	db              *sql.DB
	locations       LatestLocations
	assumedSpeedKph float64
}

// NewPostgresProvider returns a Provider. assumedSpeedKph is used when the driver reports no usable speed.
func NewPostgresProvider(db *sql.DB, locations LatestLocations, assumedSpeedKph float64) *PostgresProvider {
	return &PostgresProvider{db: db, locations: locations, assumedSpeedKph: assumedSpeedKph}
}

// DeliveryTrackingSnapshot implements Provider. A missing delivery row yields (nil, nil).
func (p *PostgresProvider) DeliveryTrackingSnapshot(ctx context.Context, orderID string) (*domain.TrackingSnapshot, error) {
	d, err := p.delivery(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, nil
	}
	var loc *locationdomain.Snapshot
	if d.DriverID != "" {
		latest, err := p.locations.LatestDriverLocations(ctx, []string{d.DriverID})
		if err != nil {
			return nil, fmt.Errorf("latest driver location: %w", err)
		}
		if len(latest) > 0 {
			loc = latest[0]
		}
	}
	return Compute(d, loc, p.assumedSpeedKph), nil
}

func (p *PostgresProvider) delivery(ctx context.Context, orderID string) (*Delivery, error) {
	var (
		d        Delivery
		driverID sql.NullString
		lat, lng sql.NullFloat64
	)
	err := p.db.QueryRowContext(ctx, `
		SELECT order_id, driver_id, dropoff_lat, dropoff_lng
		FROM deliveries WHERE order_id = $1
		ORDER BY created_at DESC LIMIT 1`, orderID).Scan(&d.OrderID, &driverID, &lat, &lng)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	d.DriverID = driverID.String
	if lat.Valid && lng.Valid {
		d.Dropoff = &domain.LatLng{Lat: lat.Float64, Lng: lng.Float64}
	}
	return &d, nil
}

// Compute builds the snapshot from a delivery and the driver's latest location (either may lack data).
// Distance is the great-circle distance rounded to 2 decimals; ETA uses the driver's speed when above
// minReportedSpeedKph, otherwise assumedSpeedKph.
func Compute(d *Delivery, loc *locationdomain.Snapshot, assumedSpeedKph float64) *domain.TrackingSnapshot {
	if d == nil {
		return nil
	}
	snap := &domain.TrackingSnapshot{DeliveryLocation: d.Dropoff}
	if loc != nil {
		snap.DriverLocation = &domain.DriverPosition{Lat: loc.Lat, Lng: loc.Lng, Timestamp: loc.Timestamp}
	}
	if d.Dropoff == nil || loc == nil {
		return snap
	}
	dist := Haversine(loc.Lat, loc.Lng, d.Dropoff.Lat, d.Dropoff.Lng)
	rounded := math.Round(dist*100) / 100
	snap.DistanceKm = &rounded

	speed := assumedSpeedKph
	if loc.SpeedKph != nil && *loc.SpeedKph > minReportedSpeedKph {
		speed = *loc.SpeedKph
	}
	if speed > 0 {
		eta := int(math.Ceil(dist / speed * 60))
		snap.ETAMinutes = &eta
	}
	return snap
}

// Haversine returns the great-circle distance in kilometres between two coordinates.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLng := rad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
