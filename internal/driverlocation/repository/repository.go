package repository

import (
	"context"

	"laundry-ops/backend/internal/driverlocation/domain"
)

// Store persists driver locations.
type Store interface {
	// UpdateDriverLocation records a new location and returns the persisted snapshot.
	UpdateDriverLocation(ctx context.Context, u domain.LocationUpdate) (*domain.Snapshot, error)
	// LatestDriverLocations returns the newest location per driver, optionally restricted to driverIDs.
	LatestDriverLocations(ctx context.Context, driverIDs []string) ([]*domain.Snapshot, error)
	// DriverLocationHistory returns a driver's locations, newest first.
	DriverLocationHistory(ctx context.Context, driverID string, q domain.HistoryQuery) ([]*domain.Snapshot, error)
}
