package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"laundry-ops/backend/internal/driverlocation/domain"
)

// MemoryStore is an in-memory Store for development and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	rows   []*domain.Snapshot
	nowF   func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nowF: time.Now}
}

// UpdateDriverLocation appends the location.
func (m *MemoryStore) UpdateDriverLocation(ctx context.Context, u domain.LocationUpdate) (*domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	s := &domain.Snapshot{
		ID:               m.nextID,
		DriverID:         u.DriverID,
		Lat:              u.Lat,
		Lng:              u.Lng,
		SpeedKph:         u.SpeedKph,
		Heading:          u.Heading,
		AccuracyMeters:   u.AccuracyMeters,
		AltitudeMeters:   u.AltitudeMeters,
		BatteryLevelPct:  u.BatteryLevelPct,
		OrderID:          u.OrderID,
		DeliveryID:       u.DeliveryID,
		Source:           u.Source,
		IsManualOverride: u.IsManualOverride,
		RecordedAt:       u.RecordedAt,
		Metadata:         u.Metadata,
		Timestamp:        m.nowF().UTC(),
	}
	m.rows = append(m.rows, s)
	cp := *s
	return &cp, nil
}

// LatestDriverLocations returns the newest row per driver, ordered by driver id.
func (m *MemoryStore) LatestDriverLocations(ctx context.Context, driverIDs []string) ([]*domain.Snapshot, error) {
	want := make(map[string]bool, len(driverIDs))
	for _, id := range driverIDs {
		want[id] = true
	}
	m.mu.RLock()
	latest := make(map[string]*domain.Snapshot)
	for _, s := range m.rows {
		if len(want) > 0 && !want[s.DriverID] {
			continue
		}
		latest[s.DriverID] = s
	}
	m.mu.RUnlock()
	out := make([]*domain.Snapshot, 0, len(latest))
	for _, s := range latest {
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DriverID < out[j].DriverID })
	return out, nil
}

// DriverLocationHistory returns the driver's rows newest first.
func (m *MemoryStore) DriverLocationHistory(ctx context.Context, driverID string, q domain.HistoryQuery) ([]*domain.Snapshot, error) {
	var since time.Time
	if q.SinceMinutes > 0 {
		since = m.nowF().Add(-time.Duration(q.SinceMinutes) * time.Minute)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Snapshot
	for i := len(m.rows) - 1; i >= 0; i-- {
		s := m.rows[i]
		if s.DriverID != driverID || s.Timestamp.Before(since) {
			continue
		}
		cp := *s
		out = append(out, &cp)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}
