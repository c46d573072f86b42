package tracking

import (
	"math"
	"testing"
	"time"

	"laundry-ops/backend/internal/delivery/domain"
	locationdomain "laundry-ops/backend/internal/driverlocation/domain"
)

func TestHaversine(t *testing.T) {
	if d := Haversine(29.3, 47.9, 29.3, 47.9); d != 0 {
		t.Errorf("same point = %v, want 0", d)
	}
	// One degree of latitude is ~111.19 km.
	if d := Haversine(0, 0, 1, 0); math.Abs(d-111.19) > 0.01 {
		t.Errorf("1 degree = %v, want ~111.19", d)
	}
}

func TestCompute(t *testing.T) {
	ts := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	dropoff := &domain.LatLng{Lat: 1, Lng: 0}
	fast := 60.0
	crawling := 3.0

	testCases := []struct {
		name     string
		d        *Delivery
		loc      *locationdomain.Snapshot
		wantNil  bool
		wantDist *float64
		wantETA  *int
	}{
		{name: "no delivery", d: nil, wantNil: true},
		{name: "no driver location", d: &Delivery{OrderID: "O1", Dropoff: dropoff}},
		{name: "no dropoff", d: &Delivery{OrderID: "O1"}, loc: &locationdomain.Snapshot{Lat: 0, Lng: 0, Timestamp: ts}},
		{
			name:     "reported speed",
			d:        &Delivery{OrderID: "O1", Dropoff: dropoff},
			loc:      &locationdomain.Snapshot{Lat: 0, Lng: 0, SpeedKph: &fast, Timestamp: ts},
			wantDist: floatPtr(111.19),
			wantETA:  intPtr(112),
		},
		{
			name:     "slow driver uses assumed speed",
			d:        &Delivery{OrderID: "O1", Dropoff: dropoff},
			loc:      &locationdomain.Snapshot{Lat: 0, Lng: 0, SpeedKph: &crawling, Timestamp: ts},
			wantDist: floatPtr(111.19),
			wantETA:  intPtr(267),
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			snap := Compute(tc.d, tc.loc, 25)
			if tc.wantNil {
				if snap != nil {
					t.Errorf("snapshot = %+v, want nil", snap)
				}
				return
			}
			if snap == nil {
				t.Fatal("snapshot is nil")
			}
			if snap.DeliveryLocation != tc.d.Dropoff {
				t.Errorf("DeliveryLocation = %v", snap.DeliveryLocation)
			}
			if (tc.loc == nil) != (snap.DriverLocation == nil) {
				t.Errorf("DriverLocation = %v", snap.DriverLocation)
			}
			if tc.loc != nil && !snap.DriverLocation.Timestamp.Equal(ts) {
				t.Errorf("DriverLocation.Timestamp = %v", snap.DriverLocation.Timestamp)
			}
			if !equalFloat(snap.DistanceKm, tc.wantDist) {
				t.Errorf("DistanceKm = %v, want %v", deref(snap.DistanceKm), deref(tc.wantDist))
			}
			if !equalInt(snap.ETAMinutes, tc.wantETA) {
				t.Errorf("ETAMinutes = %v, want %v", snap.ETAMinutes, tc.wantETA)
			}
		})
	}
}

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

func deref(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func equalFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return math.Abs(*a-*b) < 1e-9
}

func equalInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
