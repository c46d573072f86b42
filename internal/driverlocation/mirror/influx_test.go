package mirror

import (
	"context"
	"testing"
	"time"

	"laundry-ops/backend/internal/driverlocation/domain"
)

func TestPoint(t *testing.T) {
	speed := 32.5
	order := "O1"
	recorded := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	p := Point(&domain.Snapshot{
		DriverID:   "D1",
		Lat:        29.3,
		Lng:        47.9,
		SpeedKph:   &speed,
		OrderID:    &order,
		Timestamp:  recorded.Add(time.Second),
		RecordedAt: &recorded,
	})

	if p.Name() != Measurement {
		t.Errorf("measurement = %q", p.Name())
	}
	tags := map[string]string{}
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	if tags["driverId"] != "D1" || tags["orderId"] != "O1" {
		t.Errorf("tags = %v", tags)
	}
	if _, ok := tags["source"]; ok {
		t.Error("absent source should not be tagged")
	}
	fields := map[string]interface{}{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	if fields["lat"] != 29.3 || fields["lng"] != 47.9 || fields["speedKph"] != 32.5 {
		t.Errorf("fields = %v", fields)
	}
	if _, ok := fields["heading"]; ok {
		t.Error("absent heading should not be written")
	}
	if !p.Time().Equal(recorded) {
		t.Errorf("time = %v, want device time %v", p.Time(), recorded)
	}
}

func TestInfluxMirror_DisabledWithoutURL(t *testing.T) {
	m := NewInfluxMirror("", "", "", "")
	if m != nil {
		t.Fatal("empty URL should disable the mirror")
	}
	if err := m.Mirror(context.Background(), &domain.Snapshot{DriverID: "D1"}); err != nil {
		t.Errorf("nil Mirror: %v", err)
	}
	m.Close()
}
