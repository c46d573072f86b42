package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrMalformedFrame is returned when the frame is not a JSON object.
	ErrMalformedFrame = errors.New("malformed telemetry frame")
	// ErrInvalidCoordinates is returned when lat or lng is missing, non-numeric or non-finite, or when
	// they fall outside the WGS84 range (|lat| > 90, |lng| > 180).
	ErrInvalidCoordinates = errors.New("invalid telemetry coordinates")
)

// ParseFrame decodes and validates one inbound frame. lat and lng are mandatory; every other field is
// coerced independently and left nil when it has the wrong type. Any driverId in the frame is ignored.
func ParseFrame(raw []byte) (Frame, error) {
	var obj map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return Frame{}, ErrMalformedFrame
	}
	if _, err := dec.Token(); err != io.EOF {
		return Frame{}, ErrMalformedFrame
	}
	return FrameFromMap(obj)
}

// FrameFromMap validates an already-decoded frame object.
func FrameFromMap(obj map[string]any) (Frame, error) {
	lat := CoerceFloat(obj["lat"])
	lng := CoerceFloat(obj["lng"])
	if lat == nil || lng == nil || math.Abs(*lat) > 90 || math.Abs(*lng) > 180 {
		return Frame{}, ErrInvalidCoordinates
	}
	f := Frame{
		Lat:              *lat,
		Lng:              *lng,
		SpeedKph:         CoerceFloat(first(obj, "speedKph", "speed")),
		Heading:          CoerceFloat(obj["heading"]),
		AccuracyMeters:   CoerceFloat(first(obj, "accuracyMeters", "accuracy")),
		AltitudeMeters:   CoerceFloat(first(obj, "altitudeMeters", "altitude")),
		BatteryLevelPct:  CoerceFloat(first(obj, "batteryLevelPct", "batteryPct")),
		Source:           CoerceString(obj["source"]),
		OrderID:          CoerceID(obj["orderId"]),
		DeliveryID:       CoerceID(obj["deliveryId"]),
		RecordedAt:       CoerceTime(first(obj, "recordedAt", "timestamp")),
		Metadata:         CoerceObject(obj["metadata"]),
		IsManualOverride: CoerceBool(obj["isManualOverride"]),
	}
	return f, nil
}

// first returns the value of the first key present and non-null.
func first(obj map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// CoerceFloat accepts a JSON number or a numeric string. Non-finite values yield nil.
func CoerceFloat(v any) *float64 {
	var f float64
	switch x := v.(type) {
	case json.Number:
		n, err := x.Float64()
		if err != nil {
			return nil
		}
		f = n
	case float64:
		f = x
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil
		}
		f = n
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// CoerceID accepts a non-empty string or an integral number and returns it as a string.
func CoerceID(v any) *string {
	switch x := v.(type) {
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil
		}
		return &s
	case json.Number:
		if n, err := x.Int64(); err == nil {
			s := strconv.FormatInt(n, 10)
			return &s
		}
		return nil
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) {
			return nil
		}
		s := strconv.FormatInt(int64(x), 10)
		return &s
	default:
		return nil
	}
}

// CoerceString accepts a non-empty string.
func CoerceString(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// maxEpochMillis bounds numeric timestamps to the range a JavaScript Date can hold.
const maxEpochMillis = 8.64e15

// CoerceTime accepts an RFC 3339 string or epoch milliseconds. The result is in UTC. Times outside
// years 1 to 9999 yield nil.
func CoerceTime(v any) *time.Time {
	var t time.Time
	switch x := v.(type) {
	case string:
		p, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(x))
		if err != nil {
			return nil
		}
		t = p
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return nil
		}
		ms, ok := epochMillis(f)
		if !ok {
			return nil
		}
		if n, err := x.Int64(); err == nil {
			ms = n
		}
		t = time.UnixMilli(ms)
	case float64:
		ms, ok := epochMillis(x)
		if !ok {
			return nil
		}
		t = time.UnixMilli(ms)
	default:
		return nil
	}
	t = t.UTC()
	if y := t.Year(); y < 1 || y > 9999 {
		return nil
	}
	return &t
}

func epochMillis(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > maxEpochMillis {
		return 0, false
	}
	return int64(f), true
}

// CoerceBool accepts only JSON true; everything else is false.
func CoerceBool(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

// CoerceObject accepts a JSON object.
func CoerceObject(v any) map[string]any {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return m
}
