// Package domain defines the analytics event emitted by the real-time layer.
package domain

import (
	"encoding/json"
	"time"
)

// Event is a best-effort analytics event. It is serialized as JSON for Kafka and Loki.
type Event struct {
	EventType string          `json:"eventType"`
	Source    string          `json:"source"`
	UserID    string          `json:"userId,omitempty"`
	BranchID  string          `json:"branchId,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// NewEvent builds an event with metadata encoded as JSON. Unencodable metadata is dropped.
func NewEvent(eventType, source string, metadata any) *Event {
	ev := &Event{EventType: eventType, Source: source, CreatedAt: time.Now().UTC()}
	if metadata != nil {
		if b, err := json.Marshal(metadata); err == nil {
			ev.Metadata = b
		}
	}
	return ev
}
