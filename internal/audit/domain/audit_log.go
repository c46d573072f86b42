package domain

import "time"

// Actions recorded for channel upgrades.
const (
	ActionChannelAccepted = "channel_accepted"
	ActionChannelRejected = "channel_rejected"
)

// AuditLog represents an audit event. UserID is the staff user id, a "portal:<deliveryId>" subject,
// or empty for anonymous callers.
type AuditLog struct {
	ID        string
	UserID    string
	Action    string
	Resource  string
	IP        string
	Metadata  string
	CreatedAt time.Time
}
