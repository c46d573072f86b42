// Package domain holds the customer portal session, issued after OTP verification on a delivery.
package domain

import "time"

// Session grants a customer read access to one delivery's live events.
type Session struct {
	TokenHash    string
	DeliveryID   string
	OrderID      string
	Contact      string
	CustomerName string
	ExpiresAt    *time.Time // nil means no expiry
	CreatedAt    time.Time
}

// Expired reports whether the session expired before now.
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && s.ExpiresAt.Before(now)
}
