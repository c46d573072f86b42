package domain

import "time"

// Session is a staff login session. The staff access token carries its id.
type Session struct {
	ID         string
	UserID     string
	BranchID   string
	ExpiresAt  time.Time
	RevokedAt  *time.Time // nil when not revoked
	LastSeenAt *time.Time
	IPAddress  string
	CreatedAt  time.Time
}

// Usable reports whether the session is neither revoked nor expired at now.
func (s *Session) Usable(now time.Time) bool {
	if s == nil || s.RevokedAt != nil {
		return false
	}
	return now.Before(s.ExpiresAt)
}
