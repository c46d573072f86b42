package domain

import (
	"testing"
	"time"
)

func TestSession_Usable(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	revoked := now.Add(-time.Minute)
	testCases := []struct {
		name string
		s    *Session
		want bool
	}{
		{"nil", nil, false},
		{"active", &Session{ExpiresAt: now.Add(time.Hour)}, true},
		{"expired", &Session{ExpiresAt: now.Add(-time.Second)}, false},
		{"expires now", &Session{ExpiresAt: now}, false},
		{"revoked", &Session{ExpiresAt: now.Add(time.Hour), RevokedAt: &revoked}, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.s.Usable(now); got != tc.want {
				t.Errorf("Usable = %v, want %v", got, tc.want)
			}
		})
	}
}
