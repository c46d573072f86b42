// Package middleware holds the HTTP middleware shared by the REST routes: staff authentication,
// access logging, and client address extraction.
package middleware

import (
	"context"

	identitydomain "laundry-ops/backend/internal/identity/domain"
)

type contextKey struct{ name string }

var staffKey = contextKey{"staff"}

// WithStaff returns a context carrying the authenticated staff member.
func WithStaff(ctx context.Context, s *identitydomain.Staff) context.Context {
	return context.WithValue(ctx, staffKey, s)
}

// GetStaff returns the staff member from context and true if set; otherwise nil, false.
func GetStaff(ctx context.Context) (*identitydomain.Staff, bool) {
	s, ok := ctx.Value(staffKey).(*identitydomain.Staff)
	return s, ok && s != nil
}
