// Package rbac holds per-resource authorization checks for staff callers of the REST routes.
package rbac

import (
	"context"
	"errors"
	"net/http"

	identitydomain "laundry-ops/backend/internal/identity/domain"
	"laundry-ops/backend/internal/server/middleware"
	userdomain "laundry-ops/backend/internal/user/domain"
)

var (
	// ErrUnauthenticated means no staff member is in the context.
	ErrUnauthenticated = errors.New("staff authentication required")
	// ErrForbidden means the staff member may not access the resource.
	ErrForbidden = errors.New("not permitted")
)

// RequireRole returns the staff member from ctx if their role is one of roles.
func RequireRole(ctx context.Context, roles ...userdomain.Role) (*identitydomain.Staff, error) {
	s, ok := middleware.GetStaff(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	if !s.HasRole(roles...) {
		return nil, ErrForbidden
	}
	return s, nil
}

// RequireSelfOrRole admits the staff member whose user id is userID, or any staff member with one of roles.
func RequireSelfOrRole(ctx context.Context, userID string, roles ...userdomain.Role) (*identitydomain.Staff, error) {
	s, ok := middleware.GetStaff(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	if userID != "" && s.UserID == userID {
		return s, nil
	}
	if !s.HasRole(roles...) {
		return nil, ErrForbidden
	}
	return s, nil
}

// Status maps an rbac error to an HTTP status code.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
