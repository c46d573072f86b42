package middleware

import (
	"context"
	"net/http"

	identitydomain "laundry-ops/backend/internal/identity/domain"
	"laundry-ops/backend/internal/platform/httpjson"
	userdomain "laundry-ops/backend/internal/user/domain"
)

// IdentityResolver resolves the identity behind a request. It is the same pipeline the WebSocket
// channels run on upgrade.
type IdentityResolver interface {
	Resolve(ctx context.Context, r *http.Request) (identitydomain.Identity, error)
}

// RequireStaff admits requests carrying a staff identity whose role is one of roles (any role when
// roles is empty) and stores the staff member in the request context. Requests without a staff
// identity get 401; staff with another role get 403.
func RequireStaff(resolver IdentityResolver, roles ...userdomain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, _ := resolver.Resolve(r.Context(), r)
			if id.Kind != identitydomain.KindStaff || id.Staff == nil {
				httpjson.WriteError(w, r, http.StatusUnauthorized, "authentication required")
				return
			}
			if len(roles) > 0 && !id.Staff.HasRole(roles...) {
				httpjson.WriteError(w, r, http.StatusForbidden, "role not permitted")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithStaff(r.Context(), id.Staff)))
		})
	}
}
