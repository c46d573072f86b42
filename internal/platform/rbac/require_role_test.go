package rbac

import (
	"context"
	"errors"
	"net/http"
	"testing"

	identitydomain "laundry-ops/backend/internal/identity/domain"
	"laundry-ops/backend/internal/server/middleware"
	userdomain "laundry-ops/backend/internal/user/domain"
)

func withStaff(userID string, role userdomain.Role) context.Context {
	return middleware.WithStaff(context.Background(), &identitydomain.Staff{UserID: userID, Role: role})
}

func TestRequireRole(t *testing.T) {
	if _, err := RequireRole(context.Background(), userdomain.RoleAdmin); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("no staff: err = %v, want ErrUnauthenticated", err)
	}
	if _, err := RequireRole(withStaff("u1", userdomain.RoleCashier), userdomain.RoleAdmin, userdomain.RoleSuperAdmin); !errors.Is(err, ErrForbidden) {
		t.Errorf("cashier: err = %v, want ErrForbidden", err)
	}
	s, err := RequireRole(withStaff("u1", userdomain.RoleSuperAdmin), userdomain.RoleAdmin, userdomain.RoleSuperAdmin)
	if err != nil || s.UserID != "u1" {
		t.Errorf("super admin: staff = %+v, err = %v", s, err)
	}
}

func TestRequireSelfOrRole(t *testing.T) {
	testCases := []struct {
		name    string
		ctx     context.Context
		userID  string
		wantErr error
	}{
		{"self driver", withStaff("d1", userdomain.RoleDriver), "d1", nil},
		{"other driver", withStaff("d2", userdomain.RoleDriver), "d1", ErrForbidden},
		{"admin", withStaff("a1", userdomain.RoleAdmin), "d1", nil},
		{"empty target is never self", withStaff("", userdomain.RoleDriver), "", ErrForbidden},
		{"anonymous", context.Background(), "d1", ErrUnauthenticated},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := RequireSelfOrRole(tc.ctx, tc.userID, userdomain.RoleAdmin, userdomain.RoleSuperAdmin)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestStatus(t *testing.T) {
	if Status(ErrUnauthenticated) != http.StatusUnauthorized || Status(ErrForbidden) != http.StatusForbidden {
		t.Error("sentinel mapping wrong")
	}
	if Status(errors.New("x")) != http.StatusInternalServerError {
		t.Error("unknown errors map to 500")
	}
}
