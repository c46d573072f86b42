package domain

import (
	"testing"

	userdomain "laundry-ops/backend/internal/user/domain"
)

func TestStaff_HasRole(t *testing.T) {
	s := &Staff{Role: userdomain.RoleDriver}
	if !s.HasRole(userdomain.RoleAdmin, userdomain.RoleDriver) {
		t.Error("driver should match allow-set containing driver")
	}
	if s.HasRole(userdomain.RoleAdmin) {
		t.Error("driver should not match admin")
	}
	var nilStaff *Staff
	if nilStaff.HasRole(userdomain.RoleDriver) {
		t.Error("nil staff has no role")
	}
}

func TestKind_String(t *testing.T) {
	if KindStaff.String() != "staff" || KindPortal.String() != "portal" || KindNone.String() != "none" {
		t.Error("unexpected Kind strings")
	}
}
