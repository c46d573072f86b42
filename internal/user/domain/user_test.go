package domain

import "testing"

func TestUser_Validate(t *testing.T) {
	u := &User{Email: "a@example.com", Role: RoleDriver}
	if err := u.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if u.Status != UserStatusActive {
		t.Errorf("Status = %q, want active", u.Status)
	}
	if err := (&User{Role: RoleAdmin}).Validate(); err == nil {
		t.Error("missing email should fail")
	}
	if err := (&User{Email: "a@example.com"}).Validate(); err == nil {
		t.Error("missing role should fail")
	}
}

func TestUser_Active(t *testing.T) {
	var nilUser *User
	if nilUser.Active() {
		t.Error("nil user should not be active")
	}
	if (&User{Status: UserStatusDisabled}).Active() {
		t.Error("disabled user should not be active")
	}
	if !(&User{Status: UserStatusActive}).Active() {
		t.Error("active user should be active")
	}
}
