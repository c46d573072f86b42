package domain

import (
	"errors"
	"time"
)

// User is a staff member of a laundry branch (cashier, driver, admin).
type User struct {
	ID        string
	Email     string
	Name      string
	Role      Role
	BranchID  string // empty for users not pinned to a branch (e.g. super_admin)
	Status    UserStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// Role is a staff role as stored on the user row.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleDriver     Role = "driver"
	RoleCashier    Role = "cashier"
	RoleOperator   Role = "operator"
)

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.Role == "" {
		return errors.New("role is required")
	}
	if u.Status == "" {
		u.Status = UserStatusActive
	}
	return nil
}

// Active reports whether the user may authenticate.
func (u *User) Active() bool {
	return u != nil && u.Status == UserStatusActive
}
