// Package domain describes who is behind a request: a staff member, a portal customer, or nobody.
package domain

import (
	"time"

	userdomain "laundry-ops/backend/internal/user/domain"
)

// Kind distinguishes the identity variants.
type Kind int

const (
	KindNone Kind = iota
	KindStaff
	KindPortal
)

func (k Kind) String() string {
	switch k {
	case KindStaff:
		return "staff"
	case KindPortal:
		return "portal"
	default:
		return "none"
	}
}

// Staff is an authenticated staff member resolved from a session token.
type Staff struct {
	UserID    string
	SessionID string
	Role      userdomain.Role
	BranchID  string
}

// HasRole reports whether the staff role is one of roles.
func (s *Staff) HasRole(roles ...userdomain.Role) bool {
	if s == nil {
		return false
	}
	for _, r := range roles {
		if s.Role == r {
			return true
		}
	}
	return false
}

// Portal is a customer holding a portal session for one delivery.
type Portal struct {
	DeliveryID   string
	OrderID      string
	Contact      string
	CustomerName string
	ExpiresAt    *time.Time
}

// Identity is the result of resolving a request. Exactly one of Staff and Portal is set unless Kind is KindNone.
type Identity struct {
	Kind   Kind
	Staff  *Staff
	Portal *Portal
}

// None is the empty identity.
var None = Identity{Kind: KindNone}

// NewStaff wraps s in an Identity.
func NewStaff(s *Staff) Identity {
	return Identity{Kind: KindStaff, Staff: s}
}

// NewPortal wraps p in an Identity.
func NewPortal(p *Portal) Identity {
	return Identity{Kind: KindPortal, Portal: p}
}
