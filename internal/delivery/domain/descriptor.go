package domain

import userdomain "laundry-ops/backend/internal/user/domain"

// Descriptor is the immutable subscription scope of one delivery channel connection.
type Descriptor interface {
	Matches(orderID string) bool
}

// StaffDescriptor subscribes a staff member to every delivery event.
type StaffDescriptor struct {
	UserID   string
	Role     userdomain.Role
	BranchID string
}

// Matches always returns true.
func (StaffDescriptor) Matches(string) bool { return true }

// PortalDescriptor subscribes a customer to one order's events.
type PortalDescriptor struct {
	DeliveryID string
	OrderID    string
}

// Matches reports whether orderID is the portal session's order.
func (d PortalDescriptor) Matches(orderID string) bool {
	return d.OrderID != "" && d.OrderID == orderID
}
