package engine

import (
	"context"

	userdomain "laundry-ops/backend/internal/user/domain"
)

// Channel names a real-time channel that staff connect to.
type Channel string

const (
	ChannelDeliveryOrders Channel = "delivery-orders"
	ChannelDriverLocation Channel = "driver-location"
)

// AdmissionEvaluator decides whether a staff role may open a channel.
type AdmissionEvaluator interface {
	// Allow reports whether role is admitted to channel. An error means the decision could not be made;
	// callers must treat it as a denial.
	Allow(ctx context.Context, channel Channel, role userdomain.Role) (bool, error)
}

// StaticEvaluator admits roles from fixed allow-sets per channel. Used when OPA is unavailable and in tests.
type StaticEvaluator struct {
	allow map[Channel]map[userdomain.Role]struct{}
}

// NewStaticEvaluator returns the built-in channel allow-sets:
// delivery-orders admits admin, super_admin and driver; driver-location admits only driver.
func NewStaticEvaluator() *StaticEvaluator {
	return &StaticEvaluator{allow: map[Channel]map[userdomain.Role]struct{}{
		ChannelDeliveryOrders: {
			userdomain.RoleAdmin:      {},
			userdomain.RoleSuperAdmin: {},
			userdomain.RoleDriver:     {},
		},
		ChannelDriverLocation: {
			userdomain.RoleDriver: {},
		},
	}}
}

// Allow implements AdmissionEvaluator.
func (e *StaticEvaluator) Allow(ctx context.Context, channel Channel, role userdomain.Role) (bool, error) {
	roles, ok := e.allow[channel]
	if !ok {
		return false, nil
	}
	_, ok = roles[role]
	return ok, nil
}
