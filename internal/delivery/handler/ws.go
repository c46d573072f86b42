// Package handler serves the delivery-orders WebSocket channel.
package handler

import (
	"context"
	"errors"
	"log"
	"net/http"

	"laundry-ops/backend/internal/delivery/domain"
	identitydomain "laundry-ops/backend/internal/identity/domain"
	identityservice "laundry-ops/backend/internal/identity/service"
	"laundry-ops/backend/internal/policy/engine"
	"laundry-ops/backend/internal/realtime"
)

// IdentityResolver resolves the identity behind an upgrade request.
type IdentityResolver interface {
	Resolve(ctx context.Context, r *http.Request) (identitydomain.Identity, error)
}

// Channel admits staff (per the admission policy) and portal customers to the delivery event feed.
// Accepted connections are registered with their descriptor until they close.
type Channel struct {
	resolver IdentityResolver
	policy   engine.AdmissionEvaluator
	registry *realtime.Registry[domain.Descriptor]
}

// NewChannel returns the delivery-orders channel. registry is shared with the broadcaster.
func NewChannel(resolver IdentityResolver, policy engine.AdmissionEvaluator, registry *realtime.Registry[domain.Descriptor]) *Channel {
	return &Channel{resolver: resolver, policy: policy, registry: registry}
}

// Name implements realtime.Channel.
func (ch *Channel) Name() string { return string(engine.ChannelDeliveryOrders) }

// Admit implements realtime.Channel.
func (ch *Channel) Admit(r *http.Request) realtime.Admission {
	ctx := r.Context()
	id, err := ch.resolver.Resolve(ctx, r)
	switch {
	case id.Kind == identitydomain.KindStaff && id.Staff != nil:
		return ch.admitStaff(ctx, id.Staff)
	case id.Kind == identitydomain.KindPortal && id.Portal != nil:
		subject := "portal:" + id.Portal.DeliveryID
		if errors.Is(err, identityservice.ErrPortalSessionExpired) {
			return realtime.Admission{CloseCode: realtime.CloseSessionExpired, Reason: "portal session expired", Subject: subject}
		}
		if err != nil {
			return realtime.Reject(http.StatusUnauthorized, "unauthenticated", subject)
		}
		return realtime.Admission{
			Reason:  "portal",
			Subject: subject,
			Serve: ch.serve(domain.PortalDescriptor{
				DeliveryID: id.Portal.DeliveryID,
				OrderID:    id.Portal.OrderID,
			}),
		}
	default:
		return realtime.Reject(http.StatusUnauthorized, "unauthenticated", "")
	}
}

func (ch *Channel) admitStaff(ctx context.Context, s *identitydomain.Staff) realtime.Admission {
	allowed, err := ch.policy.Allow(ctx, engine.ChannelDeliveryOrders, s.Role)
	if err != nil {
		log.Printf("delivery: admission policy for role %s: %v", s.Role, err)
		return realtime.Reject(http.StatusForbidden, "policy_error", s.UserID)
	}
	if !allowed {
		return realtime.Reject(http.StatusForbidden, "role_not_allowed", s.UserID)
	}
	return realtime.Admission{
		Reason:  "staff:" + string(s.Role),
		Subject: s.UserID,
		Serve: ch.serve(domain.StaffDescriptor{
			UserID:   s.UserID,
			Role:     s.Role,
			BranchID: s.BranchID,
		}),
	}
}

func (ch *Channel) serve(desc domain.Descriptor) func(ctx context.Context, c *realtime.Conn) {
	return func(ctx context.Context, c *realtime.Conn) {
		if err := ch.registry.Register(c, desc); err != nil {
			log.Printf("delivery: register %s: %v", c.ID(), err)
			c.Close()
			<-c.Done()
			return
		}
		c.OnClose(func() { ch.registry.Unregister(c) })
		// Inbound messages carry nothing on this channel.
		c.Run(ctx, nil)
	}
}
