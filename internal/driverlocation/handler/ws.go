// Package handler serves the driver-location WebSocket channel and its REST companions.
package handler

import (
	"context"
	"errors"
	"log"
	"net/http"

	"laundry-ops/backend/internal/driverlocation/domain"
	"laundry-ops/backend/internal/driverlocation/service"
	identitydomain "laundry-ops/backend/internal/identity/domain"
	"laundry-ops/backend/internal/policy/engine"
	"laundry-ops/backend/internal/realtime"
)

// IdentityResolver resolves the identity behind a request.
type IdentityResolver interface {
	Resolve(ctx context.Context, r *http.Request) (identitydomain.Identity, error)
}

// Channel admits drivers only. On connect it replays the driver's recent history, then ingests every
// inbound frame and keeps the connection registered as a viewer of every driver's snapshots.
type Channel struct {
	resolver IdentityResolver
	policy   engine.AdmissionEvaluator
	ingestor *service.Ingestor
	catchUp  domain.HistoryQuery
}

// NewChannel returns the driver-location channel.
func NewChannel(resolver IdentityResolver, policy engine.AdmissionEvaluator, ingestor *service.Ingestor, catchUp domain.HistoryQuery) *Channel {
	return &Channel{resolver: resolver, policy: policy, ingestor: ingestor, catchUp: catchUp}
}

// Name implements realtime.Channel.
func (ch *Channel) Name() string { return string(engine.ChannelDriverLocation) }

// Admit implements realtime.Channel.
func (ch *Channel) Admit(r *http.Request) realtime.Admission {
	ctx := r.Context()
	id, _ := ch.resolver.Resolve(ctx, r)
	if id.Kind != identitydomain.KindStaff || id.Staff == nil {
		return realtime.Reject(http.StatusUnauthorized, "unauthenticated", "")
	}
	s := id.Staff
	allowed, err := ch.policy.Allow(ctx, engine.ChannelDriverLocation, s.Role)
	if err != nil {
		log.Printf("driverlocation: admission policy for role %s: %v", s.Role, err)
		return realtime.Reject(http.StatusForbidden, "policy_error", s.UserID)
	}
	if !allowed {
		return realtime.Reject(http.StatusForbidden, "role_not_allowed", s.UserID)
	}
	driver := service.Driver{UserID: s.UserID, BranchID: s.BranchID, SessionID: s.SessionID}
	return realtime.Admission{
		Reason:  "staff:" + string(s.Role),
		Subject: s.UserID,
		Serve:   func(ctx context.Context, c *realtime.Conn) { ch.serve(ctx, c, driver) },
	}
}

func (ch *Channel) serve(ctx context.Context, c *realtime.Conn, d service.Driver) {
	ch.replay(ctx, c, d.UserID)

	viewers := ch.ingestor.Viewers()
	if err := viewers.Register(c, d.UserID); err != nil {
		log.Printf("driverlocation: register %s: %v", c.ID(), err)
		c.Close()
		<-c.Done()
		return
	}
	c.OnClose(func() { viewers.Unregister(c) })

	c.Run(ctx, func(ctx context.Context, msg []byte) {
		// Bad frames and storage failures drop the frame; the connection stays open.
		if _, err := ch.ingestor.IngestRaw(ctx, d, msg); errors.Is(err, service.ErrPersistFailed) {
			log.Printf("driverlocation: ingest from %s: %v", d.UserID, err)
		}
	})
}

func (ch *Channel) replay(ctx context.Context, c *realtime.Conn, driverID string) {
	if ch.catchUp.Limit <= 0 {
		return
	}
	rows, err := ch.ingestor.History(ctx, driverID, ch.catchUp)
	if err != nil {
		log.Printf("driverlocation: catch-up history for %s: %v", driverID, err)
		return
	}
	for _, s := range rows {
		b, err := s.MarshalFrame()
		if err != nil {
			continue
		}
		if err := c.Send(b); err != nil {
			log.Printf("driverlocation: catch-up to %s stopped: %v", c.ID(), err)
			return
		}
	}
}
