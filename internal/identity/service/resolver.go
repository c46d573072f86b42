// Package service resolves the identity behind an HTTP request. The same pipeline serves REST routes
// and WebSocket upgrade requests.
package service

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	identitydomain "laundry-ops/backend/internal/identity/domain"
	portaldomain "laundry-ops/backend/internal/portal/domain"
	"laundry-ops/backend/internal/security"
	sessiondomain "laundry-ops/backend/internal/session/domain"
	userdomain "laundry-ops/backend/internal/user/domain"
)

var (
	// ErrUnauthenticated means neither a staff nor a portal identity could be resolved.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrPortalSessionExpired is returned together with the portal identity when its session has expired.
	ErrPortalSessionExpired = errors.New("portal session expired")
)

// TokenValidator validates staff session tokens.
type TokenValidator interface {
	Validate(token string) (*security.StaffToken, error)
}

// SessionRepo is the minimal staff session repository needed by the resolver.
type SessionRepo interface {
	GetByID(ctx context.Context, id string) (*sessiondomain.Session, error)
}

// UserRepo is the minimal user repository needed by the resolver.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
}

// PortalRepo is the minimal portal session repository needed by the resolver.
type PortalRepo interface {
	GetByTokenHash(ctx context.Context, tokenHash string) (*portaldomain.Session, error)
}

// ResolverConfig names the cookies the resolver reads.
type ResolverConfig struct {
	StaffCookie  string
	PortalCookie string
}

// Resolver runs cookie → session → identity against a request.
type Resolver struct {
	tokens   TokenValidator
	sessions SessionRepo
	users    UserRepo
	portal   PortalRepo
	cfg      ResolverConfig
	nowF     func() time.Time
}

// NewResolver returns a Resolver. portal may be nil, in which case portal identities are never resolved.
func NewResolver(tokens TokenValidator, sessions SessionRepo, users UserRepo, portal PortalRepo, cfg ResolverConfig) *Resolver {
	return &Resolver{
		tokens:   tokens,
		sessions: sessions,
		users:    users,
		portal:   portal,
		cfg:      cfg,
		nowF:     time.Now,
	}
}

// Resolve returns the staff identity if a usable staff session resolves, otherwise the portal identity
// if a portal session cookie resolves. An expired portal session yields the portal identity together
// with ErrPortalSessionExpired. Decode and storage failures count as no identity.
func (r *Resolver) Resolve(ctx context.Context, req *http.Request) (identitydomain.Identity, error) {
	if staff := r.resolveStaff(ctx, req); staff != nil {
		return identitydomain.NewStaff(staff), nil
	}
	return r.resolvePortal(ctx, req)
}

func (r *Resolver) resolveStaff(ctx context.Context, req *http.Request) *identitydomain.Staff {
	raw := staffToken(req, r.cfg.StaffCookie)
	if raw == "" || r.tokens == nil {
		return nil
	}
	tok, err := r.tokens.Validate(raw)
	if err != nil {
		return nil
	}
	sess, err := r.sessions.GetByID(ctx, tok.SessionID)
	if err != nil {
		log.Printf("identity: session lookup %s: %v", tok.SessionID, err)
		return nil
	}
	if sess == nil || sess.UserID != tok.UserID || !sess.Usable(r.nowF()) {
		return nil
	}
	u, err := r.users.GetByID(ctx, sess.UserID)
	if err != nil {
		log.Printf("identity: user lookup %s: %v", sess.UserID, err)
		return nil
	}
	if !u.Active() || u.Role == "" {
		return nil
	}
	branchID := sess.BranchID
	if branchID == "" {
		branchID = u.BranchID
	}
	return &identitydomain.Staff{
		UserID:    u.ID,
		SessionID: sess.ID,
		Role:      u.Role,
		BranchID:  branchID,
	}
}

func (r *Resolver) resolvePortal(ctx context.Context, req *http.Request) (identitydomain.Identity, error) {
	if r.portal == nil || r.cfg.PortalCookie == "" {
		return identitydomain.None, ErrUnauthenticated
	}
	c, err := req.Cookie(r.cfg.PortalCookie)
	if err != nil || strings.TrimSpace(c.Value) == "" {
		return identitydomain.None, ErrUnauthenticated
	}
	ps, err := r.portal.GetByTokenHash(ctx, security.HashSessionToken(strings.TrimSpace(c.Value)))
	if err != nil {
		log.Printf("identity: portal session lookup: %v", err)
		return identitydomain.None, ErrUnauthenticated
	}
	if ps == nil || ps.OrderID == "" {
		return identitydomain.None, ErrUnauthenticated
	}
	id := identitydomain.NewPortal(&identitydomain.Portal{
		DeliveryID:   ps.DeliveryID,
		OrderID:      ps.OrderID,
		Contact:      ps.Contact,
		CustomerName: ps.CustomerName,
		ExpiresAt:    ps.ExpiresAt,
	})
	if ps.Expired(r.nowF()) {
		return id, ErrPortalSessionExpired
	}
	return id, nil
}

// staffToken returns the staff token from the session cookie, falling back to a Bearer Authorization header.
func staffToken(req *http.Request, cookieName string) string {
	if cookieName != "" {
		if c, err := req.Cookie(cookieName); err == nil && strings.TrimSpace(c.Value) != "" {
			return strings.TrimSpace(c.Value)
		}
	}
	return extractBearer(req.Header.Get("Authorization"))
}

func extractBearer(v string) string {
	const prefix = "bearer "
	if len(v) < len(prefix) || !strings.EqualFold(v[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(v[len(prefix):])
}
