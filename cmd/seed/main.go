// seed inserts development sample data for local testing. Run via go run ./cmd/seed.
// Idempotent: skips inserts if the dev admin (dev-admin-001) already exists.
// Needs JWT_PRIVATE_KEY to mint staff tokens for the seeded sessions.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	flag "github.com/spf13/pflag"

	"laundry-ops/backend/internal/config"
	"laundry-ops/backend/internal/db"
	portaldomain "laundry-ops/backend/internal/portal/domain"
	portalrepo "laundry-ops/backend/internal/portal/repository"
	"laundry-ops/backend/internal/security"
	sessiondomain "laundry-ops/backend/internal/session/domain"
	sessionrepo "laundry-ops/backend/internal/session/repository"
	userdomain "laundry-ops/backend/internal/user/domain"
	userrepo "laundry-ops/backend/internal/user/repository"
)

const (
	devAdminID   = "dev-admin-001"
	devDriverID  = "dev-driver-001"
	devCashierID = "dev-cashier-001"
	devBranchID  = "dev-branch-001"
)

func main() {
	orderID := flag.String("order-id", "ORD-1001", "Order id for the seeded delivery and portal session")
	portalTTL := flag.Duration("portal-ttl", 24*time.Hour, "Lifetime of the seeded portal session")
	dropLat := flag.Float64("dropoff-lat", 29.3759, "Drop-off latitude of the seeded delivery")
	dropLng := flag.Float64("dropoff-lng", 47.9774, "Drop-off longitude of the seeded delivery")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}
	signer, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		log.Fatalf("JWT_PRIVATE_KEY: %v", err)
	}
	tokens := security.NewTokenProvider(signer, signer.Public(), cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	users := userrepo.NewPostgresRepository(conn)
	sessions := sessionrepo.NewPostgresRepository(conn)
	portal := portalrepo.NewPostgresRepository(conn)

	existing, err := users.GetByID(ctx, devAdminID)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Printf("Seed already applied (%s exists). Skipping.", devAdminID)
		os.Exit(0)
	}

	now := time.Now().UTC()
	staff := []*userdomain.User{
		{ID: devAdminID, Email: "admin@example.com", Name: "Dev Admin", Role: userdomain.RoleAdmin, BranchID: devBranchID},
		{ID: devDriverID, Email: "driver@example.com", Name: "Dev Driver", Role: userdomain.RoleDriver, BranchID: devBranchID},
		{ID: devCashierID, Email: "cashier@example.com", Name: "Dev Cashier", Role: userdomain.RoleCashier, BranchID: devBranchID},
	}
	cookies := make(map[string]string, len(staff))
	for _, u := range staff {
		u.Status = userdomain.UserStatusActive
		u.CreatedAt = now
		u.UpdatedAt = now
		if err := users.Create(ctx, u); err != nil {
			log.Fatalf("create user %s: %v", u.ID, err)
		}
		sess := &sessiondomain.Session{
			ID:        uuid.NewString(),
			UserID:    u.ID,
			BranchID:  u.BranchID,
			ExpiresAt: now.Add(cfg.AccessTTL()),
			CreatedAt: now,
		}
		if err := sessions.Create(ctx, sess); err != nil {
			log.Fatalf("create session for %s: %v", u.ID, err)
		}
		tok, _, err := tokens.Issue(sess.ID, u.ID, u.BranchID)
		if err != nil {
			log.Fatalf("issue token for %s: %v", u.ID, err)
		}
		cookies[string(u.Role)] = tok
	}

	deliveryID := uuid.NewString()
	if _, err := conn.ExecContext(ctx, `
		INSERT INTO deliveries (id, order_id, driver_id, status, dropoff_lat, dropoff_lng, created_at, updated_at)
		VALUES ($1, $2, $3, 'out_for_delivery', $4, $5, $6, $6)`,
		deliveryID, *orderID, devDriverID, *dropLat, *dropLng, now,
	); err != nil {
		log.Fatalf("create delivery: %v", err)
	}

	portalToken, err := security.GenerateSessionToken()
	if err != nil {
		log.Fatalf("portal token: %v", err)
	}
	expiresAt := now.Add(*portalTTL)
	if err := portal.Put(ctx, &portaldomain.Session{
		TokenHash:    security.HashSessionToken(portalToken),
		DeliveryID:   deliveryID,
		OrderID:      *orderID,
		Contact:      "+96550000000",
		CustomerName: "Dev Customer",
		ExpiresAt:    &expiresAt,
		CreatedAt:    now,
	}); err != nil {
		log.Fatalf("create portal session: %v", err)
	}

	log.Println("Seed completed successfully.")
	for _, role := range []userdomain.Role{userdomain.RoleAdmin, userdomain.RoleDriver, userdomain.RoleCashier} {
		fmt.Printf("%-8s cookie: %s=%s\n", role, cfg.StaffSessionCookie, cookies[string(role)])
	}
	fmt.Printf("portal   cookie: %s=%s (order %s)\n", cfg.PortalSessionCookie, portalToken, *orderID)
}
