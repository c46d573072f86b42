package repository

import (
	"context"
	"database/sql"
	"errors"

	"laundry-ops/backend/internal/portal/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a portal session repository backed by the portal_sessions table.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByTokenHash returns the session for tokenHash, or nil if not found.
func (r *PostgresRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT token_hash, delivery_id, order_id, contact, customer_name, expires_at, created_at
		FROM portal_sessions WHERE token_hash = $1`, tokenHash)
	var (
		s         domain.Session
		name      sql.NullString
		expiresAt sql.NullTime
	)
	if err := row.Scan(&s.TokenHash, &s.DeliveryID, &s.OrderID, &s.Contact, &name, &expiresAt, &s.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	s.CustomerName = name.String
	if expiresAt.Valid {
		t := expiresAt.Time
		s.ExpiresAt = &t
	}
	return &s, nil
}

// Put inserts or replaces the session keyed by its token hash.
func (r *PostgresRepository) Put(ctx context.Context, s *domain.Session) error {
	var expiresAt sql.NullTime
	if s.ExpiresAt != nil {
		expiresAt = sql.NullTime{Time: *s.ExpiresAt, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO portal_sessions (token_hash, delivery_id, order_id, contact, customer_name, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (token_hash) DO UPDATE SET
			delivery_id = EXCLUDED.delivery_id,
			order_id = EXCLUDED.order_id,
			contact = EXCLUDED.contact,
			customer_name = EXCLUDED.customer_name,
			expires_at = EXCLUDED.expires_at`,
		s.TokenHash, s.DeliveryID, s.OrderID, s.Contact,
		sql.NullString{String: s.CustomerName, Valid: s.CustomerName != ""},
		expiresAt, s.CreatedAt,
	)
	return err
}
