package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"laundry-ops/backend/internal/session/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, branch_id, expires_at, revoked_at, last_seen_at, ip_address, created_at
		FROM staff_sessions WHERE id = $1`, id)
	var (
		s          domain.Session
		branchID   sql.NullString
		revokedAt  sql.NullTime
		lastSeenAt sql.NullTime
		ip         sql.NullString
	)
	if err := row.Scan(&s.ID, &s.UserID, &branchID, &s.ExpiresAt, &revokedAt, &lastSeenAt, &ip, &s.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	s.BranchID = branchID.String
	s.IPAddress = ip.String
	s.RevokedAt = nullTimeToPtr(revokedAt)
	s.LastSeenAt = nullTimeToPtr(lastSeenAt)
	return &s, nil
}

// Create persists the session to the database. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO staff_sessions (id, user_id, branch_id, expires_at, revoked_at, last_seen_at, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID, s.UserID,
		sql.NullString{String: s.BranchID, Valid: s.BranchID != ""},
		s.ExpiresAt,
		timeToNullTime(s.RevokedAt),
		timeToNullTime(s.LastSeenAt),
		sql.NullString{String: s.IPAddress, Valid: s.IPAddress != ""},
		s.CreatedAt,
	)
	return err
}

// UpdateLastSeen sets the session's last-seen timestamp for the given id. Returns an error if the update fails.
func (r *PostgresRepository) UpdateLastSeen(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE staff_sessions SET last_seen_at = $2 WHERE id = $1`, id, at)
	return err
}

func nullTimeToPtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func timeToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
