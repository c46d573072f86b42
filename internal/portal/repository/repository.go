package repository

import (
	"context"

	"laundry-ops/backend/internal/portal/domain"
)

// Repository defines lookup of portal sessions by token hash.
// GetByTokenHash returns (nil, nil) for unknown tokens. Expired sessions are returned as stored;
// callers decide what expiry means.
type Repository interface {
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error)
	Put(ctx context.Context, s *domain.Session) error
}
