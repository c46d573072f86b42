package repository

import (
	"context"
	"time"

	"laundry-ops/backend/internal/session/domain"
)

// Repository defines persistence for staff sessions.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	Create(ctx context.Context, s *domain.Session) error
	UpdateLastSeen(ctx context.Context, id string, at time.Time) error
}
