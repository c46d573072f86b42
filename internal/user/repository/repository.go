package repository

import (
	"context"

	"laundry-ops/backend/internal/user/domain"
)

// Repository defines persistence for staff users.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
}
