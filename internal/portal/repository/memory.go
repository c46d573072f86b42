package repository

import (
	"context"
	"sync"

	"laundry-ops/backend/internal/portal/domain"
)

// MemoryRepository is an in-memory Repository for development and tests.
type MemoryRepository struct {
	mu sync.RWMutex
	m  map[string]domain.Session
}

// NewMemoryRepository returns an empty in-memory portal session store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{m: make(map[string]domain.Session)}
}

// GetByTokenHash returns a copy of the stored session, or nil if missing.
func (r *MemoryRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	r.mu.RLock()
	s, ok := r.m[tokenHash]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// Put stores a copy of s keyed by its token hash.
func (r *MemoryRepository) Put(ctx context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[s.TokenHash] = *s
	return nil
}
