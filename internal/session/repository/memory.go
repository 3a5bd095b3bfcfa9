package repository

import (
	"context"
	"sync"

	"otp-session-auth/internal/session/domain"
)

// MemoryRepository keeps sessions in process memory.
type MemoryRepository struct {
	mu sync.RWMutex
	m  map[string]domain.Session
}

// NewMemoryRepository returns an empty in-memory session repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{m: make(map[string]domain.Session)}
}

func (r *MemoryRepository) Save(ctx context.Context, key string, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[key] = *s
	return nil
}

func (r *MemoryRepository) Load(ctx context.Context, key string) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.m[key]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r *MemoryRepository) Clear(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, key)
	return nil
}

// Len returns the number of stored sessions.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.m)
}
