package repository

import (
	"context"
	"sync"

	"otp-session-auth/internal/otp/domain"
)

// MemoryRepository is an in-process Repository. Its lifetime is that of the
// server or CLI process that owns it.
type MemoryRepository struct {
	mu sync.RWMutex
	m  map[string]domain.Record
}

// NewMemoryRepository returns an empty in-memory OTP repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{m: make(map[string]domain.Record)}
}

// Put stores a copy of r for email.
func (s *MemoryRepository) Put(ctx context.Context, email string, r *domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[email] = *r
	return nil
}

// Get returns a copy of the record for email, or nil if none exists.
func (s *MemoryRepository) Get(ctx context.Context, email string) (*domain.Record, error) {
	s.mu.RLock()
	r, ok := s.m[email]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return &r, nil
}

// IncrementAttempts adds one failed attempt to the record for email.
func (s *MemoryRepository) IncrementAttempts(ctx context.Context, email string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.m[email]
	if !ok {
		return 0, ErrNotFound
	}
	r.Attempts++
	s.m[email] = r
	return r.Attempts, nil
}

// Delete removes the record for email.
func (s *MemoryRepository) Delete(ctx context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, email)
	return nil
}

// Len returns the number of stored records.
func (s *MemoryRepository) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}
