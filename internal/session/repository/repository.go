// Package repository persists the active session under a slot key.
package repository

import (
	"context"

	"otp-session-auth/internal/session/domain"
)

// Repository stores one session per key.
type Repository interface {
	// Save creates or replaces the session stored under key.
	Save(ctx context.Context, key string, s *domain.Session) error
	// Load returns the session stored under key, or nil if none exists.
	Load(ctx context.Context, key string) (*domain.Session, error)
	// Clear removes the session under key. Clearing an empty slot is not an error.
	Clear(ctx context.Context, key string) error
}
