package repository

import (
	"context"

	"otp-session-auth/internal/audit/domain"
)

// Repository defines persistence for audit logs.
type Repository interface {
	// List returns matching logs ordered by creation time, then ID.
	List(ctx context.Context, f domain.Filter, limit, offset int32) ([]*domain.AuditLog, error)
	Create(ctx context.Context, a *domain.AuditLog) error
	// Clear removes every log and returns how many were removed.
	Clear(ctx context.Context) (int64, error)
}
