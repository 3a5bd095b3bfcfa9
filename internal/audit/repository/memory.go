package repository

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"otp-session-auth/internal/audit/domain"
)

// MemoryRepository keeps audit logs in memory. List orders them by creation time, then ID.
type MemoryRepository struct {
	mu   sync.RWMutex
	logs []*domain.AuditLog
}

// NewMemoryRepository returns an empty in-memory audit repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) List(ctx context.Context, f domain.Filter, limit, offset int32) ([]*domain.AuditLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var filtered []*domain.AuditLog
	for _, a := range r.logs {
		if f.Matches(a) {
			filtered = append(filtered, a)
		}
	}
	slices.SortStableFunc(filtered, func(a, b *domain.AuditLog) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	start := int(offset)
	if start > len(filtered) {
		start = len(filtered)
	}
	end := start + int(limit)
	if end > len(filtered) {
		end = len(filtered)
	}
	out := make([]*domain.AuditLog, 0, end-start)
	for _, a := range filtered[start:end] {
		out = append(out, clone(a))
	}
	return out, nil
}

func (r *MemoryRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, clone(a))
	return nil
}

func (r *MemoryRepository) Clear(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := int64(len(r.logs))
	r.logs = nil
	return n, nil
}

func clone(a *domain.AuditLog) *domain.AuditLog {
	cp := *a
	if a.Details != nil {
		cp.Details = make(map[string]string, len(a.Details))
		for k, v := range a.Details {
			cp.Details[k] = v
		}
	}
	return &cp
}
