// Package audit persists the analytics trail so it can be listed and cleared.
package audit

import (
	"context"
	"fmt"

	"otp-session-auth/internal/analytics"
	"otp-session-auth/internal/audit/domain"
	auditrepo "otp-session-auth/internal/audit/repository"
)

const (
	// DefaultListLimit is used when List is called with a non-positive limit.
	DefaultListLimit = 50
	// MaxListLimit caps a single page.
	MaxListLimit = 500
)

// Logger is an analytics.EventEmitter that writes each event to the audit repository.
type Logger struct {
	repo auditrepo.Repository
}

// NewLogger returns a Logger that persists to repo.
func NewLogger(repo auditrepo.Repository) *Logger {
	return &Logger{repo: repo}
}

// Emit writes one audit log entry. The email attribute is also stored in its
// own column for filtering.
func (l *Logger) Emit(ctx context.Context, event *analytics.Event) error {
	if l.repo == nil || event == nil {
		return nil
	}
	entry := &domain.AuditLog{
		ID:        event.ID,
		Event:     event.Kind.String(),
		Email:     event.Attributes[analytics.AttrEmail],
		Details:   event.Attributes,
		CreatedAt: event.CreatedAt.UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		return fmt.Errorf("audit: failed to log event %s: %w", event.Kind, err)
	}
	return nil
}

// List returns persisted events oldest first.
func (l *Logger) List(ctx context.Context, f domain.Filter, limit, offset int32) ([]*domain.AuditLog, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return l.repo.List(ctx, f, limit, offset)
}

// Clear deletes every persisted event.
func (l *Logger) Clear(ctx context.Context) (int64, error) {
	return l.repo.Clear(ctx)
}
