package domain

import "time"

// AuditLog is one persisted analytics event.
type AuditLog struct {
	ID        string
	Event     string
	Email     string
	Details   map[string]string
	CreatedAt time.Time
}

// Filter narrows a listing. Empty fields match everything.
type Filter struct {
	Email string
	Event string
}

// Matches reports whether a passes the filter.
func (f Filter) Matches(a *AuditLog) bool {
	if f.Email != "" && a.Email != f.Email {
		return false
	}
	if f.Event != "" && a.Event != f.Event {
		return false
	}
	return true
}
