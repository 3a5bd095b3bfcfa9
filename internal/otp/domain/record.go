package domain

import "time"

// Record is the outstanding one-time code for one email.
type Record struct {
	Code      string
	Attempts  int
	ExpiresAt time.Time
}

// Expired reports whether the validity window has elapsed at now.
// The code is still accepted at exactly ExpiresAt.
func (r *Record) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
