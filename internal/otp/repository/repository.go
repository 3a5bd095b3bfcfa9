// Package repository stores outstanding one-time codes keyed by email.
package repository

import (
	"context"
	"errors"

	"otp-session-auth/internal/otp/domain"
)

// ErrNotFound is returned by IncrementAttempts when no record exists for the email.
var ErrNotFound = errors.New("otp record not found")

// Repository holds at most one record per email. Expired or exhausted records
// are kept until overwritten by Put or removed by Delete.
type Repository interface {
	// Put creates or replaces the record for email.
	Put(ctx context.Context, email string, r *domain.Record) error
	// Get returns the record for email, or nil if none exists.
	Get(ctx context.Context, email string) (*domain.Record, error)
	// IncrementAttempts adds one failed attempt and returns the new count.
	IncrementAttempts(ctx context.Context, email string) (int, error)
	// Delete removes the record for email. Deleting a missing record is not an error.
	Delete(ctx context.Context, email string) error
}
