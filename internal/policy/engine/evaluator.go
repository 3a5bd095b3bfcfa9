// Package engine decides whether an email may request a sign-in code.
package engine

import "context"

// Decision is the outcome of an email policy evaluation.
type Decision struct {
	Allowed bool
	// Reason explains a denial. Empty when allowed.
	Reason string
}

// EmailEvaluator evaluates the sign-in policy for an email address.
type EmailEvaluator interface {
	AllowEmail(ctx context.Context, email string) (Decision, error)
}

// AllowAll is an EmailEvaluator that admits every address.
type AllowAll struct{}

func (AllowAll) AllowEmail(context.Context, string) (Decision, error) {
	return Decision{Allowed: true}, nil
}
