// Package otp issues and checks the one-time codes used for email sign-in.
package otp

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strconv"
	"sync"
	"time"

	"otp-session-auth/internal/analytics"
	"otp-session-auth/internal/otp/domain"
	"otp-session-auth/internal/otp/repository"
)

const (
	// DefaultValidity is how long a generated code is accepted.
	DefaultValidity = 60 * time.Second
	// DefaultMaxAttempts is the number of wrong guesses tolerated per code.
	DefaultMaxAttempts = 3
)

// Reason tags recorded on OTP_VALIDATION_FAILURE events.
const (
	tagNotFound      = "not_found"
	tagExpired       = "expired"
	tagMaxAttempts   = "max_attempts"
	tagIncorrectCode = "incorrect_code"
)

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithValidity sets the validity window. Non-positive values are ignored.
func WithValidity(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.validity = d
		}
	}
}

// WithMaxAttempts sets the attempt ceiling. Non-positive values are ignored.
func WithMaxAttempts(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxAttempts = n
		}
	}
}

// WithCodeGenerator replaces GenerateCode.
func WithCodeGenerator(gen func() (string, error)) Option {
	return func(m *Manager) {
		if gen != nil {
			m.gen = gen
		}
	}
}

// Manager generates and validates codes against a Repository.
type Manager struct {
	repo        repository.Repository
	sink        analytics.Sink
	now         func() time.Time
	gen         func() (string, error)
	validity    time.Duration
	maxAttempts int
	locks       keyedMutex
}

// NewManager returns a Manager backed by repo. sink may be nil.
func NewManager(repo repository.Repository, sink analytics.Sink, opts ...Option) *Manager {
	if sink == nil {
		sink = analytics.Discard
	}
	m := &Manager{
		repo:        repo,
		sink:        sink,
		now:         time.Now,
		gen:         GenerateCode,
		validity:    DefaultValidity,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Validity returns the configured validity window.
func (m *Manager) Validity() time.Duration { return m.validity }

// MaxAttempts returns the configured attempt ceiling.
func (m *Manager) MaxAttempts() int { return m.maxAttempts }

// GenerateOtp stores a fresh code for email, replacing any previous one, and
// returns it.
func (m *Manager) GenerateOtp(ctx context.Context, email string) (string, error) {
	code, _, err := m.Issue(ctx, email)
	return code, err
}

// Issue is GenerateOtp that also returns the expiry written with the code.
func (m *Manager) Issue(ctx context.Context, email string) (code string, expiresAt time.Time, err error) {
	code, err = m.gen()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("otp: generate code: %w", err)
	}
	unlock := m.locks.lock(email)
	defer unlock()
	rec := &domain.Record{
		Code:      code,
		Attempts:  0,
		ExpiresAt: m.now().Add(m.validity),
	}
	if err := m.repo.Put(ctx, email, rec); err != nil {
		return "", time.Time{}, fmt.Errorf("otp: store code: %w", err)
	}
	m.sink.Record(ctx, analytics.KindOTPGenerated, map[string]string{
		analytics.AttrEmail: email,
		analytics.AttrCode:  code,
	})
	return code, rec.ExpiresAt, nil
}

// ValidateOtp checks candidate against the outstanding code for email.
// Validation failures are reported in the Result; the error is only set when
// the repository fails.
//
// The wrong guess that reaches the attempt ceiling reports
// ReasonAttemptsExhausted with Remaining 0, the same reason every later call
// gets from the ceiling check.
func (m *Manager) ValidateOtp(ctx context.Context, email, candidate string) (Result, error) {
	unlock := m.locks.lock(email)
	defer unlock()

	rec, err := m.repo.Get(ctx, email)
	if err != nil {
		return Result{}, fmt.Errorf("otp: load code: %w", err)
	}
	if rec == nil {
		m.fail(ctx, email, tagNotFound, nil)
		return Result{Reason: ReasonNotFound}, nil
	}
	if rec.Expired(m.now()) {
		m.fail(ctx, email, tagExpired, nil)
		return Result{Reason: ReasonExpired}, nil
	}
	if rec.Attempts >= m.maxAttempts {
		m.fail(ctx, email, tagMaxAttempts, nil)
		return Result{Reason: ReasonAttemptsExhausted}, nil
	}
	if subtle.ConstantTimeCompare([]byte(candidate), []byte(rec.Code)) != 1 {
		attempts, err := m.repo.IncrementAttempts(ctx, email)
		if err != nil {
			return Result{}, fmt.Errorf("otp: record attempt: %w", err)
		}
		m.fail(ctx, email, tagIncorrectCode, map[string]string{
			analytics.AttrAttempts: strconv.Itoa(attempts),
		})
		remaining := m.maxAttempts - attempts
		if remaining <= 0 {
			return Result{Reason: ReasonAttemptsExhausted, Remaining: 0}, nil
		}
		return Result{Reason: ReasonIncorrectCode, Remaining: remaining}, nil
	}

	if err := m.repo.Delete(ctx, email); err != nil {
		return Result{}, fmt.Errorf("otp: consume code: %w", err)
	}
	m.sink.Record(ctx, analytics.KindOTPValidationSuccess, map[string]string{
		analytics.AttrEmail: email,
	})
	return Result{Success: true}, nil
}

// IsBlocked reports whether email has used up its attempts on the outstanding
// code. Expiry alone does not block.
func (m *Manager) IsBlocked(ctx context.Context, email string) (bool, error) {
	rec, err := m.repo.Get(ctx, email)
	if err != nil {
		return false, fmt.Errorf("otp: load code: %w", err)
	}
	return rec != nil && rec.Attempts >= m.maxAttempts, nil
}

func (m *Manager) fail(ctx context.Context, email, reason string, extra map[string]string) {
	attrs := map[string]string{
		analytics.AttrEmail:  email,
		analytics.AttrReason: reason,
	}
	for k, v := range extra {
		attrs[k] = v
	}
	m.sink.Record(ctx, analytics.KindOTPValidationFailure, attrs)
}

// keyedMutex serializes work per key. Entries are dropped once unused.
type keyedMutex struct {
	mu sync.Mutex
	m  map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.m == nil {
		k.m = make(map[string]*keyedEntry)
	}
	e, ok := k.m[key]
	if !ok {
		e = &keyedEntry{}
		k.m[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.m, key)
		}
		k.mu.Unlock()
	}
}
