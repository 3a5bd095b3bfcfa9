// Package service drives the email code sign-in flow: request a code, verify
// it, keep the resulting session and end it on logout.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"otp-session-auth/internal/analytics"
	"otp-session-auth/internal/otp"
	"otp-session-auth/internal/policy/engine"
	"otp-session-auth/internal/security"
	"otp-session-auth/internal/session"
	"otp-session-auth/internal/session/domain"
	"otp-session-auth/internal/sessiontimer"
)

// Sentinel errors for the auth service; handlers map them to gRPC codes.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrBlocked         = errors.New("too many failed attempts, please try again later")
	ErrEmailNotAllowed = errors.New("email not allowed")
	ErrInvalidSession  = errors.New("invalid or expired session")
)

// CodeRequest is the outcome of issuing a code. Code is shown to the user in
// place of an email delivery.
type CodeRequest struct {
	Email     string
	Code      string
	ExpiresAt time.Time
}

// Verification is the outcome of VerifyCode. Session and Token are set only
// when Result.Success is true.
type Verification struct {
	Result         otp.Result
	Session        *domain.Session
	Token          string
	TokenExpiresAt time.Time
}

// SessionStatus is the elapsed-time view of a session.
type SessionStatus struct {
	Email             string
	LoginTimestamp    time.Time
	ElapsedSeconds    int64
	FormattedDuration string
}

// StatusAt returns the status of sess observed at now.
func StatusAt(sess *domain.Session, now time.Time) SessionStatus {
	snap := sessiontimer.Compute(sess.LoginTimestamp, now)
	return SessionStatus{
		Email:             sess.Email,
		LoginTimestamp:    sess.LoginTimestamp,
		ElapsedSeconds:    snap.ElapsedSeconds,
		FormattedDuration: snap.FormattedDuration,
	}
}

type emailInput struct {
	Email string `validate:"required,email"`
}

type verifyInput struct {
	Email string `validate:"required,email"`
	Code  string `validate:"required,len=6,numeric"`
}

// Option configures an AuthService.
type Option func(*AuthService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *AuthService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithPolicy sets the email sign-in policy. Default admits every address.
func WithPolicy(p engine.EmailEvaluator) Option {
	return func(s *AuthService) {
		if p != nil {
			s.policy = p
		}
	}
}

// WithTokens enables signed session tokens on successful verification.
func WithTokens(t *security.TokenProvider) Option {
	return func(s *AuthService) { s.tokens = t }
}

// WithFixedSlot stores every session under key instead of under its session ID.
// Single-user clients use session.DefaultKey.
func WithFixedSlot(key string) Option {
	return func(s *AuthService) { s.fixedSlot = key }
}

// AuthService implements the sign-in flow on top of the code manager and the
// session store.
type AuthService struct {
	otp       *otp.Manager
	sessions  *session.Store
	sink      analytics.Sink
	policy    engine.EmailEvaluator
	tokens    *security.TokenProvider
	validator *Validator
	fixedSlot string
	now       func() time.Time
}

// NewAuthService returns an AuthService. sink may be nil.
func NewAuthService(otpManager *otp.Manager, sessions *session.Store, sink analytics.Sink, opts ...Option) (*AuthService, error) {
	v, err := NewValidator()
	if err != nil {
		return nil, fmt.Errorf("auth: validator: %w", err)
	}
	if sink == nil {
		sink = analytics.Discard
	}
	s := &AuthService{
		otp:       otpManager,
		sessions:  sessions,
		sink:      sink,
		policy:    engine.AllowAll{},
		validator: v,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RequestCode issues a code for email unless it is blocked by failed attempts
// or by the sign-in policy.
func (s *AuthService) RequestCode(ctx context.Context, email string) (*CodeRequest, error) {
	email = strings.TrimSpace(email)
	if err := s.checkEmail(ctx, email); err != nil {
		return nil, err
	}
	blocked, err := s.otp.IsBlocked(ctx, email)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, ErrBlocked
	}
	return s.issue(ctx, email)
}

// ResendCode replaces the outstanding code for email. It skips the blocked
// check: a fresh code resets the attempt count.
func (s *AuthService) ResendCode(ctx context.Context, email string) (*CodeRequest, error) {
	email = strings.TrimSpace(email)
	if err := s.checkEmail(ctx, email); err != nil {
		return nil, err
	}
	return s.issue(ctx, email)
}

// IsBlocked reports whether email has exhausted the attempts on its code.
func (s *AuthService) IsBlocked(ctx context.Context, email string) (bool, error) {
	return s.otp.IsBlocked(ctx, strings.TrimSpace(email))
}

func (s *AuthService) checkEmail(ctx context.Context, email string) error {
	if err := s.validator.Struct(emailInput{Email: email}); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	decision, err := s.policy.AllowEmail(ctx, email)
	if err != nil {
		log.Warn().Err(err).Str("email", email).Msg("auth: email policy failed, allowing")
		return nil
	}
	if !decision.Allowed {
		return fmt.Errorf("%w: %s", ErrEmailNotAllowed, decision.Reason)
	}
	return nil
}

func (s *AuthService) issue(ctx context.Context, email string) (*CodeRequest, error) {
	code, expiresAt, err := s.otp.Issue(ctx, email)
	if err != nil {
		return nil, err
	}
	return &CodeRequest{Email: email, Code: code, ExpiresAt: expiresAt}, nil
}

// VerifyCode checks code for email. A rejected code is reported in
// Verification.Result with a nil error. On success a new session is saved in
// the background and, when tokens are enabled, a session token is issued.
//
// The token is signed before the code is checked, so a signing failure leaves
// the code unused.
func (s *AuthService) VerifyCode(ctx context.Context, email, code string) (*Verification, error) {
	email = strings.TrimSpace(email)
	code = strings.TrimSpace(code)
	if err := s.validator.Struct(verifyInput{Email: email, Code: code}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	sess := &domain.Session{
		ID:             uuid.New().String(),
		Email:          email,
		LoginTimestamp: s.now().UTC().Truncate(time.Millisecond),
	}
	v := &Verification{Session: sess}
	if s.tokens != nil {
		var err error
		v.Token, v.TokenExpiresAt, err = s.tokens.IssueSession(sess.ID, sess.Email, sess.LoginTimestamp)
		if err != nil {
			return nil, fmt.Errorf("auth: issue session token: %w", err)
		}
	}

	res, err := s.otp.ValidateOtp(ctx, email, code)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return &Verification{Result: res}, nil
	}
	v.Result = res
	s.sessions.Save(s.SlotKey(sess), sess)
	return v, nil
}

// SlotKey returns the store key a session is kept under.
func (s *AuthService) SlotKey(sess *domain.Session) string {
	if s.fixedSlot != "" {
		return s.fixedSlot
	}
	return sess.ID
}

// Resume returns the session persisted under key, or nil when there is none.
func (s *AuthService) Resume(ctx context.Context, key string) *domain.Session {
	return s.sessions.Load(ctx, key)
}

// Authenticate resolves a session token to its persisted session. The token
// claims alone are accepted only while the session's save is still in flight;
// once it is cleared by Logout, or its save gave up, the token is rejected.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.Session, error) {
	if s.tokens == nil || token == "" {
		return nil, ErrInvalidSession
	}
	info, err := s.tokens.ValidateSession(token)
	if err != nil {
		return nil, ErrInvalidSession
	}
	fromToken := &domain.Session{ID: info.SessionID, Email: info.Email, LoginTimestamp: info.LoginTimestamp}
	key := s.SlotKey(fromToken)
	// Checked before Load so a save finishing in between is still seen.
	pending := s.sessions.Pending(key, info.SessionID)
	if stored := s.sessions.Load(ctx, key); stored != nil && stored.ID == info.SessionID {
		return stored, nil
	}
	if pending {
		return fromToken, nil
	}
	return nil, ErrInvalidSession
}

// Status returns the elapsed-time view of sess now.
func (s *AuthService) Status(sess *domain.Session) SessionStatus {
	return StatusAt(sess, s.now())
}

// Logout records the session duration and clears the persisted session under
// key. It returns the final status. Pending saves are drained first so a late
// write cannot bring the session back.
func (s *AuthService) Logout(ctx context.Context, key string, sess *domain.Session) SessionStatus {
	st := s.Status(sess)
	s.sink.Record(ctx, analytics.KindLogout, map[string]string{
		analytics.AttrEmail:    sess.Email,
		analytics.AttrDuration: st.FormattedDuration,
	})
	if err := s.sessions.Wait(ctx); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("auth: pending session save not drained before logout")
	}
	s.sessions.Clear(ctx, key)
	return st
}

// Wait drains background session saves.
func (s *AuthService) Wait(ctx context.Context) error {
	return s.sessions.Wait(ctx)
}
