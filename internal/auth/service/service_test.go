package service

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"otp-session-auth/internal/analytics"
	"otp-session-auth/internal/otp"
	otprepo "otp-session-auth/internal/otp/repository"
	"otp-session-auth/internal/policy/engine"
	"otp-session-auth/internal/security"
	"otp-session-auth/internal/session"
	"otp-session-auth/internal/session/domain"
	sessionrepo "otp-session-auth/internal/session/repository"
)

type captureSink struct {
	mu    sync.Mutex
	kinds []analytics.Kind
	attrs []map[string]string
}

func (s *captureSink) Record(_ context.Context, kind analytics.Kind, attrs map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kinds = append(s.kinds, kind)
	s.attrs = append(s.attrs, attrs)
}

func (s *captureSink) find(kind analytics.Kind) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, k := range s.kinds {
		if k == kind {
			return s.attrs[i]
		}
	}
	return nil
}

func (s *captureSink) count(kind analytics.Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, k := range s.kinds {
		if k == kind {
			n++
		}
	}
	return n
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type denyDomain struct{ domain string }

func (d denyDomain) AllowEmail(_ context.Context, email string) (engine.Decision, error) {
	if strings.HasSuffix(email, "@"+d.domain) {
		return engine.Decision{Allowed: false, Reason: "domain blocked"}, nil
	}
	return engine.Decision{Allowed: true}, nil
}

type brokenPolicy struct{}

func (brokenPolicy) AllowEmail(context.Context, string) (engine.Decision, error) {
	return engine.Decision{}, errors.New("policy unavailable")
}

type fixture struct {
	svc   *AuthService
	sink  *captureSink
	clock *fakeClock
	repo  *sessionrepo.MemoryRepository
	code  string
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		sink:  &captureSink{},
		clock: &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		repo:  sessionrepo.NewMemoryRepository(),
		code:  "123456",
	}
	mgr := otp.NewManager(otprepo.NewMemoryRepository(), f.sink,
		otp.WithClock(f.clock.Now),
		otp.WithCodeGenerator(func() (string, error) { return f.code, nil }),
	)
	tokens, err := security.NewTestTokenProvider()
	require.NoError(t, err)

	opts = append([]Option{WithClock(f.clock.Now), WithTokens(tokens)}, opts...)
	svc, err := NewAuthService(mgr, session.NewStore(f.repo), f.sink, opts...)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func TestRequestCode(t *testing.T) {
	f := newFixture(t)
	req, err := f.svc.RequestCode(context.Background(), "  user@example.com ")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", req.Email)
	assert.Equal(t, "123456", req.Code)
	assert.Equal(t, f.clock.Now().Add(otp.DefaultValidity), req.ExpiresAt)
	assert.Equal(t, "123456", f.sink.find(analytics.KindOTPGenerated)[analytics.AttrCode])
}

func TestRequestCode_InvalidEmail(t *testing.T) {
	f := newFixture(t)
	for _, email := range []string{"", "   ", "not-an-email", "a@"} {
		_, err := f.svc.RequestCode(context.Background(), email)
		require.ErrorIs(t, err, ErrInvalidInput, "email %q", email)
		var ve ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Contains(t, ve, "email")
	}
}

func TestRequestCode_PolicyDenied(t *testing.T) {
	f := newFixture(t, WithPolicy(denyDomain{domain: "blocked.test"}))
	_, err := f.svc.RequestCode(context.Background(), "x@blocked.test")
	require.ErrorIs(t, err, ErrEmailNotAllowed)
	assert.Contains(t, err.Error(), "domain blocked")

	_, err = f.svc.RequestCode(context.Background(), "x@example.com")
	require.NoError(t, err)
}

func TestRequestCode_PolicyErrorFailsOpen(t *testing.T) {
	f := newFixture(t, WithPolicy(brokenPolicy{}))
	_, err := f.svc.RequestCode(context.Background(), "x@example.com")
	require.NoError(t, err)
}

func TestRequestCode_BlockedAfterExhaustingAttempts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.RequestCode(ctx, "user@example.com")
	require.NoError(t, err)
	for i := 0; i < otp.DefaultMaxAttempts; i++ {
		v, err := f.svc.VerifyCode(ctx, "user@example.com", "000000")
		require.NoError(t, err)
		require.False(t, v.Result.Success)
	}

	blocked, err := f.svc.IsBlocked(ctx, "user@example.com")
	require.NoError(t, err)
	assert.True(t, blocked)

	_, err = f.svc.RequestCode(ctx, "user@example.com")
	require.ErrorIs(t, err, ErrBlocked)

	// Resend issues a fresh code and clears the block.
	_, err = f.svc.ResendCode(ctx, "user@example.com")
	require.NoError(t, err)
	blocked, err = f.svc.IsBlocked(ctx, "user@example.com")
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestVerifyCode_Success(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.RequestCode(ctx, "user@example.com")
	require.NoError(t, err)

	v, err := f.svc.VerifyCode(ctx, "user@example.com", "123456")
	require.NoError(t, err)
	require.True(t, v.Result.Success)
	require.NotNil(t, v.Session)
	assert.Equal(t, "user@example.com", v.Session.Email)
	assert.Equal(t, f.clock.Now(), v.Session.LoginTimestamp)
	assert.NotEmpty(t, v.Session.ID)
	assert.NotEmpty(t, v.Token)

	require.NoError(t, f.svc.Wait(ctx))
	stored := f.svc.Resume(ctx, v.Session.ID)
	require.NotNil(t, stored)
	assert.Equal(t, v.Session.Email, stored.Email)
	assert.True(t, stored.LoginTimestamp.Equal(v.Session.LoginTimestamp))

	got, err := f.svc.Authenticate(ctx, v.Token)
	require.NoError(t, err)
	assert.Equal(t, v.Session.ID, got.ID)
}

func TestVerifyCode_Rejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.RequestCode(ctx, "user@example.com")
	require.NoError(t, err)

	v, err := f.svc.VerifyCode(ctx, "user@example.com", "654321")
	require.NoError(t, err)
	assert.False(t, v.Result.Success)
	assert.Equal(t, otp.ReasonIncorrectCode, v.Result.Reason)
	assert.Equal(t, 2, v.Result.Remaining)
	assert.Nil(t, v.Session)
	assert.Empty(t, v.Token)
}

func TestVerifyCode_Expired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.RequestCode(ctx, "user@example.com")
	require.NoError(t, err)
	f.clock.Advance(otp.DefaultValidity + time.Second)

	v, err := f.svc.VerifyCode(ctx, "user@example.com", "123456")
	require.NoError(t, err)
	assert.Equal(t, otp.ReasonExpired, v.Result.Reason)
}

func TestVerifyCode_InvalidInput(t *testing.T) {
	f := newFixture(t)
	testCases := []struct {
		name, email, code, field string
	}{
		{"short code", "user@example.com", "12345", "code"},
		{"letters", "user@example.com", "12a456", "code"},
		{"empty code", "user@example.com", "", "code"},
		{"bad email", "nope", "123456", "email"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.VerifyCode(context.Background(), tc.email, tc.code)
			require.ErrorIs(t, err, ErrInvalidInput)
			var ve ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, ve, tc.field)
		})
	}
}

func TestVerifyCode_WithoutTokens(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithTokens(nil))
	_, err := f.svc.RequestCode(ctx, "user@example.com")
	require.NoError(t, err)
	v, err := f.svc.VerifyCode(ctx, "user@example.com", "123456")
	require.NoError(t, err)
	require.True(t, v.Result.Success)
	assert.Empty(t, v.Token)

	_, err = f.svc.Authenticate(ctx, "anything")
	require.ErrorIs(t, err, ErrInvalidSession)
}

func TestAuthenticate_InvalidToken(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Authenticate(context.Background(), "garbage")
	require.ErrorIs(t, err, ErrInvalidSession)
	_, err = f.svc.Authenticate(context.Background(), "")
	require.ErrorIs(t, err, ErrInvalidSession)
}

func TestFixedSlotAndLogout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithFixedSlot(session.DefaultKey))
	_, err := f.svc.RequestCode(ctx, "user@example.com")
	require.NoError(t, err)
	v, err := f.svc.VerifyCode(ctx, "user@example.com", "123456")
	require.NoError(t, err)
	require.NoError(t, f.svc.Wait(ctx))

	assert.Equal(t, session.DefaultKey, f.svc.SlotKey(v.Session))
	resumed := f.svc.Resume(ctx, session.DefaultKey)
	require.NotNil(t, resumed)
	assert.Equal(t, v.Session.ID, resumed.ID)

	f.clock.Advance(65 * time.Second)
	st := f.svc.Logout(ctx, session.DefaultKey, resumed)
	assert.Equal(t, int64(65), st.ElapsedSeconds)
	assert.Equal(t, "01:05", st.FormattedDuration)

	logout := f.sink.find(analytics.KindLogout)
	require.NotNil(t, logout)
	assert.Equal(t, "user@example.com", logout[analytics.AttrEmail])
	assert.Equal(t, "01:05", logout[analytics.AttrDuration])

	assert.Nil(t, f.svc.Resume(ctx, session.DefaultKey))
	assert.Equal(t, 0, f.repo.Len())
}

func TestLogout_EndsTokenAuthentication(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.RequestCode(ctx, "user@example.com")
	require.NoError(t, err)
	v, err := f.svc.VerifyCode(ctx, "user@example.com", "123456")
	require.NoError(t, err)
	require.NoError(t, f.svc.Wait(ctx))

	sess, err := f.svc.Authenticate(ctx, v.Token)
	require.NoError(t, err)
	f.svc.Logout(ctx, f.svc.SlotKey(sess), sess)
	assert.Equal(t, 0, f.repo.Len())

	_, err = f.svc.Authenticate(ctx, v.Token)
	require.ErrorIs(t, err, ErrInvalidSession)
	assert.Equal(t, 1, f.sink.count(analytics.KindLogout))
}

type gatedSessionRepo struct {
	sessionrepo.Repository
	release chan struct{}
}

func (r *gatedSessionRepo) Save(ctx context.Context, key string, s *domain.Session) error {
	<-r.release
	return r.Repository.Save(ctx, key, s)
}

func TestAuthenticate_UsesClaimsWhileSaveInFlight(t *testing.T) {
	ctx := context.Background()
	repo := &gatedSessionRepo{Repository: sessionrepo.NewMemoryRepository(), release: make(chan struct{})}
	mgr := otp.NewManager(otprepo.NewMemoryRepository(), nil,
		otp.WithCodeGenerator(func() (string, error) { return "123456", nil }),
	)
	tokens, err := security.NewTestTokenProvider()
	require.NoError(t, err)
	svc, err := NewAuthService(mgr, session.NewStore(repo), nil, WithTokens(tokens))
	require.NoError(t, err)

	_, err = svc.RequestCode(ctx, "user@example.com")
	require.NoError(t, err)
	v, err := svc.VerifyCode(ctx, "user@example.com", "123456")
	require.NoError(t, err)

	got, err := svc.Authenticate(ctx, v.Token)
	require.NoError(t, err)
	assert.Equal(t, v.Session.ID, got.ID)
	assert.Equal(t, "user@example.com", got.Email)

	close(repo.release)
	require.NoError(t, svc.Wait(ctx))
	got, err = svc.Authenticate(ctx, v.Token)
	require.NoError(t, err)
	assert.Equal(t, v.Session.ID, got.ID)
}

func TestAuthenticate_RejectsSupersededFixedSlotToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithFixedSlot(session.DefaultKey))
	_, err := f.svc.RequestCode(ctx, "user@example.com")
	require.NoError(t, err)
	first, err := f.svc.VerifyCode(ctx, "user@example.com", "123456")
	require.NoError(t, err)
	require.NoError(t, f.svc.Wait(ctx))
	_, err = f.svc.RequestCode(ctx, "user@example.com")
	require.NoError(t, err)
	second, err := f.svc.VerifyCode(ctx, "user@example.com", "123456")
	require.NoError(t, err)
	require.NoError(t, f.svc.Wait(ctx))

	_, err = f.svc.Authenticate(ctx, first.Token)
	require.ErrorIs(t, err, ErrInvalidSession)
	got, err := f.svc.Authenticate(ctx, second.Token)
	require.NoError(t, err)
	assert.Equal(t, second.Session.ID, got.ID)
}

func TestVerifyCode_SigningFailureKeepsCode(t *testing.T) {
	ctx := context.Background()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	f := newFixture(t, WithTokens(security.NewTokenProvider(priv, pub, "iss", "aud", time.Hour)))
	_, err = f.svc.RequestCode(ctx, "user@example.com")
	require.NoError(t, err)

	_, err = f.svc.VerifyCode(ctx, "user@example.com", "123456")
	require.Error(t, err)
	assert.Nil(t, f.sink.find(analytics.KindOTPValidationSuccess))

	f.svc.tokens = nil
	v, err := f.svc.VerifyCode(ctx, "user@example.com", "123456")
	require.NoError(t, err)
	assert.True(t, v.Result.Success)
}

func TestStatusAt(t *testing.T) {
	login := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	sess := &domain.Session{Email: "user@example.com", LoginTimestamp: login}

	st := StatusAt(sess, login.Add(3600*time.Second))
	assert.Equal(t, int64(3600), st.ElapsedSeconds)
	assert.Equal(t, "01:00:00", st.FormattedDuration)

	st = StatusAt(sess, login.Add(-time.Minute))
	assert.Equal(t, int64(0), st.ElapsedSeconds)
	assert.Equal(t, "00:00", st.FormattedDuration)
}
