package handler

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	otpauthv1 "otp-session-auth/api/otpauth/v1"
	"otp-session-auth/internal/auth/service"
	"otp-session-auth/internal/otp"
	otprepo "otp-session-auth/internal/otp/repository"
	"otp-session-auth/internal/security"
	"otp-session-auth/internal/server/interceptors"
	"otp-session-auth/internal/session"
	sessionrepo "otp-session-auth/internal/session/repository"
	"otp-session-auth/internal/sessiontimer"
)

type countingWatchers struct {
	active atomic.Int64
	total  atomic.Int64
}

func (c *countingWatchers) WatchStarted(context.Context) func() {
	c.active.Add(1)
	c.total.Add(1)
	return func() { c.active.Add(-1) }
}

func newTestClient(t *testing.T, opts ...Option) (otpauthv1.AuthServiceClient, *countingWatchers) {
	t.Helper()
	mgr := otp.NewManager(otprepo.NewMemoryRepository(), nil,
		otp.WithCodeGenerator(func() (string, error) { return "424242", nil }))
	tokens, err := security.NewTestTokenProvider()
	require.NoError(t, err)
	authSvc, err := service.NewAuthService(mgr, session.NewStore(sessionrepo.NewMemoryRepository()), nil, service.WithTokens(tokens))
	require.NoError(t, err)

	public := map[string]bool{
		otpauthv1.AuthService_RequestCode_FullMethodName: true,
		otpauthv1.AuthService_ResendCode_FullMethodName:  true,
		otpauthv1.AuthService_VerifyCode_FullMethodName:  true,
		otpauthv1.AuthService_IsBlocked_FullMethodName:   true,
	}
	watchers := &countingWatchers{}
	opts = append([]Option{
		WithReturnCode(true),
		WithWatchObserver(watchers),
		WithTimerOptions(sessiontimer.WithInterval(10 * time.Millisecond)),
	}, opts...)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(interceptors.AuthUnary(authSvc, public)),
		grpc.ChainStreamInterceptor(interceptors.AuthStream(authSvc, public)),
	)
	otpauthv1.RegisterAuthServiceServer(srv, NewAuthServer(authSvc, opts...))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return otpauthv1.NewAuthServiceClient(conn), watchers
}

func bearer(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
}

func TestAuthServer_FullFlow(t *testing.T) {
	ctx := context.Background()
	client, watchers := newTestClient(t)

	reqResp, err := client.RequestCode(ctx, &otpauthv1.RequestCodeRequest{Email: "user@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "424242", reqResp.Code)
	assert.True(t, reqResp.ExpiresAt.After(time.Now()))

	wrong, err := client.VerifyCode(ctx, &otpauthv1.VerifyCodeRequest{Email: "user@example.com", Code: "000000"})
	require.NoError(t, err)
	assert.False(t, wrong.Success)
	assert.Equal(t, "incorrect_code", wrong.Reason)
	assert.Equal(t, int32(2), wrong.RemainingAttempts)
	assert.Equal(t, "Incorrect OTP. 2 attempts remaining.", wrong.Message)

	ok, err := client.VerifyCode(ctx, &otpauthv1.VerifyCodeRequest{Email: "user@example.com", Code: "424242"})
	require.NoError(t, err)
	require.True(t, ok.Success)
	require.NotEmpty(t, ok.SessionToken)
	require.NotNil(t, ok.Session)
	assert.Equal(t, "user@example.com", ok.Session.Email)

	authed := bearer(ctx, ok.SessionToken)
	got, err := client.GetSession(authed, &otpauthv1.GetSessionRequest{})
	require.NoError(t, err)
	assert.Equal(t, ok.Session.SessionID, got.Session.SessionID)
	assert.Equal(t, ok.Session.LoginTimestamp, got.Session.LoginTimestamp)

	watchCtx, cancel := context.WithCancel(authed)
	stream, err := client.WatchSession(watchCtx, &otpauthv1.WatchSessionRequest{})
	require.NoError(t, err)
	first, err := stream.Recv()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, first.ElapsedSeconds, int64(0))
	assert.NotEmpty(t, first.FormattedDuration)
	_, err = stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, int64(1), watchers.total.Load())
	cancel()
	assert.Eventually(t, func() bool { return watchers.active.Load() == 0 }, time.Second, 5*time.Millisecond)

	out, err := client.Logout(authed, &otpauthv1.LogoutRequest{})
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", out.Session.Email)

	_, err = client.GetSession(authed, &otpauthv1.GetSessionRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	_, err = client.Logout(authed, &otpauthv1.LogoutRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestAuthServer_ErrorCodes(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)

	_, err := client.RequestCode(ctx, &otpauthv1.RequestCodeRequest{Email: "not-an-email"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.VerifyCode(ctx, &otpauthv1.VerifyCodeRequest{Email: "user@example.com", Code: "12"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.IsBlocked(ctx, &otpauthv1.IsBlockedRequest{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.GetSession(ctx, &otpauthv1.GetSessionRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	_, err = client.Logout(bearer(ctx, "forged"), &otpauthv1.LogoutRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	nf, err := client.VerifyCode(ctx, &otpauthv1.VerifyCodeRequest{Email: "nobody@example.com", Code: "123456"})
	require.NoError(t, err)
	assert.Equal(t, "not_found", nf.Reason)
	assert.Equal(t, "No OTP requested for this email.", nf.Message)
}

func TestAuthServer_Blocked(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)

	_, err := client.RequestCode(ctx, &otpauthv1.RequestCodeRequest{Email: "user@example.com"})
	require.NoError(t, err)
	for i := 0; i < otp.DefaultMaxAttempts; i++ {
		_, err := client.VerifyCode(ctx, &otpauthv1.VerifyCodeRequest{Email: "user@example.com", Code: "000000"})
		require.NoError(t, err)
	}
	blocked, err := client.IsBlocked(ctx, &otpauthv1.IsBlockedRequest{Email: "user@example.com"})
	require.NoError(t, err)
	assert.True(t, blocked.Blocked)

	_, err = client.RequestCode(ctx, &otpauthv1.RequestCodeRequest{Email: "user@example.com"})
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))

	_, err = client.ResendCode(ctx, &otpauthv1.RequestCodeRequest{Email: "user@example.com"})
	require.NoError(t, err)
}

func TestAuthServer_CodeHiddenByDefault(t *testing.T) {
	client, _ := newTestClient(t, WithReturnCode(false))
	resp, err := client.RequestCode(context.Background(), &otpauthv1.RequestCodeRequest{Email: "user@example.com"})
	require.NoError(t, err)
	assert.Empty(t, resp.Code)
}

func TestAuthServer_NilService(t *testing.T) {
	s := NewAuthServer(nil)
	_, err := s.RequestCode(context.Background(), &otpauthv1.RequestCodeRequest{Email: "a@example.com"})
	assert.Equal(t, codes.Unimplemented, status.Code(err))
	_, err = s.GetSession(context.Background(), &otpauthv1.GetSessionRequest{})
	assert.Equal(t, codes.Unimplemented, status.Code(err))
	_, err = s.Logout(context.Background(), &otpauthv1.LogoutRequest{})
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}
