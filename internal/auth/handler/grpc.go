// Package handler serves AuthService over gRPC.
package handler

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	otpauthv1 "otp-session-auth/api/otpauth/v1"
	"otp-session-auth/internal/auth/service"
	"otp-session-auth/internal/server/interceptors"
	"otp-session-auth/internal/session/domain"
	"otp-session-auth/internal/sessiontimer"
)

// WatchObserver is told when a WatchSession stream starts; the returned func is called when it ends.
type WatchObserver interface {
	WatchStarted(ctx context.Context) (done func())
}

// Option configures an AuthServer.
type Option func(*AuthServer)

// WithReturnCode makes RequestCode and ResendCode return the generated code to the caller.
func WithReturnCode(enabled bool) Option {
	return func(s *AuthServer) { s.returnCode = enabled }
}

// WithWatchObserver reports WatchSession streams to o.
func WithWatchObserver(o WatchObserver) Option {
	return func(s *AuthServer) {
		if o != nil {
			s.watchers = o
		}
	}
}

// WithTimerOptions configures the timers backing WatchSession.
func WithTimerOptions(opts ...sessiontimer.Option) Option {
	return func(s *AuthServer) { s.timerOpts = append(s.timerOpts, opts...) }
}

// AuthServer implements AuthService (proto server) for code sign-in and the session timer.
// Proto: otpauth/v1/auth.proto → internal/auth/handler.
type AuthServer struct {
	otpauthv1.UnimplementedAuthServiceServer
	auth       *service.AuthService
	returnCode bool
	watchers   WatchObserver
	timerOpts  []sessiontimer.Option
}

// NewAuthServer returns a new Auth gRPC server. If auth is nil, all RPCs return Unimplemented.
func NewAuthServer(auth *service.AuthService, opts ...Option) *AuthServer {
	s := &AuthServer{auth: auth, watchers: noopWatchers{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestCode issues a sign-in code for an email that is not blocked.
func (s *AuthServer) RequestCode(ctx context.Context, req *otpauthv1.RequestCodeRequest) (*otpauthv1.RequestCodeResponse, error) {
	if s.auth == nil {
		return nil, status.Error(codes.Unimplemented, "method RequestCode not implemented")
	}
	res, err := s.auth.RequestCode(ctx, req.Email)
	if err != nil {
		return nil, authErrToStatus(err)
	}
	return s.codeResponse(res), nil
}

// ResendCode replaces the outstanding code, resetting the attempt count.
func (s *AuthServer) ResendCode(ctx context.Context, req *otpauthv1.RequestCodeRequest) (*otpauthv1.RequestCodeResponse, error) {
	if s.auth == nil {
		return nil, status.Error(codes.Unimplemented, "method ResendCode not implemented")
	}
	res, err := s.auth.ResendCode(ctx, req.Email)
	if err != nil {
		return nil, authErrToStatus(err)
	}
	return s.codeResponse(res), nil
}

func (s *AuthServer) codeResponse(res *service.CodeRequest) *otpauthv1.RequestCodeResponse {
	out := &otpauthv1.RequestCodeResponse{Email: res.Email, ExpiresAt: res.ExpiresAt}
	if s.returnCode {
		out.Code = res.Code
	}
	return out
}

// VerifyCode checks a code. A wrong, expired or exhausted code is a normal response with Success false.
func (s *AuthServer) VerifyCode(ctx context.Context, req *otpauthv1.VerifyCodeRequest) (*otpauthv1.VerifyCodeResponse, error) {
	if s.auth == nil {
		return nil, status.Error(codes.Unimplemented, "method VerifyCode not implemented")
	}
	v, err := s.auth.VerifyCode(ctx, req.Email, req.Code)
	if err != nil {
		return nil, authErrToStatus(err)
	}
	out := &otpauthv1.VerifyCodeResponse{
		Success:           v.Result.Success,
		Message:           v.Result.Message(),
		RemainingAttempts: int32(v.Result.Remaining),
	}
	if !v.Result.Success {
		out.Reason = v.Result.Reason.String()
		return out, nil
	}
	out.SessionToken = v.Token
	if !v.TokenExpiresAt.IsZero() {
		exp := v.TokenExpiresAt
		out.TokenExpiresAt = &exp
	}
	out.Session = s.sessionStatus(v.Session)
	return out, nil
}

// IsBlocked reports whether an email has used up the attempts on its code.
func (s *AuthServer) IsBlocked(ctx context.Context, req *otpauthv1.IsBlockedRequest) (*otpauthv1.IsBlockedResponse, error) {
	if s.auth == nil {
		return nil, status.Error(codes.Unimplemented, "method IsBlocked not implemented")
	}
	if req.Email == "" {
		return nil, status.Error(codes.InvalidArgument, "email required")
	}
	blocked, err := s.auth.IsBlocked(ctx, req.Email)
	if err != nil {
		return nil, authErrToStatus(err)
	}
	return &otpauthv1.IsBlockedResponse{Blocked: blocked}, nil
}

// GetSession returns the caller's session and its elapsed time.
func (s *AuthServer) GetSession(ctx context.Context, req *otpauthv1.GetSessionRequest) (*otpauthv1.GetSessionResponse, error) {
	if s.auth == nil {
		return nil, status.Error(codes.Unimplemented, "method GetSession not implemented")
	}
	sess, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	return &otpauthv1.GetSessionResponse{Session: s.sessionStatus(sess)}, nil
}

// WatchSession streams the caller's elapsed session time every tick until the client goes away.
func (s *AuthServer) WatchSession(req *otpauthv1.WatchSessionRequest, stream grpc.ServerStreamingServer[otpauthv1.WatchSessionResponse]) error {
	if s.auth == nil {
		return status.Error(codes.Unimplemented, "method WatchSession not implemented")
	}
	ctx := stream.Context()
	sess, err := sessionFrom(ctx)
	if err != nil {
		return err
	}
	done := s.watchers.WatchStarted(ctx)
	defer done()

	timer := sessiontimer.Start(ctx, sess.LoginTimestamp, s.timerOpts...)
	defer timer.Stop()
	for snap := range timer.Updates() {
		if err := stream.Send(&otpauthv1.WatchSessionResponse{
			ElapsedSeconds:    snap.ElapsedSeconds,
			FormattedDuration: snap.FormattedDuration,
		}); err != nil {
			return err
		}
	}
	return nil
}

// Logout ends the caller's session and returns its final duration.
func (s *AuthServer) Logout(ctx context.Context, req *otpauthv1.LogoutRequest) (*otpauthv1.LogoutResponse, error) {
	if s.auth == nil {
		return nil, status.Error(codes.Unimplemented, "method Logout not implemented")
	}
	sess, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	st := s.auth.Logout(ctx, s.auth.SlotKey(sess), sess)
	return &otpauthv1.LogoutResponse{Session: toProto(sess, st)}, nil
}

func (s *AuthServer) sessionStatus(sess *domain.Session) *otpauthv1.SessionStatus {
	return toProto(sess, s.auth.Status(sess))
}

func toProto(sess *domain.Session, st service.SessionStatus) *otpauthv1.SessionStatus {
	return &otpauthv1.SessionStatus{
		SessionID:         sess.ID,
		Email:             sess.Email,
		LoginTimestamp:    sess.LoginTimestamp.UnixMilli(),
		ElapsedSeconds:    st.ElapsedSeconds,
		FormattedDuration: st.FormattedDuration,
	}
}

func sessionFrom(ctx context.Context) (*domain.Session, error) {
	sess, ok := interceptors.SessionFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
	}
	return sess, nil
}

// authErrToStatus maps auth service errors to gRPC status.
func authErrToStatus(err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrBlocked):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, service.ErrEmailNotAllowed):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, service.ErrInvalidSession):
		return status.Error(codes.Unauthenticated, err.Error())
	default:
		log.Error().Err(err).Msg("auth: request failed")
		return status.Error(codes.Internal, "internal error")
	}
}

type noopWatchers struct{}

func (noopWatchers) WatchStarted(context.Context) func() { return func() {} }
