package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	otpauthv1 "otp-session-auth/api/otpauth/v1"
	"otp-session-auth/internal/audit"
	audithandler "otp-session-auth/internal/audit/handler"
	authhandler "otp-session-auth/internal/auth/handler"
	authservice "otp-session-auth/internal/auth/service"
	healthhandler "otp-session-auth/internal/health/handler"
	"otp-session-auth/internal/server/interceptors"
)

// Deps holds optional service dependencies for gRPC handlers.
type Deps struct {
	// Auth is the sign-in service. If nil, AuthService RPCs return Unimplemented and no Bearer tokens are checked.
	Auth *authservice.AuthService
	// AuthOptions configure the AuthService handler (returned codes, watch metrics, timer).
	AuthOptions []authhandler.Option
	// AuditLogger backs AuditService. If nil, ListEvents and ClearEvents return Unimplemented.
	AuditLogger *audit.Logger
	// Health is the grpc.health.v1 service. If nil, it is not registered.
	Health *healthhandler.Server
}

// healthMethods are served without a token and not logged.
var healthMethods = map[string]bool{
	healthpb.Health_Check_FullMethodName: true,
	healthpb.Health_Watch_FullMethodName: true,
	"/grpc.health.v1.Health/List":        true,
}

// PublicMethods returns the full method names callable without a Bearer session token.
func PublicMethods() map[string]bool {
	m := map[string]bool{
		otpauthv1.AuthService_RequestCode_FullMethodName: true,
		otpauthv1.AuthService_ResendCode_FullMethodName:  true,
		otpauthv1.AuthService_VerifyCode_FullMethodName:  true,
		otpauthv1.AuthService_IsBlocked_FullMethodName:   true,
	}
	for k := range healthMethods {
		m[k] = true
	}
	return m
}

// NewGRPCServer builds a server with tracing, request logging and Bearer
// authentication, and registers every service in deps.
func NewGRPCServer(deps Deps, opts ...grpc.ServerOption) *grpc.Server {
	unary := []grpc.UnaryServerInterceptor{interceptors.LoggingUnary(healthMethods)}
	stream := []grpc.StreamServerInterceptor{interceptors.LoggingStream(healthMethods)}
	if deps.Auth != nil {
		public := PublicMethods()
		unary = append(unary, interceptors.AuthUnary(deps.Auth, public))
		stream = append(stream, interceptors.AuthStream(deps.Auth, public))
	}
	opts = append([]grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(unary...),
		grpc.ChainStreamInterceptor(stream...),
	}, opts...)
	s := grpc.NewServer(opts...)
	RegisterServices(s, deps)
	return s
}

// RegisterServices registers all gRPC services with the given server.
//
// Service → handler mapping:
//   - otpauth.v1.AuthService  → internal/auth/handler
//   - otpauth.v1.AuditService → internal/audit/handler
//   - grpc.health.v1.Health   → internal/health/handler
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) {
	otpauthv1.RegisterAuthServiceServer(s, authhandler.NewAuthServer(deps.Auth, deps.AuthOptions...))
	otpauthv1.RegisterAuditServiceServer(s, audithandler.NewServer(deps.AuditLogger))
	if deps.Health != nil {
		deps.Health.Register(s)
	}
}
