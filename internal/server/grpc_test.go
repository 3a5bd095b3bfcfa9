package server

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	otpauthv1 "otp-session-auth/api/otpauth/v1"
	"otp-session-auth/internal/audit"
	auditrepo "otp-session-auth/internal/audit/repository"
	authservice "otp-session-auth/internal/auth/service"
	healthhandler "otp-session-auth/internal/health/handler"
	"otp-session-auth/internal/otp"
	otprepo "otp-session-auth/internal/otp/repository"
	"otp-session-auth/internal/security"
	"otp-session-auth/internal/session"
	sessionrepo "otp-session-auth/internal/session/repository"
)

// mockServiceRegistrar implements grpc.ServiceRegistrar for testing.
type mockServiceRegistrar struct {
	services []string
}

func (m *mockServiceRegistrar) RegisterService(desc *grpc.ServiceDesc, impl interface{}) {
	m.services = append(m.services, desc.ServiceName)
}

func TestRegisterServices_WithoutHealth(t *testing.T) {
	mockReg := &mockServiceRegistrar{}
	RegisterServices(mockReg, Deps{})

	want := []string{"otpauth.v1.AuthService", "otpauth.v1.AuditService"}
	if len(mockReg.services) != len(want) {
		t.Fatalf("registered %v, want %v", mockReg.services, want)
	}
	for i, name := range want {
		if mockReg.services[i] != name {
			t.Errorf("services[%d] = %q, want %q", i, mockReg.services[i], name)
		}
	}
}

func TestRegisterServices_WithHealth(t *testing.T) {
	mockReg := &mockServiceRegistrar{}
	RegisterServices(mockReg, Deps{Health: healthhandler.NewServer(nil)})
	if len(mockReg.services) != 3 || mockReg.services[2] != "grpc.health.v1.Health" {
		t.Errorf("registered %v, want health last", mockReg.services)
	}
}

func TestPublicMethods(t *testing.T) {
	public := PublicMethods()
	for _, m := range []string{
		otpauthv1.AuthService_RequestCode_FullMethodName,
		otpauthv1.AuthService_VerifyCode_FullMethodName,
		healthpb.Health_Check_FullMethodName,
	} {
		if !public[m] {
			t.Errorf("%s should be public", m)
		}
	}
	for _, m := range []string{
		otpauthv1.AuthService_GetSession_FullMethodName,
		otpauthv1.AuthService_WatchSession_FullMethodName,
		otpauthv1.AuthService_Logout_FullMethodName,
		otpauthv1.AuditService_ListEvents_FullMethodName,
		otpauthv1.AuditService_ClearEvents_FullMethodName,
	} {
		if public[m] {
			t.Errorf("%s should require a session", m)
		}
	}
}

func TestNewGRPCServer_EndToEnd(t *testing.T) {
	mgr := otp.NewManager(otprepo.NewMemoryRepository(), nil)
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	authSvc, err := authservice.NewAuthService(mgr, session.NewStore(sessionrepo.NewMemoryRepository()), nil, authservice.WithTokens(tokens))
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	health := healthhandler.NewServer(nil, "otpauth.v1.AuthService")
	health.Update(context.Background())

	s := NewGRPCServer(Deps{
		Auth:        authSvc,
		AuditLogger: audit.NewLogger(auditrepo.NewMemoryRepository()),
		Health:      health,
	})
	lis := bufconn.Listen(1 << 20)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	ctx := context.Background()

	hc, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("health Check: %v", err)
	}
	if hc.Status != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("health = %v, want SERVING", hc.Status)
	}

	if _, err := otpauthv1.NewAuthServiceClient(conn).RequestCode(ctx, &otpauthv1.RequestCodeRequest{Email: "a@example.com"}); err != nil {
		t.Fatalf("RequestCode: %v", err)
	}

	_, err = otpauthv1.NewAuditServiceClient(conn).ListEvents(ctx, &otpauthv1.ListEventsRequest{})
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("ListEvents without token: code = %v, want Unauthenticated", status.Code(err))
	}
}
