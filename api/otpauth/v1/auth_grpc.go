package otpauthv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	AuthService_RequestCode_FullMethodName  = "/otpauth.v1.AuthService/RequestCode"
	AuthService_ResendCode_FullMethodName   = "/otpauth.v1.AuthService/ResendCode"
	AuthService_VerifyCode_FullMethodName   = "/otpauth.v1.AuthService/VerifyCode"
	AuthService_IsBlocked_FullMethodName    = "/otpauth.v1.AuthService/IsBlocked"
	AuthService_GetSession_FullMethodName   = "/otpauth.v1.AuthService/GetSession"
	AuthService_WatchSession_FullMethodName = "/otpauth.v1.AuthService/WatchSession"
	AuthService_Logout_FullMethodName       = "/otpauth.v1.AuthService/Logout"
)

// AuthServiceServer is the server API for AuthService.
type AuthServiceServer interface {
	RequestCode(context.Context, *RequestCodeRequest) (*RequestCodeResponse, error)
	ResendCode(context.Context, *RequestCodeRequest) (*RequestCodeResponse, error)
	VerifyCode(context.Context, *VerifyCodeRequest) (*VerifyCodeResponse, error)
	IsBlocked(context.Context, *IsBlockedRequest) (*IsBlockedResponse, error)
	GetSession(context.Context, *GetSessionRequest) (*GetSessionResponse, error)
	WatchSession(*WatchSessionRequest, grpc.ServerStreamingServer[WatchSessionResponse]) error
	Logout(context.Context, *LogoutRequest) (*LogoutResponse, error)
}

// UnimplementedAuthServiceServer returns Unimplemented for every method.
type UnimplementedAuthServiceServer struct{}

func (UnimplementedAuthServiceServer) RequestCode(context.Context, *RequestCodeRequest) (*RequestCodeResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RequestCode not implemented")
}
func (UnimplementedAuthServiceServer) ResendCode(context.Context, *RequestCodeRequest) (*RequestCodeResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ResendCode not implemented")
}
func (UnimplementedAuthServiceServer) VerifyCode(context.Context, *VerifyCodeRequest) (*VerifyCodeResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method VerifyCode not implemented")
}
func (UnimplementedAuthServiceServer) IsBlocked(context.Context, *IsBlockedRequest) (*IsBlockedResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method IsBlocked not implemented")
}
func (UnimplementedAuthServiceServer) GetSession(context.Context, *GetSessionRequest) (*GetSessionResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetSession not implemented")
}
func (UnimplementedAuthServiceServer) WatchSession(*WatchSessionRequest, grpc.ServerStreamingServer[WatchSessionResponse]) error {
	return status.Error(codes.Unimplemented, "method WatchSession not implemented")
}
func (UnimplementedAuthServiceServer) Logout(context.Context, *LogoutRequest) (*LogoutResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Logout not implemented")
}

// RegisterAuthServiceServer registers srv with s.
func RegisterAuthServiceServer(s grpc.ServiceRegistrar, srv AuthServiceServer) {
	s.RegisterService(&AuthService_ServiceDesc, srv)
}

func authServer(srv any) AuthServiceServer { return srv.(AuthServiceServer) }

func _AuthService_WatchSession_Handler(srv any, stream grpc.ServerStream) error {
	m := new(WatchSessionRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return authServer(srv).WatchSession(m, &grpc.GenericServerStream[WatchSessionRequest, WatchSessionResponse]{ServerStream: stream})
}

// AuthService_ServiceDesc is the grpc.ServiceDesc for AuthService.
var AuthService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "otpauth.v1.AuthService",
	HandlerType: (*AuthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "RequestCode",
			Handler: unaryHandler(AuthService_RequestCode_FullMethodName, func(srv any, ctx context.Context, req *RequestCodeRequest) (*RequestCodeResponse, error) {
				return authServer(srv).RequestCode(ctx, req)
			}),
		},
		{
			MethodName: "ResendCode",
			Handler: unaryHandler(AuthService_ResendCode_FullMethodName, func(srv any, ctx context.Context, req *RequestCodeRequest) (*RequestCodeResponse, error) {
				return authServer(srv).ResendCode(ctx, req)
			}),
		},
		{
			MethodName: "VerifyCode",
			Handler: unaryHandler(AuthService_VerifyCode_FullMethodName, func(srv any, ctx context.Context, req *VerifyCodeRequest) (*VerifyCodeResponse, error) {
				return authServer(srv).VerifyCode(ctx, req)
			}),
		},
		{
			MethodName: "IsBlocked",
			Handler: unaryHandler(AuthService_IsBlocked_FullMethodName, func(srv any, ctx context.Context, req *IsBlockedRequest) (*IsBlockedResponse, error) {
				return authServer(srv).IsBlocked(ctx, req)
			}),
		},
		{
			MethodName: "GetSession",
			Handler: unaryHandler(AuthService_GetSession_FullMethodName, func(srv any, ctx context.Context, req *GetSessionRequest) (*GetSessionResponse, error) {
				return authServer(srv).GetSession(ctx, req)
			}),
		},
		{
			MethodName: "Logout",
			Handler: unaryHandler(AuthService_Logout_FullMethodName, func(srv any, ctx context.Context, req *LogoutRequest) (*LogoutResponse, error) {
				return authServer(srv).Logout(ctx, req)
			}),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchSession",
			Handler:       _AuthService_WatchSession_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "otpauth/v1/auth.proto",
}

// AuthServiceClient is the client API for AuthService.
type AuthServiceClient interface {
	RequestCode(ctx context.Context, in *RequestCodeRequest, opts ...grpc.CallOption) (*RequestCodeResponse, error)
	ResendCode(ctx context.Context, in *RequestCodeRequest, opts ...grpc.CallOption) (*RequestCodeResponse, error)
	VerifyCode(ctx context.Context, in *VerifyCodeRequest, opts ...grpc.CallOption) (*VerifyCodeResponse, error)
	IsBlocked(ctx context.Context, in *IsBlockedRequest, opts ...grpc.CallOption) (*IsBlockedResponse, error)
	GetSession(ctx context.Context, in *GetSessionRequest, opts ...grpc.CallOption) (*GetSessionResponse, error)
	WatchSession(ctx context.Context, in *WatchSessionRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[WatchSessionResponse], error)
	Logout(ctx context.Context, in *LogoutRequest, opts ...grpc.CallOption) (*LogoutResponse, error)
}

type authServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewAuthServiceClient returns a client that speaks the JSON codec.
func NewAuthServiceClient(cc grpc.ClientConnInterface) AuthServiceClient {
	return &authServiceClient{cc}
}

func (c *authServiceClient) RequestCode(ctx context.Context, in *RequestCodeRequest, opts ...grpc.CallOption) (*RequestCodeResponse, error) {
	return invoke[RequestCodeResponse](ctx, c.cc, AuthService_RequestCode_FullMethodName, in, opts)
}

func (c *authServiceClient) ResendCode(ctx context.Context, in *RequestCodeRequest, opts ...grpc.CallOption) (*RequestCodeResponse, error) {
	return invoke[RequestCodeResponse](ctx, c.cc, AuthService_ResendCode_FullMethodName, in, opts)
}

func (c *authServiceClient) VerifyCode(ctx context.Context, in *VerifyCodeRequest, opts ...grpc.CallOption) (*VerifyCodeResponse, error) {
	return invoke[VerifyCodeResponse](ctx, c.cc, AuthService_VerifyCode_FullMethodName, in, opts)
}

func (c *authServiceClient) IsBlocked(ctx context.Context, in *IsBlockedRequest, opts ...grpc.CallOption) (*IsBlockedResponse, error) {
	return invoke[IsBlockedResponse](ctx, c.cc, AuthService_IsBlocked_FullMethodName, in, opts)
}

func (c *authServiceClient) GetSession(ctx context.Context, in *GetSessionRequest, opts ...grpc.CallOption) (*GetSessionResponse, error) {
	return invoke[GetSessionResponse](ctx, c.cc, AuthService_GetSession_FullMethodName, in, opts)
}

func (c *authServiceClient) Logout(ctx context.Context, in *LogoutRequest, opts ...grpc.CallOption) (*LogoutResponse, error) {
	return invoke[LogoutResponse](ctx, c.cc, AuthService_Logout_FullMethodName, in, opts)
}

func (c *authServiceClient) WatchSession(ctx context.Context, in *WatchSessionRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[WatchSessionResponse], error) {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	stream, err := c.cc.NewStream(ctx, &AuthService_ServiceDesc.Streams[0], AuthService_WatchSession_FullMethodName, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[WatchSessionRequest, WatchSessionResponse]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
