package otpauthv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	AuditService_ListEvents_FullMethodName  = "/otpauth.v1.AuditService/ListEvents"
	AuditService_ClearEvents_FullMethodName = "/otpauth.v1.AuditService/ClearEvents"
)

// AuditServiceServer is the server API for AuditService.
type AuditServiceServer interface {
	ListEvents(context.Context, *ListEventsRequest) (*ListEventsResponse, error)
	ClearEvents(context.Context, *ClearEventsRequest) (*ClearEventsResponse, error)
}

// UnimplementedAuditServiceServer returns Unimplemented for every method.
type UnimplementedAuditServiceServer struct{}

func (UnimplementedAuditServiceServer) ListEvents(context.Context, *ListEventsRequest) (*ListEventsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListEvents not implemented")
}
func (UnimplementedAuditServiceServer) ClearEvents(context.Context, *ClearEventsRequest) (*ClearEventsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ClearEvents not implemented")
}

// RegisterAuditServiceServer registers srv with s.
func RegisterAuditServiceServer(s grpc.ServiceRegistrar, srv AuditServiceServer) {
	s.RegisterService(&AuditService_ServiceDesc, srv)
}

// AuditService_ServiceDesc is the grpc.ServiceDesc for AuditService.
var AuditService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "otpauth.v1.AuditService",
	HandlerType: (*AuditServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ListEvents",
			Handler: unaryHandler(AuditService_ListEvents_FullMethodName, func(srv any, ctx context.Context, req *ListEventsRequest) (*ListEventsResponse, error) {
				return srv.(AuditServiceServer).ListEvents(ctx, req)
			}),
		},
		{
			MethodName: "ClearEvents",
			Handler: unaryHandler(AuditService_ClearEvents_FullMethodName, func(srv any, ctx context.Context, req *ClearEventsRequest) (*ClearEventsResponse, error) {
				return srv.(AuditServiceServer).ClearEvents(ctx, req)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "otpauth/v1/audit.proto",
}

// AuditServiceClient is the client API for AuditService.
type AuditServiceClient interface {
	ListEvents(ctx context.Context, in *ListEventsRequest, opts ...grpc.CallOption) (*ListEventsResponse, error)
	ClearEvents(ctx context.Context, in *ClearEventsRequest, opts ...grpc.CallOption) (*ClearEventsResponse, error)
}

type auditServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewAuditServiceClient returns a client that speaks the JSON codec.
func NewAuditServiceClient(cc grpc.ClientConnInterface) AuditServiceClient {
	return &auditServiceClient{cc}
}

func (c *auditServiceClient) ListEvents(ctx context.Context, in *ListEventsRequest, opts ...grpc.CallOption) (*ListEventsResponse, error) {
	return invoke[ListEventsResponse](ctx, c.cc, AuditService_ListEvents_FullMethodName, in, opts)
}

func (c *auditServiceClient) ClearEvents(ctx context.Context, in *ClearEventsRequest, opts ...grpc.CallOption) (*ClearEventsResponse, error) {
	return invoke[ClearEventsResponse](ctx, c.cc, AuditService_ClearEvents_FullMethodName, in, opts)
}
