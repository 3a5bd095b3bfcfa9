// Package handler serves AuditService over gRPC.
package handler

import (
	"context"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	otpauthv1 "otp-session-auth/api/otpauth/v1"
	"otp-session-auth/internal/analytics"
	"otp-session-auth/internal/audit"
	"otp-session-auth/internal/audit/domain"
)

// Server implements AuditService (proto server) for listing and clearing the analytics trail.
// Proto: otpauth/v1/audit.proto → internal/audit/handler.
type Server struct {
	otpauthv1.UnimplementedAuditServiceServer
	logger *audit.Logger
}

// NewServer returns a new Audit gRPC server. If logger is nil, ListEvents and ClearEvents return Unimplemented.
func NewServer(logger *audit.Logger) *Server {
	return &Server{logger: logger}
}

// ListEvents returns persisted analytics events oldest first, optionally filtered by email and event.
func (s *Server) ListEvents(ctx context.Context, req *otpauthv1.ListEventsRequest) (*otpauthv1.ListEventsResponse, error) {
	if s.logger == nil {
		return nil, status.Error(codes.Unimplemented, "method ListEvents not implemented")
	}
	if req.Event != "" && !analytics.Kind(req.Event).Valid() {
		return nil, status.Errorf(codes.InvalidArgument, "unknown event %q", req.Event)
	}
	logs, err := s.logger.List(ctx, domain.Filter{Email: req.Email, Event: req.Event}, req.Limit, req.Offset)
	if err != nil {
		log.Error().Err(err).Msg("audit: list events failed")
		return nil, status.Error(codes.Internal, "internal error")
	}
	out := make([]*otpauthv1.AuditEvent, len(logs))
	for i, l := range logs {
		out[i] = &otpauthv1.AuditEvent{
			ID:        l.ID,
			Event:     l.Event,
			Email:     l.Email,
			Details:   l.Details,
			CreatedAt: l.CreatedAt,
		}
	}
	return &otpauthv1.ListEventsResponse{Events: out}, nil
}

// ClearEvents deletes every persisted analytics event.
func (s *Server) ClearEvents(ctx context.Context, req *otpauthv1.ClearEventsRequest) (*otpauthv1.ClearEventsResponse, error) {
	if s.logger == nil {
		return nil, status.Error(codes.Unimplemented, "method ClearEvents not implemented")
	}
	n, err := s.logger.Clear(ctx)
	if err != nil {
		log.Error().Err(err).Msg("audit: clear events failed")
		return nil, status.Error(codes.Internal, "internal error")
	}
	return &otpauthv1.ClearEventsResponse{Deleted: n}, nil
}
