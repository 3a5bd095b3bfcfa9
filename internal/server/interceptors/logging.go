package interceptors

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// LoggingUnary returns a unary server interceptor that logs one line per RPC.
// skipMethods is the set of full method names to not log (e.g. health Check).
func LoggingUnary(skipMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if !skipMethods[info.FullMethod] {
			logRPC(ctx, info.FullMethod, start, err)
		}
		return resp, err
	}
}

// LoggingStream logs one line when a streaming RPC ends.
func LoggingStream(skipMethods map[string]bool) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		err := handler(srv, ss)
		if !skipMethods[info.FullMethod] {
			logRPC(ss.Context(), info.FullMethod, start, err)
		}
		return err
	}
}

func logRPC(ctx context.Context, method string, start time.Time, err error) {
	code := status.Code(err)
	var ev *zerolog.Event
	switch code {
	case codes.OK, codes.Canceled:
		ev = log.Info()
	case codes.Internal, codes.Unknown, codes.Unavailable, codes.DataLoss:
		ev = log.Error().Err(err)
	default:
		ev = log.Warn().Err(err)
	}
	ev = ev.Str("method", method).
		Str("code", code.String()).
		Dur("duration", time.Since(start)).
		Str("client_ip", ClientIP(ctx))
	if sess, ok := SessionFromContext(ctx); ok {
		ev = ev.Str("session_id", sess.ID)
	}
	ev.Msg("grpc: request")
}

// ClientIP returns the client IP from gRPC metadata (x-forwarded-for, x-real-ip) or peer, or "unknown".
func ClientIP(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get("x-forwarded-for"); len(vals) > 0 {
			if s := strings.TrimSpace(vals[0]); s != "" {
				if i := strings.Index(s, ","); i > 0 {
					s = strings.TrimSpace(s[:i])
				}
				return s
			}
		}
		if vals := md.Get("x-real-ip"); len(vals) > 0 {
			if s := strings.TrimSpace(vals[0]); s != "" {
				return s
			}
		}
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		if host, _, err := net.SplitHostPort(p.Addr.String()); err == nil {
			return host
		}
		return p.Addr.String()
	}
	return "unknown"
}
