// Package handler serves grpc.health.v1 readiness backed by dependency checks.
package handler

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const checkTimeout = 3 * time.Second

// Pinger is used for readiness (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker is used for readiness (e.g. the OPA evaluator).
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// CheckFunc reports whether one dependency is usable.
type CheckFunc func(ctx context.Context) error

// Server wraps the standard health service and flips it between SERVING and
// NOT_SERVING according to its checks.
type Server struct {
	hs       *health.Server
	checks   map[string]CheckFunc
	services []string
}

// NewServer returns a health server. services are the fully qualified service
// names reported alongside the overall ("") status.
func NewServer(checks map[string]CheckFunc, services ...string) *Server {
	if checks == nil {
		checks = map[string]CheckFunc{}
	}
	return &Server{hs: health.NewServer(), checks: checks, services: services}
}

// PingCheck adapts a Pinger. A nil pinger yields a nil check.
func PingCheck(p Pinger) CheckFunc {
	if p == nil {
		return nil
	}
	return p.PingContext
}

// PolicyCheck adapts a PolicyChecker. A nil checker yields a nil check.
func PolicyCheck(p PolicyChecker) CheckFunc {
	if p == nil {
		return nil
	}
	return p.HealthCheck
}

// Register adds the health service to reg.
func (s *Server) Register(reg grpc.ServiceRegistrar) {
	healthpb.RegisterHealthServer(reg, s.hs)
}

// Update runs every check once and publishes the result. It returns true when all checks pass.
func (s *Server) Update(ctx context.Context) bool {
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	ok := true
	for _, name := range names {
		check := s.checks[name]
		if check == nil {
			continue
		}
		cctx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := check(cctx)
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("check", name).Msg("health: check failed")
			ok = false
		}
	}

	st := healthpb.HealthCheckResponse_SERVING
	if !ok {
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.hs.SetServingStatus("", st)
	for _, svc := range s.services {
		s.hs.SetServingStatus(svc, st)
	}
	return ok
}

// Run calls Update every interval until ctx is done, then marks everything NOT_SERVING.
func (s *Server) Run(ctx context.Context, interval time.Duration) {
	s.Update(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.hs.Shutdown()
			return
		case <-ticker.C:
			s.Update(ctx)
		}
	}
}

// Shutdown marks every service NOT_SERVING.
func (s *Server) Shutdown() {
	s.hs.Shutdown()
}
