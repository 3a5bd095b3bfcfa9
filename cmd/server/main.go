package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"otp-session-auth/internal/app"
	authhandler "otp-session-auth/internal/auth/handler"
	"otp-session-auth/internal/config"
	"otp-session-auth/internal/logger"
	"otp-session-auth/internal/server"
)

const (
	healthInterval  = 10 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	logger.Setup(cfg.LogLevel, false)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init")
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
	}()

	if cfg.OTPReturnToClient {
		log.Warn().Msg("OTP_RETURN_TO_CLIENT is enabled; codes are returned in responses")
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Error().Err(err).Str("addr", cfg.GRPCAddr).Msg("listen")
		return
	}
	defer lis.Close()

	s := server.NewGRPCServer(server.Deps{
		Auth: a.Auth,
		AuthOptions: []authhandler.Option{
			authhandler.WithReturnCode(cfg.OTPReturnToClient),
			authhandler.WithWatchObserver(a.Metrics),
		},
		AuditLogger: a.AuditLogger,
		Health:      a.Health,
	})

	a.Health.Update(ctx)
	go a.Health.Run(ctx, healthInterval)

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.GRPCAddr).Str("otp_store", cfg.OTPStore).Str("session_store", cfg.SessionStore).Msg("gRPC server listening")
		serveErr <- s.Serve(lis)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		log.Error().Err(err).Msg("serve")
		return
	}

	log.Info().Msg("shutting down gRPC server...")
	a.Health.Shutdown()
	s.GracefulStop()
	log.Info().Msg("gRPC server stopped")
}
