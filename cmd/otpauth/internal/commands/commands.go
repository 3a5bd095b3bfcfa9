package commands

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"otp-session-auth/internal/app"
	authservice "otp-session-auth/internal/auth/service"
	"otp-session-auth/internal/config"
	"otp-session-auth/internal/logger"
	"otp-session-auth/internal/session"
)

const closeTimeout = 5 * time.Second

type Globals struct {
	Debug   bool
	Version string
}

// open loads configuration and wires an in-process app bound to the single
// local session slot. A memory session store is replaced by the file store so
// the session survives between runs.
func (g *Globals) open(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if g.Debug {
		level = "debug"
	}
	logger.Setup(level, true)

	if cfg.SessionStore == config.StoreMemory {
		cfg.SessionStore = config.StoreFile
	}
	return app.New(ctx, cfg,
		app.WithoutTokens(),
		app.WithAuthOptions(authservice.WithFixedSlot(session.DefaultKey)),
	)
}

func closeApp(a *app.App) {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := a.Close(ctx); err != nil {
		log.Warn().Err(err).Msg("otpauth: shutdown")
	}
}
