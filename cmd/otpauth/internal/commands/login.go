package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"otp-session-auth/internal/sessiontimer"
)

type LoginCmd struct {
	Email    string        `help:"Email to sign in with; prompted when empty" env:"OTPAUTH_EMAIL"`
	Interval time.Duration `help:"Session timer refresh interval" default:"1s"`
}

func (l *LoginCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := globals.open(ctx)
	if err != nil {
		return err
	}
	defer closeApp(a)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	f := newFlow(a.Auth, os.Stdin, os.Stdout, sessiontimer.WithInterval(l.Interval))
	return f.run(ctx, l.Email)
}
