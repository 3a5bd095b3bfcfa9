package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	authservice "otp-session-auth/internal/auth/service"
	"otp-session-auth/internal/session"
)

type LogoutCmd struct{}

func (c *LogoutCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := globals.open(ctx)
	if err != nil {
		return err
	}
	defer closeApp(a)
	logout(ctx, a.Auth, os.Stdout)
	return nil
}

type StatusCmd struct{}

func (c *StatusCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := globals.open(ctx)
	if err != nil {
		return err
	}
	defer closeApp(a)
	status(ctx, a.Auth, os.Stdout)
	return nil
}

func logout(ctx context.Context, auth *authservice.AuthService, out io.Writer) {
	sess := auth.Resume(ctx, session.DefaultKey)
	if sess == nil {
		fmt.Fprintln(out, "No active session.")
		return
	}
	st := auth.Logout(ctx, session.DefaultKey, sess)
	fmt.Fprintf(out, "Signed out %s after %s.\n", st.Email, st.FormattedDuration)
}

func status(ctx context.Context, auth *authservice.AuthService, out io.Writer) {
	sess := auth.Resume(ctx, session.DefaultKey)
	if sess == nil {
		fmt.Fprintln(out, "No active session.")
		return
	}
	st := auth.Status(sess)
	fmt.Fprintf(out, "Email:     %s\nSigned in: %s\nDuration:  %s\n",
		st.Email, st.LoginTimestamp.Local().Format(time.DateTime), st.FormattedDuration)
}
