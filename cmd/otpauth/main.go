package main

import (
	"context"

	"github.com/alecthomas/kong"

	"otp-session-auth/cmd/otpauth/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Login   commands.LoginCmd  `cmd:"" default:"1" help:"Sign in with an emailed code and show the session timer"`
		Logout  commands.LogoutCmd `cmd:"" help:"End the saved session"`
		Status  commands.StatusCmd `cmd:"" help:"Show the saved session"`
		Debug   bool               `help:"Enable debug mode."`
		Version kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Description("Mock email OTP sign-in with a live session timer."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
