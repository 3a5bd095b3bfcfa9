// migrate applies the embedded SQL migrations to DATABASE_URL.
package main

import (
	"fmt"

	"github.com/alecthomas/kong"

	"otp-session-auth/internal/config"
	"otp-session-auth/internal/db/migrate"
)

type applyCmd struct {
	Direction string `arg:"" optional:"" default:"up" help:"up or down"`
}

func (c applyCmd) Run(cfg *config.Config) error {
	d, err := migrate.ParseDirection(c.Direction)
	if err != nil {
		return err
	}
	return migrate.Run(cfg.DatabaseURL, d)
}

type versionCmd struct{}

func (versionCmd) Run(cfg *config.Config) error {
	v, dirty, err := migrate.Version(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	fmt.Printf("version %d", v)
	if dirty {
		fmt.Print(" (dirty)")
	}
	fmt.Println()
	return nil
}

var cli struct {
	Apply   applyCmd   `cmd:"" default:"withargs" help:"Migrate all the way up (default) or down"`
	Version versionCmd `cmd:"" help:"Print the applied schema version"`
}

func main() {
	ctx := kong.Parse(&cli, kong.Description("Database migrations for otp-session-auth."))
	cfg, err := config.Load()
	ctx.FatalIfErrorf(err)
	if cfg.DatabaseURL == "" {
		ctx.Fatalf("%v", migrate.ErrNoDatabaseURL)
	}
	ctx.FatalIfErrorf(ctx.Run(cfg))
}
