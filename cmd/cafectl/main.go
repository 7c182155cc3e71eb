package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"go-cafe-web/internal/cafeapi"
	"go-cafe-web/internal/config"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Globals are shared by every subcommand.
type Globals struct {
	Server  string           `kong:"help='cafe-web server URL.',env='CAFE_SERVER',default='http://localhost:8000'"`
	Token   string           `kong:"help='Session token from login or register.',env='CAFE_TOKEN'"`
	Version kong.VersionFlag `kong:"help='Print version and exit.'"`
}

// CLI is the cafectl command tree.
type CLI struct {
	Globals

	Register RegisterCmd `kong:"cmd,help='Create an account and print its token.'"`
	Login    LoginCmd    `kong:"cmd,help='Log in and print a session token.'"`
	Whoami   WhoamiCmd   `kong:"cmd,help='Show the account and expiry encoded in the token.'"`
	Cafes    CafesCmd    `kong:"cmd,help='Manage cafe listings.'"`
	Ratings  RatingsCmd  `kong:"cmd,help='Manage ratings.'"`
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("cafectl"),
		kong.Description("Command-line client for go-cafe."),
		kong.UsageOnError(),
		kong.Vars{"version": fmt.Sprintf("%s (%s, %s)", version, commit, date)},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	kctx.Bind(&cli.Globals)
	kctx.FatalIfErrorf(kctx.Run())
}

// client builds an API client from the global flags.
func (g *Globals) client() *cafeapi.Client {
	return cafeapi.New(g.Server, g.Token)
}

// requireToken fails fast for commands that need a session.
func (g *Globals) requireToken() error {
	if g.Token == "" {
		return fmt.Errorf("no token: pass --token or set CAFE_TOKEN")
	}
	return nil
}
