package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-envconfig"

	"github.com/pressify/reprint-hub/internal/client/api"
	"github.com/pressify/reprint-hub/internal/client/config"
	"github.com/pressify/reprint-hub/internal/client/session"
	"github.com/pressify/reprint-hub/internal/client/tokenstore"
	"github.com/pressify/reprint-hub/internal/core/domain"
	"github.com/pressify/reprint-hub/pkg/logger"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

type app struct {
	mgr *session.Manager
	in  *bufio.Reader
	out io.Writer
	log zerolog.Logger
}

func run(ctx context.Context, args []string, env envconfig.Lookuper, std stdio) int {
	cfg, err := config.Load(ctx, env)
	if err != nil {
		fmt.Fprintln(std.err, err)
		return exitUsage
	}

	fs := flag.NewFlagSet("reprint", flag.ContinueOnError)
	fs.SetOutput(std.err)
	cfg.BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(std.err, "usage: reprint [flags] login|logout|whoami|status|web|watch")
		return exitUsage
	}

	log := logger.New(logger.Options{Level: cfg.LogLevel, Pretty: true, Output: std.err})

	upgraded, err := cfg.Finalize()
	if err != nil {
		fmt.Fprintln(std.err, err)
		return exitUsage
	}
	if upgraded {
		log.Warn().Str("url", cfg.BaseURL).Msg("server URL upgraded to HTTPS")
	}

	cipher, err := tokenstore.LoadOrCreateKey(cfg.KeyFile)
	if err != nil {
		log.Warn().Err(err).Msg("token key unavailable, storing token unencrypted")
		cipher = nil
	}
	store, err := tokenstore.Open(cfg.DatabasePath(), cipher)
	if err != nil {
		fmt.Fprintln(std.err, err)
		return exitError
	}
	defer func() { _ = store.Close() }()

	a := &app{
		mgr: session.NewManager(api.New(cfg.BaseURL, cfg.Timeout), store, session.Options{
			RefreshInterval:     cfg.RefreshInterval,
			ExpiryCheckInterval: cfg.ExpiryCheckInterval,
			SessionLifetime:     cfg.SessionLifetime,
		}, log),
		in:  bufio.NewReader(std.in),
		out: std.out,
		log: log,
	}

	if err := a.dispatch(ctx, fs.Arg(0), fs.Args()[1:]); err != nil {
		fmt.Fprintln(std.err, describe(err))
		return exitError
	}
	return exitOK
}

func (a *app) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		return a.login(ctx, args)
	case "logout":
		return a.logout(ctx)
	case "whoami":
		return a.whoami(ctx)
	case "status":
		return a.status(ctx)
	case "web":
		return a.web(ctx)
	case "watch":
		return a.watch(ctx)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	username := fs.String("username", "", "account username")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *username == "" {
		name, err := promptLine(a.in, a.out, "Username: ")
		if err != nil {
			return err
		}
		*username = name
	}
	password, err := promptPassword(a.out)
	if err != nil {
		return err
	}

	user, err := a.mgr.Login(ctx, *username, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Signed in as %s (%s)\n", user.Name, user.Username)
	return nil
}

func (a *app) logout(ctx context.Context) error {
	if _, err := a.mgr.Restore(ctx); err != nil && !errors.Is(err, session.ErrNotSignedIn) && !errors.Is(err, api.ErrSessionExpired) {
		a.log.Debug().Err(err).Msg("restore before logout")
	}
	if err := a.mgr.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed out.")
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	st, err := a.mgr.Restore(ctx)
	if err != nil {
		return err
	}
	user := &st.User
	if !st.Offline {
		if user, err = a.mgr.Me(ctx); err != nil {
			return err
		}
	}
	printProfile(a.out, user)
	return nil
}

func (a *app) status(ctx context.Context) error {
	st, err := a.mgr.Restore(ctx)
	if errors.Is(err, session.ErrNotSignedIn) || errors.Is(err, api.ErrSessionExpired) {
		fmt.Fprintln(a.out, "Not signed in.")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Signed in as %s (%s)\n", st.User.Name, st.User.Username)
	if !st.LoginTime.IsZero() {
		fmt.Fprintf(a.out, "Login time:  %s\n", st.LoginTime.Local().Format(time.RFC1123))
		fmt.Fprintf(a.out, "Expires at:  %s\n", st.ExpiresAt.Local().Format(time.RFC1123))
	}
	storage := "plaintext"
	if st.Encrypted {
		storage = "encrypted"
	}
	fmt.Fprintf(a.out, "Token store: %s\n", storage)
	if st.Offline {
		fmt.Fprintln(a.out, "Server:      unreachable (offline)")
	}
	return nil
}

func (a *app) web(ctx context.Context) error {
	if _, err := a.mgr.Restore(ctx); err != nil {
		return err
	}
	url, err := a.mgr.OpenWeb(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Opened %s\n", url)
	return nil
}

func (a *app) watch(ctx context.Context) error {
	st, err := a.mgr.Restore(ctx)
	if err != nil {
		return err
	}
	a.log.Info().Str("user", st.User.Username).Msg("keeping session alive, interrupt to stop")
	a.mgr.Run(ctx)
	return nil
}

func printProfile(w io.Writer, p *domain.Profile) {
	role := "none"
	if p.Role != nil {
		role = *p.Role
	}
	fmt.Fprintf(w, "uid:      %s\n", p.UID)
	fmt.Fprintf(w, "username: %s\n", p.Username)
	fmt.Fprintf(w, "name:     %s\n", p.Name)
	fmt.Fprintf(w, "role:     %s\n", role)
}

// describe turns client errors into the lines shown to the operator.
func describe(err error) string {
	var rl *api.RateLimitedError
	var apiErr *api.APIError
	switch {
	case errors.As(err, &rl):
		return fmt.Sprintf("Too many login attempts. Please try again in %d seconds.", int(rl.RetryAfter/time.Second))
	case errors.Is(err, api.ErrInvalidCredentials):
		return "Invalid username or password."
	case errors.Is(err, api.ErrSessionExpired):
		return "Your session has expired. Please log in again."
	case errors.Is(err, session.ErrNotSignedIn):
		return "Not signed in. Run 'reprint login' first."
	case api.IsUnreachable(err):
		return "Cannot reach the server. Check your network connection."
	case errors.As(err, &apiErr):
		return apiErr.Message
	default:
		return err.Error()
	}
}
