package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/david-andreasson/novareport/internal/api"
	"github.com/david-andreasson/novareport/internal/session"
	"github.com/david-andreasson/novareport/internal/state"
	"github.com/david-andreasson/novareport/pkg/config"
	"github.com/david-andreasson/novareport/pkg/logger"
)

// app is the per-invocation environment shared by the commands.
type app struct {
	cfg    *config.Config
	format string
	lggr   logger.Logger
	client *api.Client
	store  *state.Store
	out    io.Writer
	errOut io.Writer
	now    func() time.Time
}

func newApp(cmd *cobra.Command, g *globalFlags) (*app, error) {
	cfg := loadConfig(g.configPath, cmd.ErrOrStderr())

	level := zapcore.WarnLevel
	if g.verbose {
		level = zapcore.DebugLevel
	}
	lggr, err := (&logger.Config{Level: level, Console: true}).New()
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	format := firstNonEmpty(g.output, cfg.Output.Format, "text")
	switch format {
	case "text", "json", "html":
	default:
		return nil, fmt.Errorf("unknown output format %q (expected text, json or html)", format)
	}

	baseURL := firstNonEmpty(g.apiURL, cfg.API.BaseURL)
	return &app{
		cfg:    cfg,
		format: format,
		lggr:   lggr,
		client: api.NewClient(baseURL, cfg.API.Timeout, lggr),
		store:  state.NewStore(),
		out:    cmd.OutOrStdout(),
		errOut: cmd.ErrOrStderr(),
		now:    time.Now,
	}, nil
}

func loadConfig(path string, errOut io.Writer) *config.Config {
	if path == "" {
		wd, err := os.Getwd()
		if err == nil {
			path = config.FindConfigFile(wd)
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(errOut, "Warning: failed to load config: %v\n", err)
		return config.DefaultConfig()
	}
	return cfg
}

// requireSession loads the saved session and attaches its token to the
// client. An expired token fails here with the same message the backend
// would produce.
func (a *app) requireSession() error {
	sess, err := session.Load(a.cfg.Session.Path)
	if err != nil {
		return err
	}

	var role string
	var expires time.Time
	if claims, err := session.ParseClaims(sess.AccessToken); err == nil {
		if claims.Expired(a.now()) {
			_ = session.Clear(a.cfg.Session.Path)
			return errors.New(api.SessionExpiredMessage)
		}
		role = claims.Role
		expires = claims.Expiry()
	} else {
		a.lggr.Debugw("token claims unreadable", "err", err)
	}

	a.client = a.client.WithToken(sess.AccessToken)
	a.store.Dispatch(state.LoggedIn{Token: sess.AccessToken, Email: sess.Email, Role: role, ExpiresAt: expires})
	return nil
}

// requireAdmin is requireSession plus a local role check.
func (a *app) requireAdmin() error {
	if err := a.requireSession(); err != nil {
		return err
	}
	if a.store.Snapshot().Auth.Role != session.RoleAdmin {
		return errors.New("kommandot kräver administratörsbehörighet")
	}
	return nil
}

// handleAuthError clears the saved session when the backend rejects it.
func (a *app) handleAuthError(err error) error {
	if errors.Is(err, api.ErrUnauthorized) {
		_ = session.Clear(a.cfg.Session.Path)
		a.store.Dispatch(state.LoggedOut{})
	}
	return err
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func yesNo(b bool) string {
	if b {
		return "ja"
	}
	return "nej"
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
