// Package cli implements the costbuddy command tree.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/costbuddy/costbuddy/internal/api"
	"github.com/costbuddy/costbuddy/internal/config"
	"github.com/costbuddy/costbuddy/internal/fx"
	"github.com/costbuddy/costbuddy/internal/session"
	"github.com/costbuddy/costbuddy/internal/storage"
	"github.com/costbuddy/costbuddy/internal/storage/sqlite"
	"github.com/costbuddy/costbuddy/pkg/logging"
)

// App bundles the wired components every command works against. It is the
// explicit, injectable application root the browser client lacked: the API
// client, session and rate cache are plain struct fields, not module
// singletons.
type App struct {
	Config  config.Config
	Store   storage.Store
	Client  *api.Client
	Session *session.Manager
	Rates   *fx.Cache
}

// NewApp wires the application components against the given config.
func NewApp(ctx context.Context, cfg config.Config) (*App, error) {
	store, err := sqlite.New(cfg.State.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}

	client := api.New(cfg.API.BaseURL)
	sess, err := session.New(ctx, client, store)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("restore session: %w", err)
	}
	client.Token = sess.AccessToken
	client.Refresh = sess.Refresh
	client.OnSessionExpired = sess.MarkExpired

	return &App{
		Config:  cfg,
		Store:   store,
		Client:  client,
		Session: sess,
		Rates:   fx.New(ctx, cfg.FX.RatesURL, store),
	}, nil
}

// Close releases the app's resources.
func (a *App) Close() error {
	a.Session.Stop()
	return a.Store.Close()
}

// requireAuth fails fast when no session is held, before any network call.
func (a *App) requireAuth() error {
	if !a.Session.IsAuthenticated() {
		return session.ErrNotLoggedIn
	}
	return nil
}

// New builds the root command. The app is constructed once config is
// known, in the persistent pre-run, and torn down after the command.
func New(version string) *cobra.Command {
	var (
		configPath string
		verbose    bool
		app        *App
	)

	root := &cobra.Command{
		Use:           "costbuddy",
		Short:         "Track shared expenses from the terminal",
		Long:          "costbuddy is a client for a shared-expense tracking service:\ngroups, members, expenses, balances and cross-currency summaries.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				logging.SetupWithLevel(slog.LevelDebug)
			} else {
				logging.Setup()
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			app, err = NewApp(cmd.Context(), cfg)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if app == nil {
				return nil
			}
			return app.Close()
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.costbuddy/config.toml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	appRef := func() *App { return app }
	root.AddCommand(
		newLoginCmd(appRef),
		newSignupCmd(appRef),
		newLogoutCmd(appRef),
		newWhoamiCmd(appRef),
		newGroupCmd(appRef),
		newExpenseCmd(appRef),
		newSummaryCmd(appRef),
		newRatesCmd(appRef),
		newWatchCmd(appRef),
	)
	return root
}

// formatAmount renders a monetary value with its ISO code, two decimals.
func formatAmount(amount float64, currency string) string {
	return fmt.Sprintf("%.2f %s", amount, currency)
}
