package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/costbuddy/costbuddy/internal/metrics"
)

func newWatchCmd(app func() *App) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the session fresh and serve Prometheus metrics",
		Long: `Run in the foreground: refresh the access token periodically and
expose request/refresh/rate-fetch metrics on the configured listen
address. Stops on SIGINT/SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			if err := a.requireAuth(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a.Session.StartAutoRefresh(ctx)

			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			server := &http.Server{Addr: a.Config.Metrics.ListenAddr, Handler: mux}

			errCh := make(chan error, 1)
			go func() {
				slog.Info("metrics endpoint listening", "address", a.Config.Metrics.ListenAddr)
				if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			// Touch the rate cache on a long interval so watch mode keeps
			// the table warm for other invocations.
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for {
				select {
				case err := <-errCh:
					return fmt.Errorf("metrics server: %w", err)
				case <-ctx.Done():
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					return server.Shutdown(shutdownCtx)
				case <-ticker.C:
					a.Rates.Rates(ctx)
				}
			}
		},
	}
	cmd.Flags().DurationVar(&interval, "rate-interval", time.Hour, "how often to touch the rate cache")
	return cmd
}
