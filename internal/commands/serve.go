package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Pirozshki/FinancePro/internal/categorize"
	"github.com/Pirozshki/FinancePro/internal/handler"
	"github.com/Pirozshki/FinancePro/internal/ingest"
)

const shutdownTimeout = 15 * time.Second

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the budget HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig(opts)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.shutdown()

			return runServer(ctx, ":"+cfg.Port, newDependencies(a).Routes())
		},
	}
}

func newDependencies(a *app) *handler.Dependencies {
	deps := &handler.Dependencies{
		Store:  a.store,
		Import: ingest.NewSession(categorize.NewMapper(nil)),
	}
	if a.archive != nil {
		deps.Archive = a.archive
	}
	return deps
}

// runServer serves mux on addr until ctx is cancelled or the listener fails.
func runServer(ctx context.Context, addr string, mux http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler.LoggingMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		return nil
	})
	return g.Wait()
}
