package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/middleware"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/server"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the portal API server",
	Long:  `Starts the HTTP server exposing the account, subscription, key and service endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		shutdownTelemetry, err := telemetry.Init(cmd.Context(), cfg.Observability)
		if err != nil {
			return fmt.Errorf("failed to initialize telemetry: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTelemetry(ctx); err != nil {
				logger.Warn("telemetry shutdown failed", "error", err)
			}
		}()

		eng, err := newEngine(cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		if !cfg.OIDC.Enabled() {
			logger.Warn("token verification is not configured, every API request will be rejected")
		}
		authn, err := middleware.NewAuthnMiddleware(cfg.OIDC)
		if err != nil {
			return fmt.Errorf("configure authentication: %w", err)
		}

		handlers, err := server.NewPortalHandlers(eng.Portal, logger)
		if err != nil {
			return fmt.Errorf("configure handlers: %w", err)
		}

		healthHandler := func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"status":        "ok",
				"control_plane": cfg.ControlPlane,
				"auth_enabled":  cfg.OIDC.Enabled(),
			})
		}

		corsOpts := server.DefaultCORSOptions(cfg.CORSOrigins)
		r := server.NewRouter(server.RouterOptions{
			Handlers:       handlers,
			Authn:          authn,
			Logger:         logger,
			CORSOptions:    &corsOpts,
			HealthHandler:  healthHandler,
			MetricsHandler: promhttp.HandlerFor(eng.Registry, promhttp.HandlerOpts{}),
		})

		srv := &http.Server{
			Addr:         cfg.ServerAddr,
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("starting server", "addr", cfg.ServerAddr, "url", cfg.ServerURL)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logger.Info("shutting down gracefully", "signal", sig.String())

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				_ = srv.Close()
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}

			logger.Info("server stopped")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
