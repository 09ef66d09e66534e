package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"focusflow/internal/auth"
	"focusflow/internal/config"
	"focusflow/internal/database"
	"focusflow/internal/handlers"
	"focusflow/internal/logging"
	"focusflow/internal/routes"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var Version = "dev"

const shutdownTimeout = 5 * time.Second

func newRootCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:           "server",
		Short:         "Run the FocusFlow task API",
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to focusflow.yaml")
	return cmd
}

// serve runs the API until ctx is cancelled, then shuts down gracefully.
func serve(ctx context.Context, cfg *config.Config) error {
	closer, err := logging.Init(logging.Options{Source: "server", Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer closer.Close()
	log := logging.Logger

	if err := database.InitDB(cfg.Server.DBPath, database.LogLevelFor(cfg.Log.Level)); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close(database.GetDB())

	auth.Configure(auth.Settings{
		Secret:       cfg.Auth.Secret,
		Username:     cfg.Auth.Username,
		PasswordHash: cfg.Auth.PasswordHash,
	})
	handlers.SetCacheTTL(cfg.Server.CacheTTL)
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           routes.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Server.Addr).WithField("auth", cfg.Auth.Enabled()).Info("FocusFlow API server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logging.Logger.WithError(err).Error("server stopped")
		os.Exit(1)
	}
}
