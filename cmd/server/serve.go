package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/UkralStul/animeblog-service/internal/api"
	"github.com/UkralStul/animeblog-service/internal/config"
	applog "github.com/UkralStul/animeblog-service/internal/log"
	"github.com/UkralStul/animeblog-service/internal/metrics"
	"github.com/UkralStul/animeblog-service/internal/storage"
	"github.com/UkralStul/animeblog-service/internal/storage/inmemory"
	"github.com/UkralStul/animeblog-service/internal/storage/sqlstore"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "HTTP listen address")
	serveCmd.Flags().Bool("seed", false, "Insert demo records before serving")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := applog.NewSugar(cfg.Env)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	m, metricsHandler, err := metrics.Setup("animeblog", nil)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Errorw("Failed to close storage", "error", err)
		}
	}()

	if seed, _ := cmd.Flags().GetBool("seed"); seed {
		if err := fillWithDemoData(cmd.Context(), store, logger); err != nil {
			return err
		}
	}

	handler := api.NewHandler(store, logger, m)
	router := handler.Routes(api.NewMiddleware(logger, m), api.RouteOptions{
		CORSAllowedOrigins: cfg.Security.CORSAllowedOrigins,
		RateLimitRPM:       cfg.Security.RateLimitRPM,
		MetricsHandler:     metricsHandler,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logger.Infow("Starting server",
			"addr", cfg.HTTPAddr,
			"storage", cfg.Database.Storage,
			"env", cfg.Env,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Infow("Shutting down server", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("Graceful shutdown failed", "error", err)
	}
	if err := m.Shutdown(shutdownCtx); err != nil {
		logger.Warnw("Failed to flush metrics", "error", err)
	}

	logger.Infow("Server stopped")
	return nil
}

func openStore(cfg *config.Config) (storage.Storage, error) {
	opts := sqlstore.Options{LogLevel: applog.GormLevel(cfg.Env)}

	switch cfg.Database.Storage {
	case config.StorageInMemory:
		return inmemory.New(), nil
	case config.StoragePostgres:
		store, err := sqlstore.NewPostgres(cfg.Database.PostgresDSN, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return store, nil
	default:
		store, err := sqlstore.NewSQLite(cfg.Database.SQLitePath, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite %s: %w", cfg.Database.SQLitePath, err)
		}
		return store, nil
	}
}

// newCLILogger is used by the one-shot commands.
func newCLILogger(cfg *config.Config) *zap.SugaredLogger {
	logger, err := applog.NewSugar(cfg.Env)
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return logger
}
