package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/emailpreview/internal/config"
	"github.com/JonMunkholm/emailpreview/internal/core"
	"github.com/JonMunkholm/emailpreview/internal/logging"
	"github.com/JonMunkholm/emailpreview/internal/store"
	"github.com/JonMunkholm/emailpreview/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"store", cfg.Store.Driver,
		"max_concurrent_loads", cfg.Session.MaxConcurrentLoads,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)
	slog.Debug("configuration", "config", cfg.String())

	preview, err := cfg.Preview.Core()
	if err != nil {
		slog.Error("invalid preview configuration", "error", err)
		os.Exit(1)
	}

	// Open the mapping store
	ctx := context.Background()
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		slog.Error("failed to open mapping store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	switch cfg.Store.Driver {
	case config.DriverPostgres:
		// Log which database we connected to
		if u, err := url.Parse(cfg.Store.DatabaseURL); err == nil {
			slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
		} else {
			slog.Info("connected to database")
		}
	case config.DriverSQLite:
		slog.Info("opened sqlite store", "path", cfg.Store.SQLitePath)
	default:
		slog.Warn("using in-memory mapping store; confirmations are lost on restart")
	}

	service := core.NewService(core.ServiceOptions{
		Preview:            preview,
		Sink:               st,
		MaxConcurrentLoads: cfg.Session.MaxConcurrentLoads,
		LoadWait:           cfg.Session.LoadWait,
		IdleTTL:            cfg.Session.IdleTTL,
	})

	server := web.NewServer(service, st, cfg)

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go service.StartSessionSweeper(jobCtx, cfg.Session.SweepInterval)

	// Graceful shutdown
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		// Stop background jobs
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}

		// Let in-flight loads commit so their sessions are consistent
		loads := service.LoadLimiterStatus()
		if loads.Active > 0 {
			slog.Info("waiting for loads to complete", "active", loads.Active)
			if err := service.WaitForLoads(shutdownCtx); err != nil {
				slog.Warn("loads did not complete in time", "error", err)
			} else {
				slog.Info("all loads completed")
			}
		}
		service.Close()
	}()

	// Start server (uses addr from config internally)
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		cancelJobs()
		service.Close()
		return
	}
	<-stopped
	slog.Info("server stopped")
}
