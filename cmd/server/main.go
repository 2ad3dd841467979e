package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pauljones0/property-scanner/internal/api"
	"github.com/pauljones0/property-scanner/internal/app"
	"github.com/pauljones0/property-scanner/internal/config"
	"github.com/pauljones0/property-scanner/internal/logging"
	"github.com/pauljones0/property-scanner/internal/scheduler"
)

func main() {
	logging.Setup(slog.LevelInfo, os.Stderr)
	slog.Info("Starting property scanner server...")

	path := os.Getenv("SCANNER_CONFIG")
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		slog.Error("Critical error loading configuration", "path", path, "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.SlogLevel(), os.Stderr)

	ctx := context.Background()
	a, err := app.Build(ctx, cfg)
	if err != nil {
		slog.Error("Critical error initializing scanner", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	var favorites api.FavoriteStore
	if a.Favorites != nil {
		favorites = a.Favorites
	}
	handler := api.NewHandler(a.Scanner, favorites, cfg.Server.RunTimeout)

	sched := scheduler.New(a.Scanner, cfg.Server.Schedule, cfg.Server.RunTimeout)
	if err := sched.Start(); err != nil {
		slog.Error("Critical error starting scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      api.NewServer(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Server.RunTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Listening on port", "port", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown on SIGTERM/SIGINT
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	select {
	case sig := <-sigCh:
		slog.Info("Received signal, shutting down gracefully...", "signal", sig)
	case err := <-serverErr:
		slog.Error("Failed to listen and serve", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}
	slog.Info("Server stopped.")
}
