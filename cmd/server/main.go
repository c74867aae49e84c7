// Command server runs the SolarIQ dashboard frontend: session-gated pages
// and JSON APIs over a MariaDB user store, Redis sessions, and the external
// telemetry service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/solariq/solariq/internal/app"
	"github.com/solariq/solariq/internal/config"
	"github.com/solariq/solariq/internal/database"
)

// shutdownGrace is how long in-flight requests get to finish on SIGTERM.
const shutdownGrace = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	setupLogging(cfg)

	slog.Info("starting SolarIQ",
		slog.String("env", cfg.Env),
		slog.Int("port", cfg.Port),
	)

	db, err := database.NewMariaDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to mariadb: %w", err)
	}
	defer db.Close()

	if err := database.RunMigrations(db, "db/migrations"); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}

	rdb, err := database.NewRedis(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer rdb.Close()

	application := app.New(cfg, db, rdb)
	application.RegisterRoutes()

	// Drain connections on SIGINT/SIGTERM so container restarts don't cut
	// requests mid-flight.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		slog.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := application.Echo.Shutdown(ctx); err != nil {
			slog.Error("forced shutdown", slog.Any("error", err))
		}
	}()

	// Echo returns http.ErrServerClosed after a clean Shutdown.
	if err := application.Start(); err != nil {
		slog.Info("server stopped", slog.Any("reason", err))
	}
	return nil
}

// setupLogging picks the slog handler for the environment: readable text in
// development, JSON lines in production for log aggregation.
func setupLogging(cfg *config.Config) {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.IsDevelopment() {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}
