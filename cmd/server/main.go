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

	"lookout/internal/app"
	httpapi "lookout/internal/http"
	"lookout/internal/platform/config"
	"lookout/internal/platform/httpserver"
	"lookout/internal/platform/logger"
)

const (
	purgeInterval   = 10 * time.Minute
	shutdownTimeout = 10 * time.Second
)

// main wires the engine, serves the ops endpoints and purges expired cache
// entries until interrupted.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Server.LogLevel, cfg.Server.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to wire lookup engine", "error", err)
		os.Exit(1)
	}

	go engine.Cache.RunPurger(ctx, purgeInterval)

	router := httpapi.NewRouter(httpapi.New(engine.OpsOptions...))
	srv := httpserver.New(cfg.Server.Addr, router)

	go func() {
		log.Info("starting ops server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	if err := engine.Close(shutdownCtx); err != nil {
		log.Error("failed to release resources", "error", err)
	}
}
