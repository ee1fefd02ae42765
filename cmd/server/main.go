// Package main is the entry point for the serialgen API server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"serialgen/internal/app"
	"serialgen/internal/config"
	v1 "serialgen/internal/infrastructure/http/v1"
	"serialgen/internal/infrastructure/http/v1/handlers"
	"serialgen/pkg/logger"
)

var version = "dev"

func main() {
	configPath := flag.String("config", os.Getenv("SERIALGEN_CONFIG"), "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := logger.WithLogger(context.Background(), log)
	log.Infow("starting serialgen server",
		"version", version,
		"backend", cfg.Store.Backend,
		"strategy", cfg.Issuer.Strategy,
	)

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to open store backend", "error", err)
	}
	defer a.Close()

	router := v1.NewRouter(v1.RouterConfig{
		Service: a.Service,
		Backend: a.Backend,
		Info:    handlers.BuildInfo{Version: version, Strategy: cfg.Issuer.Strategy},
		Logger:  log,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Infow("server starting", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
