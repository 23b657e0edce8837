// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sagarsharma2004/event-admission/internal/config"
	"github.com/sagarsharma2004/event-admission/internal/database"
	"github.com/sagarsharma2004/event-admission/internal/handler"
	"github.com/sagarsharma2004/event-admission/internal/repository"
	"github.com/sagarsharma2004/event-admission/internal/repository/memory"
	"github.com/sagarsharma2004/event-admission/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := newLogger(cfg)

	// ── 1. Pick the event store ───────────────────────────────────────────
	var store service.EventStore
	switch cfg.Store {
	case "memory":
		store = memory.NewStore()
		logger.Info("using in-memory event store")
	case "postgres":
		pool, err := database.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatalf("database: %v", err)
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool); err != nil {
			logger.Fatalf("migrate: %v", err)
		}
		store = repository.NewEventRepository(pool)
		logger.Info("connected to postgres")
	default:
		logger.Fatalf("unknown store %q (want postgres or memory)", cfg.Store)
	}

	// ── 2. Wire up layers ─────────────────────────────────────────────────
	svc := service.NewEventService(store, logger)
	h := handler.NewEventHandler(svc)
	router := handler.NewRouter(h, cfg.AuthSecret, logger)

	// ── 3. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server error: %v", err)
		}
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("graceful shutdown failed: %v", err)
	}
	logger.Info("server stopped")
}

func newLogger(cfg *config.Config) *log.Logger {
	logger := log.New()
	if cfg.LogFormat == "json" {
		logger.SetFormatter(&log.JSONFormatter{})
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}
