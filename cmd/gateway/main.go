package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relayhub/relay-gateway/internal/auth"
	"github.com/relayhub/relay-gateway/internal/config"
	"github.com/relayhub/relay-gateway/internal/dispatch"
	"github.com/relayhub/relay-gateway/internal/kvstore"
	"github.com/relayhub/relay-gateway/internal/logging"
	"github.com/relayhub/relay-gateway/internal/provider"
	"github.com/relayhub/relay-gateway/internal/ratelimit"
	"github.com/relayhub/relay-gateway/internal/registry"
	"github.com/relayhub/relay-gateway/internal/scheduler"
	"github.com/relayhub/relay-gateway/internal/server"
	"github.com/relayhub/relay-gateway/internal/usage"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	flag.Parse()

	logger := logging.WithComponent("main")
	logger.Info("Starting Relay Gateway", "version", version)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid config", "error", err)
		os.Exit(1)
	}

	// Registry invariants are configuration bugs; refuse to serve on failure.
	reg := registry.New()
	if err := reg.Validate(); err != nil {
		logger.Error("Model catalog validation failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Model catalog loaded",
		"providers", len(reg.Providers()), "models", len(reg.Models()), "capabilities", len(reg.Capabilities()))

	// Expiring key/value store: Redis when configured, in-process otherwise.
	var store kvstore.Store
	if cfg.Redis.Enabled {
		redisStore, err := kvstore.NewRedisStore(kvstore.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logger.Warn("Redis unavailable, falling back to in-memory store", "error", err)
			store = kvstore.NewMemoryStore()
		} else {
			logger.Info("Connected to Redis", "addr", cfg.Redis.Addr)
			store = redisStore
		}
	} else {
		logger.Info("No Redis configured, using in-memory store")
		store = kvstore.NewMemoryStore()
	}
	defer store.Close()

	checker := registry.NewAvailabilityChecker(cfg.Credentials(), cfg.Providers.Local.URL)
	for _, p := range reg.Providers() {
		logger.Info("Provider availability", "provider", p.ID, "tier", p.Tier, "available", checker.IsAvailable(p))
	}

	gate := auth.NewGate(cfg.Auth.SharedSecret, cfg.IsProduction())
	limiter := ratelimit.New(store, cfg.RateLimit.RequestsPerHour, logging.WithComponent("ratelimit"))
	ledger := usage.New(store, limiter, logging.WithComponent("usage"))

	clients := provider.NewClients(cfg)
	dispatcher := dispatch.New(reg, checker, clients, cfg.Dispatch.GetAttemptTimeout(), logging.WithComponent("dispatch"))

	sched := scheduler.New(ledger, logging.WithComponent("scheduler"))
	sched.Start()
	logger.Info("Scheduler started")

	srv := server.New(cfg, gate, limiter, ledger, dispatcher, reg, checker, logging.WithComponent("server"))

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info("Stopping scheduler")
	sched.Stop()

	logger.Info("Stopping HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Shutdown complete")
}
