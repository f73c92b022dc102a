package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"strategy-memory/config"
	"strategy-memory/internal/api"
	"strategy-memory/internal/events"
	"strategy-memory/internal/logging"
	"strategy-memory/internal/memory"
	"strategy-memory/internal/storage"
)

func main() {
	// .env is optional; real deployments use process env.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(&logging.Config{
		Level:      cfg.LoggingConfig.Level,
		Output:     cfg.LoggingConfig.Output,
		JSONFormat: cfg.LoggingConfig.JSONFormat,
		Component:  "main",
	})
	logging.SetDefault(logger)
	logger.Info("structured logging initialized")

	eventBus := events.NewEventBus()

	ctx := context.Background()
	store, storeHealth, cleanup := buildStore(ctx, cfg, logger)
	defer cleanup()

	recCfg := memory.RecommenderConfig{
		GlobalMinTrades:      cfg.MemoryConfig.GlobalMinTrades,
		RegimeMinTrades:      cfg.MemoryConfig.RegimeMinTrades,
		FullConfidenceTrades: cfg.MemoryConfig.FullConfidenceTrades,
	}
	service := memory.NewService(ctx, store, recCfg, eventBus, logger)
	if cfg.MemoryConfig.MaxRecords > 0 {
		service.Ledger().SetMaxRecords(cfg.MemoryConfig.MaxRecords)
	}
	logger.Info("memory service initialized",
		"records", service.Ledger().TotalRecords(),
		"backend", cfg.StorageConfig.Backend)

	var scheduler *cron.Cron
	if cfg.AuditConfig.Enabled {
		auditor := memory.NewAuditor(service.Ledger(), logger)
		scheduler = cron.New()
		if _, err := scheduler.AddFunc(cfg.AuditConfig.Schedule, func() {
			auditor.Run()
		}); err != nil {
			logger.Warn("invalid audit schedule, audit disabled",
				"schedule", cfg.AuditConfig.Schedule, "error", err)
		} else {
			scheduler.Start()
			logger.Info("aggregate audit scheduled", "schedule", cfg.AuditConfig.Schedule)
		}
	}

	server := api.NewServer(api.ServerConfig{
		Host: cfg.ServerConfig.Host,
		Port: cfg.ServerConfig.Port,
	}, service, eventBus, storeHealth, logger)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutdown signal received")

	if scheduler != nil {
		scheduler.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	logger.Info("shutdown complete")
}

// buildStore constructs the configured persistence backend. Unknown backends
// fall back to the in-process store with a warning rather than refusing to
// start.
func buildStore(ctx context.Context, cfg *config.Config, logger *logging.Logger) (memory.Store, api.StoreHealth, func()) {
	switch cfg.StorageConfig.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisConfig.Addr,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
		})
		store := storage.NewRedisStore(client, logger)
		return store, store.Available, func() { client.Close() }

	case "postgres":
		store, err := storage.NewPostgresStore(ctx, storage.PostgresConfig{
			Host:     cfg.PostgresConfig.Host,
			Port:     cfg.PostgresConfig.Port,
			User:     cfg.PostgresConfig.User,
			Password: cfg.PostgresConfig.Password,
			Database: cfg.PostgresConfig.Database,
			SSLMode:  cfg.PostgresConfig.SSLMode,
		}, logger)
		if err != nil {
			log.Fatalf("Failed to connect to postgres: %v", err)
		}
		return store, nil, store.Close

	case "memory":
		return storage.NewMemoryStore(), nil, func() {}

	default:
		logger.Warn("unknown storage backend, using in-process store",
			"backend", cfg.StorageConfig.Backend)
		return storage.NewMemoryStore(), nil, func() {}
	}
}
