package main

// @title Permit Map API
// @version 1.0.0
// @description Карта разрешений на застройку Cary, Apex и Morrisville. Регионы разрешений хранятся в PostGIS; серверные сессии карты отрисовывают регионы, маркеры и камеру и отдают снимки браузерному клиенту.
// @description
// @description Основные возможности:
// @description - Регионы разрешений как GeoJSON
// @description - Поиск разрешений в точке и полнотекстовый поиск
// @description - Сессии карты: фильтры, палитра категорий, поиск, клики, idle-сигналы
// @description - Очередь импорта через Redis Streams

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "github.com/permit-map/docs/swagger"
	"github.com/permit-map/internal/config"
	httpDelivery "github.com/permit-map/internal/delivery/http"
	"github.com/permit-map/internal/delivery/http/handler"
	"github.com/permit-map/internal/mapview"
	"github.com/permit-map/internal/pkg/logger"
	"github.com/permit-map/internal/repository/cache"
	"github.com/permit-map/internal/repository/postgres"
	redisRepo "github.com/permit-map/internal/repository/redis"
	"github.com/permit-map/internal/usecase"
	"github.com/permit-map/internal/worker"
	"github.com/permit-map/internal/worker/janitor"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. Initialize logger
	log, err := logger.NewForEnv(cfg.Log.Level, cfg.Server.Env)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting Permit Map API")
	log.Info("Configuration loaded",
		zap.String("env", cfg.Server.Env),
		zap.String("server_addr", cfg.GetServerAddr()),
		zap.Int("map_zoom", cfg.Map.Zoom),
	)

	// 3. Connect to PostgreSQL
	db, err := postgres.New(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close PostgreSQL connection", zap.Error(err))
		}
	}()

	// 4. Connect to Redis
	redisClient, err := cache.NewRedis(&cfg.Redis, log)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Failed to close Redis connection", zap.Error(err))
		}
	}()

	// 5. Health checks
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.Health(ctx); err != nil {
		log.Fatal("PostgreSQL health check failed", zap.Error(err))
	}
	if version, err := db.PostGISVersion(ctx); err != nil {
		log.Fatal("PostGIS is not available", zap.Error(err))
	} else {
		log.Info("PostGIS detected", zap.String("version", version))
	}
	if err := redisClient.Health(ctx); err != nil {
		log.Fatal("Redis health check failed", zap.Error(err))
	}

	log.Info("All connections healthy")

	// 6. Initialize Repositories
	permitRepo := postgres.NewPermitRepository(db)
	statsRepo := postgres.NewStatsRepository(db, log)
	cacheRepo := cache.NewCacheRepository(redisClient)
	streamRepo := redisRepo.NewStreamRepository(redisClient.Client(), log)

	log.Info("Repositories initialized")

	// 7. Initialize Use Cases
	permitUC := usecase.NewPermitUseCase(
		permitRepo,
		cacheRepo,
		log,
		cfg.Cache.PermitsCacheTTL,
		cfg.Cache.SearchCacheTTL,
		cfg.Cache.SearchLimit,
	)
	statsUC := usecase.NewStatsUseCase(statsRepo, cacheRepo, log, cfg.Cache.PermitsCacheTTL)
	importUC := usecase.NewImportUseCase(permitRepo, streamRepo, permitUC, log, nil)
	sessionUC := usecase.NewSessionUseCase(permitUC, permitUC, usecase.SessionSettings{
		Map: mapview.Options{
			Zoom:          cfg.Map.Zoom,
			FillOpacity:   cfg.Map.FillOpacity,
			DefaultExtent: cfg.Map.Extent,
			LookupTimeout: cfg.Map.LookupTimeout,
		},
		Palette:  cfg.Map.Palette,
		Fallback: cfg.Map.Fallback,
	}, log, nil)

	log.Info("Use cases initialized")

	// 8. Initialize HTTP Handlers
	handlers := httpDelivery.Handlers{
		Health: handler.NewHealthHandler(map[string]handler.Pinger{
			"postgres": db,
			"redis":    redisClient,
		}, sessionUC, log),
		Permits: handler.NewPermitHandler(permitUC, log),
		Stats:   handler.NewStatsHandler(statsUC, log),
		Session: handler.NewSessionHandler(sessionUC, log),
		Import:  handler.NewImportHandler(importUC, log),
	}

	// 9. Initialize HTTP Server
	server := httpDelivery.NewServer(cfg, log, handlers)

	// 10. Session janitor
	workerManager := worker.NewWorkerManager(log, 0)
	workerManager.Register(janitor.NewSessionJanitor(
		sessionUC,
		cfg.Session.IdleTTL,
		cfg.Session.SweepInterval,
		log,
	))

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	if err := workerManager.Start(workerCtx); err != nil {
		log.Fatal("Failed to start workers", zap.Error(err))
	}

	// 11. Start server in goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started successfully",
		zap.String("address", cfg.GetServerAddr()),
		zap.String("env", cfg.Server.Env),
	)

	// 12. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")

	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}

	stopWorkers()
	if err := workerManager.Stop(); err != nil {
		log.Error("Error stopping workers", zap.Error(err))
	}

	sessionUC.CloseAll()

	log.Info("Server stopped successfully")
}
