package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/permit-map/internal/config"
	"github.com/permit-map/internal/pkg/logger"
	"github.com/permit-map/internal/repository/cache"
	"github.com/permit-map/internal/repository/postgres"
	redisRepo "github.com/permit-map/internal/repository/redis"
	"github.com/permit-map/internal/usecase"
	"github.com/permit-map/internal/worker"
	"github.com/permit-map/internal/worker/importer"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Check if worker is enabled
	if !cfg.Worker.Enabled {
		fmt.Println("Worker is disabled in configuration. Set WORKER_ENABLED=true to enable.")
		os.Exit(0)
	}

	// 2. Initialize logger
	log, err := logger.NewForEnv(cfg.Log.Level, cfg.Server.Env)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting Permit Import Worker")
	log.Info("Configuration loaded",
		zap.String("consumer_group", cfg.Worker.ConsumerGroup),
		zap.Int("max_retries", cfg.Worker.MaxRetries),
		zap.Int("batch_size", cfg.Worker.BatchSize),
		zap.String("import_dir", cfg.Worker.ImportDir))

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

	// 5. Initialize repositories
	permitRepo := postgres.NewPermitRepository(db)
	cacheRepo := cache.NewCacheRepository(redisClient)
	streamRepo := redisRepo.NewStreamRepository(redisClient.Client(), log)

	// 6. Initialize use cases
	permitUC := usecase.NewPermitUseCase(
		permitRepo,
		cacheRepo,
		log,
		cfg.Cache.PermitsCacheTTL,
		cfg.Cache.SearchCacheTTL,
		cfg.Cache.SearchLimit,
	)
	importUC := usecase.NewImportUseCase(permitRepo, streamRepo, permitUC, log, nil).
		WithImportDir(cfg.Worker.ImportDir)

	// 7. Initialize workers
	importWorker := importer.NewPermitImportWorker(streamRepo, importUC, importer.Options{
		ConsumerGroup: cfg.Worker.ConsumerGroup,
		MaxRetries:    cfg.Worker.MaxRetries,
		BatchSize:     cfg.Worker.BatchSize,
		Block:         cfg.Worker.StreamReadTimeout,
	}, log)

	// 8. Create worker manager and register workers
	workerManager := worker.NewWorkerManager(log, 0)
	workerManager.Register(importWorker)

	// 9. Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := workerManager.Start(ctx); err != nil {
		log.Fatal("Failed to start workers", zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Info("Received shutdown signal")

	cancel()

	if err := workerManager.Stop(); err != nil {
		log.Error("Error stopping workers", zap.Error(err))
	}

	log.Info("Worker shutdown complete")
}
