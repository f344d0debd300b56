package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/permit-map/internal/config"
	"github.com/permit-map/internal/domain"
	"github.com/permit-map/internal/pkg/logger"
	"github.com/permit-map/internal/repository/cache"
	"github.com/permit-map/internal/repository/postgres"
	"github.com/permit-map/internal/usecase"
)

// Импорт GeoJSON-файлов посёлка в таблицу разрешений:
//
//	importer --town cary [--truncate] permits.geojson [more.geojson ...]
func main() {
	flags := pflag.NewFlagSet("importer", pflag.ExitOnError)
	flags.String("town", "", "township of the input files (cary, apex, morrisville)")
	flags.Bool("truncate", false, "remove all permits before importing")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: importer --town <township> [--truncate] <file.geojson>...\n")
		flags.PrintDefaults()
	}
	_ = flags.Parse(os.Args[1:])

	v := viper.GetViper()
	if err := v.BindPFlag("IMPORT_TOWN", flags.Lookup("town")); err != nil {
		panic(fmt.Sprintf("Failed to bind flag: %v", err))
	}
	if err := v.BindPFlag("IMPORT_TRUNCATE", flags.Lookup("truncate")); err != nil {
		panic(fmt.Sprintf("Failed to bind flag: %v", err))
	}

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

	town := v.GetString("IMPORT_TOWN")
	truncate := v.GetBool("IMPORT_TRUNCATE")
	files := flags.Args()

	if _, ok := domain.Townships[town]; !ok {
		flags.Usage()
		log.Fatal("Unknown township", zap.String("town", town))
	}
	if len(files) == 0 && !truncate {
		flags.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	permitRepo := postgres.NewPermitRepository(db)

	// 4. Cache invalidation, when Redis is reachable
	var invalidator usecase.CacheInvalidator
	redisClient, err := cache.NewRedis(&cfg.Redis, log)
	if err != nil {
		log.Warn("Redis unavailable, permit cache will not be invalidated", zap.Error(err))
	} else {
		defer redisClient.Close()
		invalidator = usecase.NewPermitUseCase(
			permitRepo,
			cache.NewCacheRepository(redisClient),
			log,
			cfg.Cache.PermitsCacheTTL,
			cfg.Cache.SearchCacheTTL,
			cfg.Cache.SearchLimit,
		)
	}

	importUC := usecase.NewImportUseCase(permitRepo, nil, invalidator, log, nil)

	// 5. Import
	started := time.Now()

	if truncate {
		if err := importUC.Truncate(ctx); err != nil {
			log.Fatal("Failed to truncate permits", zap.Error(err))
		}
		log.Info("Permits truncated")
	}

	total := &domain.ImportResult{Township: town}
	for _, path := range files {
		result, err := importUC.ImportFile(ctx, town, path)
		if err != nil {
			log.Fatal("Import failed", zap.String("file", path), zap.Error(err))
		}
		log.Info("File imported",
			zap.String("file", path),
			zap.Int("total", result.Total),
			zap.Int("imported", result.Imported),
			zap.Int("touched", result.Touched),
			zap.Int("skipped", result.Skipped))

		total.Total += result.Total
		total.Imported += result.Imported
		total.Touched += result.Touched
		total.Skipped += result.Skipped
	}

	log.Info("Import complete",
		zap.String("town", town),
		zap.Int("files", len(files)),
		zap.Int("total", total.Total),
		zap.Int("imported", total.Imported),
		zap.Int("touched", total.Touched),
		zap.Int("skipped", total.Skipped),
		zap.Duration("took", time.Since(started)))
}
