package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/permit-map/internal/domain"
	"github.com/permit-map/internal/domain/repository"
)

const statsCacheKey = CachePrefix + "stats"

// StatsUseCase обрабатывает бизнес-логику для статистики
type StatsUseCase struct {
	statsRepo repository.StatsRepository
	cacheRepo repository.CacheRepository
	logger    *zap.Logger
	ttl       time.Duration
}

// NewStatsUseCase создает новый экземпляр StatsUseCase
func NewStatsUseCase(
	statsRepo repository.StatsRepository,
	cacheRepo repository.CacheRepository,
	logger *zap.Logger,
	ttl time.Duration,
) *StatsUseCase {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &StatsUseCase{
		statsRepo: statsRepo,
		cacheRepo: cacheRepo,
		logger:    logger,
		ttl:       ttl,
	}
}

// GetStatistics возвращает статистику, используя кеш когда возможно
func (uc *StatsUseCase) GetStatistics(ctx context.Context) (*domain.Statistics, error) {
	cached, err := uc.cacheRepo.Get(ctx, statsCacheKey)
	if err != nil {
		uc.logger.Warn("Failed to get stats from cache", zap.Error(err))
	}
	if cached != nil {
		var stats domain.Statistics
		if err := json.Unmarshal(cached, &stats); err == nil {
			uc.logger.Debug("Statistics fetched from cache")
			return &stats, nil
		}
		uc.logger.Warn("Failed to decode cached stats")
	}

	return uc.RefreshStatistics(ctx)
}

// RefreshStatistics принудительно обновляет статистику
func (uc *StatsUseCase) RefreshStatistics(ctx context.Context) (*domain.Statistics, error) {
	stats, err := uc.statsRepo.GetStatistics(ctx)
	if err != nil {
		return nil, fmt.Errorf("get statistics from db: %w", err)
	}

	raw, err := json.Marshal(stats)
	if err != nil {
		uc.logger.Warn("Failed to encode stats", zap.Error(err))
		return stats, nil
	}
	// Не возвращаем ошибку, т.к. данные уже получены
	if err := uc.cacheRepo.Set(ctx, statsCacheKey, raw, uc.ttl); err != nil {
		uc.logger.Warn("Failed to cache stats", zap.Error(err))
	}

	return stats, nil
}
