package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/permit-map/internal/domain"
	"github.com/permit-map/internal/domain/repository"
	"github.com/permit-map/internal/pkg/errors"
	"github.com/permit-map/internal/pkg/utils"
)

// Ключи кеша разрешений. Всё под CachePrefix сбрасывается после импорта.
const (
	CachePrefix       = "permits:"
	regionsCacheKey   = CachePrefix + "regions"
	searchCachePrefix = CachePrefix + "search:"

	DefaultSearchLimit = 50
)

// PermitUseCase - чтение регионов и поиск разрешений. Реализует
// mapview.RegionSource и mapview.Lookup.
type PermitUseCase struct {
	permitRepo  repository.PermitRepository
	cacheRepo   repository.CacheRepository
	logger      *zap.Logger
	regionsTTL  time.Duration
	searchTTL   time.Duration
	searchLimit int

	group singleflight.Group
}

// NewPermitUseCase создаёт PermitUseCase
func NewPermitUseCase(
	permitRepo repository.PermitRepository,
	cacheRepo repository.CacheRepository,
	logger *zap.Logger,
	regionsTTL, searchTTL time.Duration,
	searchLimit int,
) *PermitUseCase {
	if searchLimit <= 0 {
		searchLimit = DefaultSearchLimit
	}
	return &PermitUseCase{
		permitRepo:  permitRepo,
		cacheRepo:   cacheRepo,
		logger:      logger,
		regionsTTL:  regionsTTL,
		searchTTL:   searchTTL,
		searchLimit: searchLimit,
	}
}

// Regions возвращает коллекцию регионов. Каждый вызов получает свою копию:
// сессии карты изменяют свойства фич при загрузке.
func (uc *PermitUseCase) Regions(ctx context.Context) (*geojson.FeatureCollection, error) {
	raw, err := uc.RegionsJSON(ctx)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		uc.logger.Error("Failed to decode regions", zap.Error(err))
		return nil, errors.ErrInternalServer
	}
	return fc, nil
}

// RegionsJSON возвращает коллекцию регионов в GeoJSON (кеш, затем БД)
func (uc *PermitUseCase) RegionsJSON(ctx context.Context) ([]byte, error) {
	cached, err := uc.cacheRepo.Get(ctx, regionsCacheKey)
	if err != nil {
		uc.logger.Warn("Failed to get regions from cache", zap.Error(err))
	}
	if cached != nil {
		return cached, nil
	}

	v, err, shared := uc.group.Do(regionsCacheKey, func() (interface{}, error) {
		fc, err := uc.permitRepo.All(ctx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(fc)
		if err != nil {
			uc.logger.Error("Failed to encode regions", zap.Error(err))
			return nil, errors.ErrInternalServer
		}
		if err := uc.cacheRepo.Set(ctx, regionsCacheKey, raw, uc.regionsTTL); err != nil {
			uc.logger.Warn("Failed to cache regions", zap.Error(err))
		}
		uc.logger.Info("Regions loaded from database", zap.Int("count", len(fc.Features)))
		return raw, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		uc.logger.Debug("Regions load shared with concurrent caller")
	}
	return v.([]byte), nil
}

// At возвращает разрешения в точке
func (uc *PermitUseCase) At(ctx context.Context, lat, lon float64) ([]*domain.PermitItem, error) {
	if !utils.ValidateCoordinates(lat, lon) {
		return nil, errors.ErrInvalidCoordinates
	}

	items, err := uc.permitRepo.At(ctx, lat, lon)
	if err != nil {
		uc.logger.Error("Failed to get permits at point",
			zap.Float64("lat", lat),
			zap.Float64("lon", lon),
			zap.Error(err))
		return nil, err
	}
	return items, nil
}

// Search - поиск с лимитом по умолчанию
func (uc *PermitUseCase) Search(ctx context.Context, query string) ([]*domain.PermitItem, error) {
	return uc.SearchLimit(ctx, query, uc.searchLimit)
}

// SearchLimit выполняет полнотекстовый поиск; результаты кешируются
func (uc *PermitUseCase) SearchLimit(ctx context.Context, query string, limit int) ([]*domain.PermitItem, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.ErrInvalidRequest.WithDetails(map[string]interface{}{
			"field": "q",
		})
	}
	if limit <= 0 {
		limit = uc.searchLimit
	}

	key := fmt.Sprintf("%s%d:%s", searchCachePrefix, limit, strings.ToLower(query))
	if cached, err := uc.cacheRepo.Get(ctx, key); err != nil {
		uc.logger.Warn("Failed to get search from cache", zap.Error(err))
	} else if cached != nil {
		var items []*domain.PermitItem
		if err := json.Unmarshal(cached, &items); err == nil {
			uc.logger.Debug("Search served from cache", zap.String("query", query))
			return items, nil
		}
		uc.logger.Warn("Discarding undecodable search cache entry", zap.String("key", key))
	}

	items, err := uc.permitRepo.Search(ctx, query, limit)
	if err != nil {
		uc.logger.Error("Failed to search permits", zap.String("query", query), zap.Error(err))
		return nil, err
	}

	if raw, err := json.Marshal(items); err == nil {
		if err := uc.cacheRepo.Set(ctx, key, raw, uc.searchTTL); err != nil {
			uc.logger.Warn("Failed to cache search results", zap.Error(err))
		}
	}

	return items, nil
}

// InvalidateCache сбрасывает все кеши разрешений
func (uc *PermitUseCase) InvalidateCache(ctx context.Context) error {
	n, err := uc.cacheRepo.DeletePrefix(ctx, CachePrefix)
	if err != nil {
		return fmt.Errorf("invalidate permit cache: %w", err)
	}
	uc.logger.Info("Permit cache invalidated", zap.Int("keys", n))
	return nil
}
