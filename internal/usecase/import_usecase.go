package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/permit-map/internal/domain"
	"github.com/permit-map/internal/domain/repository"
	"github.com/permit-map/internal/pkg/errors"
	"github.com/permit-map/internal/usecase/dto"
)

// CacheInvalidator сбрасывает кеши, зависящие от данных разрешений
type CacheInvalidator interface {
	InvalidateCache(ctx context.Context) error
}

// ImportUseCase загружает коллекции регионов посёлков в хранилище
type ImportUseCase struct {
	permitRepo  repository.PermitRepository
	streamRepo  repository.StreamRepository
	invalidator CacheInvalidator
	logger      *zap.Logger
	now         func() time.Time
	importDir   string
}

// NewImportUseCase создаёт ImportUseCase; now == nil - time.Now.
// streamRepo нужен только для Enqueue.
func NewImportUseCase(
	permitRepo repository.PermitRepository,
	streamRepo repository.StreamRepository,
	invalidator CacheInvalidator,
	logger *zap.Logger,
	now func() time.Time,
) *ImportUseCase {
	if now == nil {
		now = time.Now
	}
	return &ImportUseCase{
		permitRepo:  permitRepo,
		streamRepo:  streamRepo,
		invalidator: invalidator,
		logger:      logger,
		now:         now,
	}
}

// WithImportDir разрешает заданиям из стрима ссылаться на файлы внутри
// dir. Без каталога задания принимаются только со встроенной коллекцией.
func (uc *ImportUseCase) WithImportDir(dir string) *ImportUseCase {
	uc.importDir = dir
	return uc
}

// Import сохраняет интересующие записи коллекции.
// Запись с той же геометрией и теми же полями не дублируется: у её региона
// продлевается last_seen. После импорта пересчитывается поисковый индекс и
// сбрасывается кеш.
func (uc *ImportUseCase) Import(ctx context.Context, township string, fc *geojson.FeatureCollection) (*domain.ImportResult, error) {
	town, ok := domain.Townships[township]
	if !ok {
		return nil, errors.ErrUnknownTownship.WithDetails(map[string]interface{}{
			"township": township,
		})
	}
	if fc == nil {
		return nil, errors.ErrInvalidRequest
	}

	seen := uc.now()
	result := &domain.ImportResult{Township: township, Total: len(fc.Features)}

	for i, f := range fc.Features {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		rec, ok := uc.record(town, f)
		if !ok {
			result.Skipped++
			continue
		}

		id, exists, err := uc.permitRepo.Exists(ctx, rec)
		if err != nil {
			return result, err
		}
		if exists {
			if err := uc.permitRepo.Touch(ctx, id, seen); err != nil {
				return result, err
			}
			result.Touched++
			continue
		}

		if _, err := uc.permitRepo.Insert(ctx, rec, seen); err != nil {
			uc.logger.Error("Failed to insert permit",
				zap.String("township", township),
				zap.Int("feature", i),
				zap.Error(err))
			return result, err
		}
		result.Imported++
	}

	if err := uc.permitRepo.RefreshSearchIndex(ctx); err != nil {
		return result, err
	}
	if uc.invalidator != nil {
		if err := uc.invalidator.InvalidateCache(ctx); err != nil {
			uc.logger.Warn("Failed to invalidate cache after import", zap.Error(err))
		}
	}

	uc.logger.Info("Import completed",
		zap.String("township", township),
		zap.Int("total", result.Total),
		zap.Int("imported", result.Imported),
		zap.Int("touched", result.Touched),
		zap.Int("skipped", result.Skipped))

	return result, nil
}

func (uc *ImportUseCase) record(town domain.Township, f *geojson.Feature) (*domain.ImportRecord, bool) {
	if f == nil {
		return nil, false
	}
	region, err := domain.ToMultiPolygon(f.Geometry)
	if err != nil {
		uc.logger.Debug("Skipping feature with unusable geometry",
			zap.Any("id", f.ID),
			zap.Error(err))
		return nil, false
	}
	fields := town.Extract(f.Properties)
	if !town.Interesting(fields) {
		return nil, false
	}
	return &domain.ImportRecord{Township: town.Name, Region: region, Fields: fields}, true
}

// ImportFile читает GeoJSON FeatureCollection из файла и импортирует её
func (uc *ImportUseCase) ImportFile(ctx context.Context, township, path string) (*domain.ImportResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return uc.ImportBytes(ctx, township, raw)
}

// ImportBytes разбирает GeoJSON FeatureCollection и импортирует её
func (uc *ImportUseCase) ImportBytes(ctx context.Context, township string, raw []byte) (*domain.ImportResult, error) {
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return nil, errors.ErrInvalidRequest.WithDetails(map[string]interface{}{
			"reason": err.Error(),
		})
	}
	return uc.Import(ctx, township, fc)
}

// ImportEvent выполняет задание из стрима импорта
func (uc *ImportUseCase) ImportEvent(ctx context.Context, event *domain.PermitImportEvent) (*domain.ImportResult, error) {
	if event == nil {
		return nil, errors.ErrInvalidRequest
	}
	if _, ok := domain.Townships[event.Township]; !ok {
		return nil, errors.ErrUnknownTownship.WithDetails(map[string]interface{}{
			"township": event.Township,
		})
	}
	if event.Truncate {
		if err := uc.Truncate(ctx); err != nil {
			return nil, err
		}
	}
	if len(event.Features) > 0 {
		return uc.ImportBytes(ctx, event.Township, event.Features)
	}
	if event.Path == "" {
		return nil, errors.ErrInvalidRequest.WithDetails(map[string]interface{}{
			"reason": "path or features required",
		})
	}
	path, err := uc.resolveEventPath(event.Path)
	if err != nil {
		uc.logger.Warn("Import path rejected",
			zap.String("job_id", event.JobID.String()),
			zap.String("path", event.Path),
			zap.Error(err))
		return nil, errors.ErrInvalidRequest.WithDetails(map[string]interface{}{
			"reason": "path is outside the import directory",
		})
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		uc.logger.Error("Failed to read import file",
			zap.String("job_id", event.JobID.String()),
			zap.String("path", path),
			zap.Error(err))
		return nil, errors.ErrInvalidRequest.WithDetails(map[string]interface{}{
			"reason": "import file is not readable",
		})
	}
	return uc.ImportBytes(ctx, event.Township, raw)
}

// resolveEventPath приводит относительный путь задания к файлу внутри
// каталога импорта; выход за каталог (в том числе через симлинк) - ошибка
func (uc *ImportUseCase) resolveEventPath(path string) (string, error) {
	if uc.importDir == "" {
		return "", fmt.Errorf("file imports are disabled")
	}
	root, err := filepath.Abs(uc.importDir)
	if err != nil {
		return "", fmt.Errorf("import dir: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}

	clean := filepath.Clean(path)
	if filepath.IsAbs(clean) {
		return "", fmt.Errorf("absolute path %q", path)
	}
	full := filepath.Join(root, clean)
	if resolved, err := filepath.EvalSymlinks(full); err == nil {
		full = resolved
	}

	rel, err := filepath.Rel(root, full)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes import dir", path)
	}
	return full, nil
}

// Truncate удаляет все регионы и сбрасывает кеш
func (uc *ImportUseCase) Truncate(ctx context.Context) error {
	if err := uc.permitRepo.Truncate(ctx); err != nil {
		return err
	}
	uc.logger.Info("Permit tables truncated")
	if uc.invalidator != nil {
		if err := uc.invalidator.InvalidateCache(ctx); err != nil {
			uc.logger.Warn("Failed to invalidate cache after truncate", zap.Error(err))
		}
	}
	return nil
}

// Enqueue ставит задание импорта в стрим для воркера
func (uc *ImportUseCase) Enqueue(ctx context.Context, req *dto.ImportRequest) (uuid.UUID, error) {
	if uc.streamRepo == nil {
		return uuid.Nil, errors.ErrInternalServer
	}
	if _, ok := domain.Townships[req.Township]; !ok {
		return uuid.Nil, errors.ErrUnknownTownship.WithDetails(map[string]interface{}{
			"township": req.Township,
		})
	}

	event := &domain.PermitImportEvent{
		JobID:    uuid.New(),
		Township: req.Township,
		Truncate: req.Truncate,
		Features: req.Features,
	}
	if err := uc.streamRepo.PublishToStream(ctx, domain.StreamPermitImport, event); err != nil {
		uc.logger.Error("Failed to enqueue import",
			zap.String("township", req.Township),
			zap.Error(err))
		return uuid.Nil, err
	}

	uc.logger.Info("Import enqueued",
		zap.String("job_id", event.JobID.String()),
		zap.String("township", event.Township))
	return event.JobID, nil
}
