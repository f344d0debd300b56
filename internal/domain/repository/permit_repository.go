package repository

import (
	"context"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/permit-map/internal/domain"
)

// PermitRepository определяет методы для работы с регионами и записями разрешений
type PermitRepository interface {
	// All возвращает все регионы как FeatureCollection со свойствами
	// id, category, township, first_seen, last_seen
	All(ctx context.Context) (*geojson.FeatureCollection, error)

	// At возвращает разрешения, регион которых содержит точку
	At(ctx context.Context, lat, lon float64) ([]*domain.PermitItem, error)

	// Search выполняет полнотекстовый поиск по данным разрешений
	Search(ctx context.Context, query string, limit int) ([]*domain.PermitItem, error)

	// Exists ищет регион с той же геометрией и теми же полями;
	// возвращает его ID
	Exists(ctx context.Context, rec *domain.ImportRecord) (int64, bool, error)

	// Insert сохраняет запись: регион с той же геометрией переиспользуется,
	// к нему добавляется новая строка данных
	Insert(ctx context.Context, rec *domain.ImportRecord, seen time.Time) (int64, error)

	// Touch продлевает last_seen региона
	Touch(ctx context.Context, id int64, seen time.Time) error

	// RefreshSearchIndex пересчитывает полнотекстовый индекс
	RefreshSearchIndex(ctx context.Context) error

	// Truncate удаляет все регионы и данные
	Truncate(ctx context.Context) error
}
