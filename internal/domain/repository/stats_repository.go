package repository

import (
	"context"

	"github.com/permit-map/internal/domain"
)

// StatsRepository определяет методы для получения статистики
type StatsRepository interface {
	// GetStatistics возвращает агрегированную статистику по разрешениям
	GetStatistics(ctx context.Context) (*domain.Statistics, error)
}
