package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/permit-map/internal/domain"
	"github.com/permit-map/internal/domain/repository"
)

type statsRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewStatsRepository создает новый экземпляр stats repository
func NewStatsRepository(db *DB, logger *zap.Logger) repository.StatsRepository {
	return &statsRepository{
		db:     db,
		logger: logger,
	}
}

// GetStatistics возвращает агрегированную статистику по разрешениям
func (r *statsRepository) GetStatistics(ctx context.Context) (*domain.Statistics, error) {
	stats := &domain.Statistics{
		LastUpdated: time.Now(),
	}

	byTownship, err := r.countBy(ctx, "township")
	if err != nil {
		r.logger.Error("failed to get township stats", zap.Error(err))
		return nil, fmt.Errorf("get township stats: %w", err)
	}
	stats.ByTownship = byTownship
	for _, n := range byTownship {
		stats.TotalAreas += n
	}

	byCategory, err := r.countBy(ctx, "category")
	if err != nil {
		r.logger.Error("failed to get category stats", zap.Error(err))
		return nil, fmt.Errorf("get category stats: %w", err)
	}
	stats.ByCategory = byCategory

	if err := r.db.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM permit_data`).Scan(&stats.TotalRecords); err != nil {
		r.logger.Error("failed to count permit records", zap.Error(err))
		return nil, fmt.Errorf("count permit records: %w", err)
	}

	if err := r.coverage(ctx, stats); err != nil {
		r.logger.Error("failed to get coverage stats", zap.Error(err))
		return nil, fmt.Errorf("get coverage stats: %w", err)
	}

	return stats, nil
}

// countBy группирует permit_area по колонке из фиксированного набора
func (r *statsRepository) countBy(ctx context.Context, column string) (map[string]int, error) {
	if column != "township" && column != "category" {
		return nil, fmt.Errorf("unsupported column %q", column)
	}

	query := fmt.Sprintf(`
		SELECT %[1]s, COUNT(*) AS count
		FROM permit_area
		GROUP BY %[1]s
		ORDER BY %[1]s
	`, column)

	rows, err := r.db.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s stats: %w", column, err)
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return nil, fmt.Errorf("scan %s stats: %w", column, err)
		}
		result[key] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s stats rows error: %w", column, err)
	}
	return result, nil
}

func (r *statsRepository) coverage(ctx context.Context, stats *domain.Statistics) error {
	query := `
		SELECT
			MIN(first_seen), MAX(last_seen),
			ST_XMin(ST_Extent(region)), ST_YMin(ST_Extent(region)),
			ST_XMax(ST_Extent(region)), ST_YMax(ST_Extent(region))
		FROM permit_area
	`

	var first, last sql.NullTime
	var minLon, minLat, maxLon, maxLat sql.NullFloat64
	err := r.db.DB.QueryRowContext(ctx, query).Scan(&first, &last, &minLon, &minLat, &maxLon, &maxLat)
	if err != nil {
		return fmt.Errorf("query coverage: %w", err)
	}

	if first.Valid {
		m := domain.MonthOf(first.Time)
		stats.FirstSeen = &m
	}
	if last.Valid {
		m := domain.MonthOf(last.Time)
		stats.LastSeen = &m
	}
	if minLon.Valid && minLat.Valid && maxLon.Valid && maxLat.Valid {
		stats.Extent = &orb.Bound{
			Min: orb.Point{minLon.Float64, minLat.Float64},
			Max: orb.Point{maxLon.Float64, maxLat.Float64},
		}
	}
	return nil
}
