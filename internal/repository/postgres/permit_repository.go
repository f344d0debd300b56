package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/permit-map/internal/domain"
	"github.com/permit-map/internal/domain/repository"
	"github.com/permit-map/internal/pkg/errors"
)

// Колонки PermitItem: регион + последняя строка данных (алиас d)
const permitColumns = `
	a.id, a.category, a.township, a.first_seen, a.last_seen,
	COALESCE(d.name, '') AS name,
	COALESCE(d.proj_id, '') AS proj_id,
	COALESCE(d.link, '') AS link,
	COALESCE(d.status, '') AS status,
	COALESCE(d.comment, '') AS comment,
	ST_X(ST_Centroid(a.region)) AS centroid_lon,
	ST_Y(ST_Centroid(a.region)) AS centroid_lat,
	ST_XMin(a.region) AS min_lon,
	ST_YMin(a.region) AS min_lat,
	ST_XMax(a.region) AS max_lon,
	ST_YMax(a.region) AS max_lat`

const latestData = `
	LEFT JOIN LATERAL (
		SELECT name, proj_id, link, status, comment
		FROM permit_data
		WHERE owner = a.id
		ORDER BY saved_on DESC, id DESC
		LIMIT 1
	) d ON TRUE`

const searchDocument = `concat_ws(' ', name, proj_id, status, comment, category)`

type permitRow struct {
	ID          int64     `db:"id"`
	Category    string    `db:"category"`
	Township    string    `db:"township"`
	FirstSeen   time.Time `db:"first_seen"`
	LastSeen    time.Time `db:"last_seen"`
	Name        string    `db:"name"`
	ProjID      string    `db:"proj_id"`
	Link        string    `db:"link"`
	Status      string    `db:"status"`
	Comment     string    `db:"comment"`
	CentroidLon float64   `db:"centroid_lon"`
	CentroidLat float64   `db:"centroid_lat"`
	MinLon      float64   `db:"min_lon"`
	MinLat      float64   `db:"min_lat"`
	MaxLon      float64   `db:"max_lon"`
	MaxLat      float64   `db:"max_lat"`
}

func (r permitRow) toItem() *domain.PermitItem {
	return &domain.PermitItem{
		ID:        r.ID,
		Name:      r.Name,
		ProjID:    r.ProjID,
		Link:      r.Link,
		Status:    r.Status,
		Comment:   r.Comment,
		Category:  r.Category,
		Township:  r.Township,
		FirstSeen: domain.MonthOf(r.FirstSeen),
		LastSeen:  domain.MonthOf(r.LastSeen),
		Centroid:  orb.Point{r.CentroidLon, r.CentroidLat},
		Extent: orb.Bound{
			Min: orb.Point{r.MinLon, r.MinLat},
			Max: orb.Point{r.MaxLon, r.MaxLat},
		},
	}
}

type permitRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewPermitRepository(db *DB) repository.PermitRepository {
	return &permitRepository{
		db:     db.DB,
		logger: db.logger,
	}
}

func (r *permitRepository) All(ctx context.Context) (*geojson.FeatureCollection, error) {
	query := `
		SELECT json_build_object(
			'type', 'FeatureCollection',
			'features', COALESCE(json_agg(json_build_object(
				'type', 'Feature',
				'id', a.id,
				'geometry', ST_AsGeoJSON(a.region)::json,
				'properties', json_build_object(
					'id', a.id,
					'category', a.category,
					'township', a.township,
					'first_seen', to_char(a.first_seen, 'YYYY-MM'),
					'last_seen', to_char(a.last_seen, 'YYYY-MM')
				)
			) ORDER BY a.id), '[]'::json)
		)
		FROM permit_area a
	`

	var raw []byte
	if err := r.db.QueryRowContext(ctx, query).Scan(&raw); err != nil {
		r.logger.Error("Failed to load permit regions", zap.Error(err))
		return nil, errors.ErrDatabaseError
	}

	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		r.logger.Error("Failed to decode permit regions", zap.Error(err))
		return nil, errors.ErrDatabaseError
	}

	r.logger.Debug("Permit regions loaded", zap.Int("count", len(fc.Features)))
	return fc, nil
}

func (r *permitRepository) At(ctx context.Context, lat, lon float64) ([]*domain.PermitItem, error) {
	query := `
		SELECT ` + permitColumns + `
		FROM permit_area a` + latestData + `
		WHERE ST_Contains(a.region, ST_SetSRID(ST_MakePoint($1, $2), 4326))
		ORDER BY a.last_seen DESC, a.id
	`

	var rows []permitRow
	if err := r.db.SelectContext(ctx, &rows, query, lon, lat); err != nil {
		r.logger.Error("Failed to get permits at point",
			zap.Float64("lat", lat),
			zap.Float64("lon", lon),
			zap.Error(err))
		return nil, errors.ErrDatabaseError
	}

	return toItems(rows), nil
}

func (r *permitRepository) Search(ctx context.Context, query string, limit int) ([]*domain.PermitItem, error) {
	sqlQuery := `
		WITH q AS (SELECT plainto_tsquery('english', $1) AS query),
		matches AS (
			SELECT DISTINCT ON (pd.owner) pd.owner, ts_rank(pd.search_index, q.query) AS rank
			FROM permit_data pd, q
			WHERE pd.search_index @@ q.query
			ORDER BY pd.owner, rank DESC
		)
		SELECT ` + permitColumns + `
		FROM matches m
		JOIN permit_area a ON a.id = m.owner` + latestData + `
		ORDER BY m.rank DESC, a.last_seen DESC, a.id
		LIMIT $2
	`

	var rows []permitRow
	if err := r.db.SelectContext(ctx, &rows, sqlQuery, query, limit); err != nil {
		r.logger.Error("Failed to search permits",
			zap.String("query", query),
			zap.Error(err))
		return nil, errors.ErrDatabaseError
	}

	return toItems(rows), nil
}

func (r *permitRepository) Exists(ctx context.Context, rec *domain.ImportRecord) (int64, bool, error) {
	geom, err := regionJSON(rec.Region)
	if err != nil {
		return 0, false, errors.ErrInvalidRequest
	}

	query := `
		SELECT a.id
		FROM permit_area a
		JOIN permit_data d ON d.owner = a.id
		WHERE a.township = $1
			AND ST_Equals(a.region, ST_SetSRID(ST_GeomFromGeoJSON($2), 4326))
			AND d.name IS NOT DISTINCT FROM NULLIF($3, '')
			AND d.comment IS NOT DISTINCT FROM NULLIF($4, '')
			AND d.category IS NOT DISTINCT FROM NULLIF($5, '')
			AND d.proj_id IS NOT DISTINCT FROM NULLIF($6, '')
			AND d.link IS NOT DISTINCT FROM NULLIF($7, '')
			AND d.status IS NOT DISTINCT FROM NULLIF($8, '')
		LIMIT 1
	`

	f := rec.Fields
	var id int64
	err = r.db.QueryRowContext(ctx, query,
		rec.Township, geom, f.Name, f.Comment, f.Category, f.ProjID, f.Link, f.Status,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		r.logger.Error("Failed to check permit duplicate", zap.Error(err))
		return 0, false, errors.ErrDatabaseError
	}
	return id, true, nil
}

func (r *permitRepository) Insert(ctx context.Context, rec *domain.ImportRecord, seen time.Time) (int64, error) {
	geom, err := regionJSON(rec.Region)
	if err != nil {
		return 0, errors.ErrInvalidRequest
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		r.logger.Error("Failed to begin transaction", zap.Error(err))
		return 0, errors.ErrDatabaseError
	}
	defer tx.Rollback()

	var areaID int64
	err = tx.QueryRowxContext(ctx, `
		SELECT id FROM permit_area
		WHERE township = $1 AND ST_Equals(region, ST_SetSRID(ST_GeomFromGeoJSON($2), 4326))
		LIMIT 1
		FOR UPDATE
	`, rec.Township, geom).Scan(&areaID)

	switch {
	case err == sql.ErrNoRows:
		err = tx.QueryRowxContext(ctx, `
			INSERT INTO permit_area (region, category, township, first_seen, last_seen)
			VALUES (ST_Multi(ST_SetSRID(ST_GeomFromGeoJSON($1), 4326)), $2, $3, $4, $4)
			RETURNING id
		`, geom, rec.Fields.Category, rec.Township, seen).Scan(&areaID)
		if err != nil {
			r.logger.Error("Failed to insert permit area", zap.Error(err))
			return 0, errors.ErrDatabaseError
		}
	case err != nil:
		r.logger.Error("Failed to look up permit area", zap.Error(err))
		return 0, errors.ErrDatabaseError
	default:
		if _, err := tx.ExecContext(ctx, `
			UPDATE permit_area
			SET last_seen = GREATEST(last_seen, $2), category = COALESCE(NULLIF($3, ''), category)
			WHERE id = $1
		`, areaID, seen, rec.Fields.Category); err != nil {
			r.logger.Error("Failed to update permit area", zap.Int64("id", areaID), zap.Error(err))
			return 0, errors.ErrDatabaseError
		}
	}

	f := rec.Fields
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO permit_data (owner, name, proj_id, link, status, comment, category, saved_on)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), $8)
	`, areaID, f.Name, f.ProjID, f.Link, f.Status, f.Comment, f.Category, seen); err != nil {
		r.logger.Error("Failed to insert permit data", zap.Int64("owner", areaID), zap.Error(err))
		return 0, errors.ErrDatabaseError
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("Failed to commit permit insert", zap.Error(err))
		return 0, errors.ErrDatabaseError
	}
	return areaID, nil
}

func (r *permitRepository) Touch(ctx context.Context, id int64, seen time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE permit_area SET last_seen = GREATEST(last_seen, $2) WHERE id = $1`, id, seen)
	if err != nil {
		r.logger.Error("Failed to touch permit area", zap.Int64("id", id), zap.Error(err))
		return errors.ErrDatabaseError
	}
	return nil
}

func (r *permitRepository) RefreshSearchIndex(ctx context.Context) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE permit_data SET search_index = to_tsvector('english', `+searchDocument+`)`)
	if err != nil {
		r.logger.Error("Failed to refresh search index", zap.Error(err))
		return errors.ErrDatabaseError
	}
	n, _ := res.RowsAffected()
	r.logger.Info("Search index refreshed", zap.Int64("rows", n))
	return nil
}

func (r *permitRepository) Truncate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `TRUNCATE TABLE permit_data, permit_area RESTART IDENTITY`); err != nil {
		r.logger.Error("Failed to truncate permits", zap.Error(err))
		return errors.ErrDatabaseError
	}
	r.logger.Info("Permit tables truncated")
	return nil
}

func toItems(rows []permitRow) []*domain.PermitItem {
	items := make([]*domain.PermitItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toItem())
	}
	return items
}

func regionJSON(region orb.MultiPolygon) (string, error) {
	raw, err := json.Marshal(geojson.NewGeometry(region))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
