package domain

import (
	"fmt"

	"github.com/paulmach/orb/geojson"
)

// Свойства GeoJSON-фичи региона
const (
	PropID        = "id"
	PropCategory  = "category"
	PropTownship  = "township"
	PropFirstSeen = "first_seen"
	PropLastSeen  = "last_seen"
)

// Region - полигон разрешения с метаданными категории, посёлка и периода
type Region struct {
	Feature   *geojson.Feature `json:"-"`
	Category  string           `json:"category"`
	Township  string           `json:"township"`
	FirstSeen Month            `json:"first_seen"`
	LastSeen  Month            `json:"last_seen"`
}

// NewRegion читает свойства фичи и один раз переводит first_seen/last_seen
// в месяцы. Нормализованные значения записываются обратно в свойства,
// поэтому повторный вызов на той же фиче даёт тот же результат.
func NewRegion(f *geojson.Feature) (*Region, error) {
	if f == nil {
		return nil, fmt.Errorf("nil feature")
	}
	if f.Properties == nil {
		f.Properties = geojson.Properties{}
	}

	first, err := ToMonth(f.Properties[PropFirstSeen])
	if err != nil {
		return nil, fmt.Errorf("feature %v: %s: %w", f.ID, PropFirstSeen, err)
	}
	last, err := ToMonth(f.Properties[PropLastSeen])
	if err != nil {
		return nil, fmt.Errorf("feature %v: %s: %w", f.ID, PropLastSeen, err)
	}

	f.Properties[PropFirstSeen] = first.String()
	f.Properties[PropLastSeen] = last.String()

	return &Region{
		Feature:   f,
		Category:  f.Properties.MustString(PropCategory, ""),
		Township:  f.Properties.MustString(PropTownship, ""),
		FirstSeen: first,
		LastSeen:  last,
	}, nil
}
