package domain

import (
	"fmt"
	"strconv"

	"github.com/paulmach/orb"
)

// ImportRecord - одна запись для импорта: регион и поля
type ImportRecord struct {
	Township string
	Region   orb.MultiPolygon
	Fields   PermitFields
}

// ImportResult - итог импорта одного файла/коллекции
type ImportResult struct {
	Township string `json:"township"`
	Total    int    `json:"total"`
	Imported int    `json:"imported"`
	Touched  int    `json:"touched"`
	Skipped  int    `json:"skipped"`
}

// ToMultiPolygon приводит геометрию к MultiPolygon.
// Данные посёлков смешивают Polygon и MultiPolygon; храним только второй.
func ToMultiPolygon(g orb.Geometry) (orb.MultiPolygon, error) {
	switch v := g.(type) {
	case orb.Polygon:
		return orb.MultiPolygon{v}, nil
	case orb.MultiPolygon:
		return v, nil
	case nil:
		return nil, fmt.Errorf("empty geometry")
	default:
		return nil, fmt.Errorf("unsupported geometry type %s", g.GeoJSONType())
	}
}

func toString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return fmt.Sprint(v)
	}
}
