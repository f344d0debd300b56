// Package mapview синхронизирует оверлеи карты (заливка регионов, маркеры,
// камера) с внешним объектом привязки. Сам движок отрисовки внешний:
// пакет только управляет им через интерфейс Surface.
package mapview

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Unsubscribe отменяет подписку. Повторный вызов безопасен.
type Unsubscribe func()

// Style - стиль фичи. Visible: nil - значение по умолчанию (видима),
// false - скрыта.
type Style struct {
	FillColor   string  `json:"fill_color,omitempty"`
	FillOpacity float64 `json:"fill_opacity,omitempty"`
	Visible     *bool   `json:"visible,omitempty"`
}

// StyleFunc вычисляет базовый стиль фичи
type StyleFunc func(f *geojson.Feature) Style

// ColorFunc сопоставляет категории цвет заливки
type ColorFunc func(category string) string

// Marker - маркер на карте. Remove освобождает его; повторный вызов - no-op.
type Marker interface {
	Remove()
}

// Surface - примитивы внешнего движка карты, которыми пользуется ядро
type Surface interface {
	SetCenter(center orb.Point)
	FitBounds(bounds orb.Bound)
	PanToBounds(bounds orb.Bound)

	// AddFeatures добавляет фичи; i-й возвращённый хендл соответствует
	// fc.Features[i].
	AddFeatures(fc *geojson.FeatureCollection) []*geojson.Feature
	SetStyle(fn StyleFunc)
	RevertStyle()
	OverrideStyle(f *geojson.Feature, style Style)

	AddMarker(position orb.Point) Marker

	// OnceIdle - одноразовый слушатель следующего сигнала idle
	OnceIdle(fn func()) Unsubscribe
	// OnFeatureClick - слушатель клика по фичам оверлея
	OnFeatureClick(fn func(at orb.Point)) Unsubscribe
}

// SurfaceOptions - параметры создания карты
type SurfaceOptions struct {
	Zoom             int
	DisableDefaultUI bool

	// Dispatch доставляет события поверхности (idle, click) в цикл
	// событий сессии. nil - вызов на месте.
	Dispatch func(fn func())
}

// SurfaceFactory создаёт поверхность карты
type SurfaceFactory func(opts SurfaceOptions) Surface

func boolPtr(v bool) *bool {
	return &v
}
