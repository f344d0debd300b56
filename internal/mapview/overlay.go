package mapview

import (
	"context"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/permit-map/internal/domain"
)

// DefaultFillOpacity - прозрачность заливки регионов
const DefaultFillOpacity = 0.5

// RegionSource отдаёт коллекцию регионов
type RegionSource interface {
	Regions(ctx context.Context) (*geojson.FeatureCollection, error)
}

// RegionSourceFunc - адаптер функции к RegionSource
type RegionSourceFunc func(ctx context.Context) (*geojson.FeatureCollection, error)

func (f RegionSourceFunc) Regions(ctx context.Context) (*geojson.FeatureCollection, error) {
	return f(ctx)
}

// RegionOverlay владеет отрисованными регионами, их стилем и
// переопределениями видимости. Не потокобезопасен: все методы, кроме
// Fetch, вызываются из цикла событий сессии.
type RegionOverlay struct {
	surface Surface
	logger  *zap.Logger
	opacity float64
	onClick func(at orb.Point)

	group   singleflight.Group
	regions []*domain.Region
	loaded  bool
	loadErr error

	styled      bool
	colorSource func() ColorFunc
	unsubClick  Unsubscribe
}

// NewRegionOverlay создаёт оверлей. onClick получает координату клика по
// региону.
func NewRegionOverlay(surface Surface, opacity float64, onClick func(at orb.Point), logger *zap.Logger) *RegionOverlay {
	if opacity <= 0 {
		opacity = DefaultFillOpacity
	}
	return &RegionOverlay{
		surface: surface,
		logger:  logger,
		opacity: opacity,
		onClick: onClick,
	}
}

// Load загружает регионы один раз; после успеха возвращает кеш.
func (o *RegionOverlay) Load(ctx context.Context, source RegionSource) ([]*domain.Region, error) {
	if o.loaded {
		return o.regions, nil
	}
	fc, err := o.Fetch(ctx, source)
	return o.Install(fc, err)
}

// Fetch получает коллекцию из источника. Параллельные вызовы
// схлопываются в один запрос. Безопасен вне цикла событий.
func (o *RegionOverlay) Fetch(ctx context.Context, source RegionSource) (*geojson.FeatureCollection, error) {
	v, err, _ := o.group.Do("regions", func() (interface{}, error) {
		return source.Regions(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch regions: %w", err)
	}
	fc, _ := v.(*geojson.FeatureCollection)
	if fc == nil {
		return nil, fmt.Errorf("fetch regions: empty response: %w", ErrNotLoaded)
	}
	return fc, nil
}

// Install добавляет полученную коллекцию на карту. Даты переводятся в
// месяцы до того, как поверхность увидит фичи; при ошибке разбора карта
// не меняется и оверлей остаётся незагруженным.
func (o *RegionOverlay) Install(fc *geojson.FeatureCollection, fetchErr error) ([]*domain.Region, error) {
	if o.loaded {
		return o.regions, nil
	}
	if fetchErr != nil {
		o.loadErr = fetchErr
		return nil, fetchErr
	}

	regions := make([]*domain.Region, 0, len(fc.Features))
	for _, f := range fc.Features {
		r, err := domain.NewRegion(f)
		if err != nil {
			o.loadErr = fmt.Errorf("parse regions: %w", err)
			return nil, o.loadErr
		}
		regions = append(regions, r)
	}

	handles := o.surface.AddFeatures(fc)
	for i := range regions {
		if i < len(handles) && handles[i] != nil {
			regions[i].Feature = handles[i]
		}
	}

	o.regions = regions
	o.loaded = true
	o.loadErr = nil

	o.logger.Info("Regions loaded", zap.Int("count", len(regions)))
	return regions, nil
}

func (o *RegionOverlay) Loaded() bool {
	return o.loaded
}

// LoadErr - ошибка последней неудачной загрузки
func (o *RegionOverlay) LoadErr() error {
	return o.loadErr
}

func (o *RegionOverlay) Regions() []*domain.Region {
	return o.regions
}

// SetColorSource задаёт источник актуальной функции цвета. Правило стиля
// спрашивает его при каждой отрисовке фичи; вызывается с любой горутины.
func (o *RegionOverlay) SetColorSource(source func() ColorFunc) {
	o.colorSource = source
}

// ApplyColorFunction устанавливает постоянное правило стиля и один раз
// подключает обработчик клика. Цвет берётся из источника (SetColorSource),
// colorOf - запасной вариант, пока источник пуст. Возвращает true, если
// подключение произошло именно в этом вызове.
func (o *RegionOverlay) ApplyColorFunction(colorOf ColorFunc) bool {
	if colorOf == nil || o.styled {
		return false
	}
	o.styled = true

	opacity := o.opacity
	source := o.colorSource
	o.surface.SetStyle(func(f *geojson.Feature) Style {
		fn := colorOf
		if source != nil {
			if current := source(); current != nil {
				fn = current
			}
		}
		return Style{
			FillColor:   fn(f.Properties.MustString(domain.PropCategory, "")),
			FillOpacity: opacity,
		}
	})

	o.unsubClick = o.surface.OnFeatureClick(func(at orb.Point) {
		o.logger.Debug("Region clicked",
			zap.Float64("lat", at.Lat()),
			zap.Float64("lon", at.Lon()))
		if o.onClick != nil {
			o.onClick(at)
		}
	})
	return true
}

// ApplyFilter пересчитывает переопределения видимости целиком: сначала
// сброс всех переопределений, затем скрытие невидимых регионов. До
// загрузки - no-op. Возвращает число скрытых регионов.
func (o *RegionOverlay) ApplyFilter(f *domain.FilterState) int {
	if !o.loaded {
		return 0
	}

	o.surface.RevertStyle()
	if f == nil {
		return 0
	}

	hidden := 0
	for _, r := range o.regions {
		if IsVisible(r, f) {
			continue
		}
		o.surface.OverrideStyle(r.Feature, Style{Visible: boolPtr(false)})
		hidden++
	}

	o.logger.Debug("Filter applied",
		zap.Int("regions", len(o.regions)),
		zap.Int("hidden", hidden))
	return hidden
}

// Close отключает обработчик клика
func (o *RegionOverlay) Close() {
	if o.unsubClick != nil {
		o.unsubClick()
		o.unsubClick = nil
	}
}
