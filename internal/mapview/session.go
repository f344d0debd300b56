package mapview

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/permit-map/internal/domain"
)

const (
	// DefaultZoom - начальный зум карты
	DefaultZoom = 15

	defaultLookupTimeout = 10 * time.Second
)

// Lookup - внешняя точка поиска разрешений
type Lookup interface {
	// At возвращает разрешения в точке клика
	At(ctx context.Context, lat, lon float64) ([]*domain.PermitItem, error)
	// Search выполняет текстовый поиск
	Search(ctx context.Context, query string) ([]*domain.PermitItem, error)
}

// Options - параметры сессии карты
type Options struct {
	Zoom          int
	FillOpacity   float64
	DefaultExtent orb.Bound
	LookupTimeout time.Duration
}

// Status - состояние загрузки регионов
type Status struct {
	Loaded    bool   `json:"loaded"`
	Regions   int    `json:"regions"`
	Markers   int    `json:"markers"`
	LoadError string `json:"load_error,omitempty"`
}

// Session - корень композиции: создаёт карту, один раз загружает регионы и
// подписывает оверлей, маркеры и камеру на свои срезы Binding.
type Session struct {
	surface  Surface
	binding  *Binding
	source   RegionSource
	lookup   Lookup
	opts     Options
	logger   *zap.Logger
	loop     *eventLoop
	overlay  *RegionOverlay
	markers  *MarkerSet
	viewport *ViewportController

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	started      bool
	unsubs       []Unsubscribe
	colorUnsub   Unsubscribe
	colorLatched bool // читается и пишется только в цикле событий
}

// NewSession создаёт карту через factory (фиксированный зум, без
// стандартных элементов управления). Подписки появляются в Start.
func NewSession(
	factory SurfaceFactory,
	binding *Binding,
	source RegionSource,
	lookup Lookup,
	opts Options,
	logger *zap.Logger,
) *Session {
	if opts.Zoom == 0 {
		opts.Zoom = DefaultZoom
	}
	if opts.LookupTimeout == 0 {
		opts.LookupTimeout = defaultLookupTimeout
	}

	loop := newEventLoop()
	ctx, cancel := context.WithCancel(context.Background())

	s := &Session{
		binding: binding,
		source:  source,
		lookup:  lookup,
		opts:    opts,
		logger:  logger,
		loop:    loop,
		ctx:     ctx,
		cancel:  cancel,
	}

	s.surface = factory(SurfaceOptions{
		Zoom:             opts.Zoom,
		DisableDefaultUI: true,
		Dispatch: func(fn func()) {
			loop.post(fn)
		},
	})
	s.overlay = NewRegionOverlay(s.surface, opts.FillOpacity, s.onRegionClick, logger)
	s.overlay.SetColorSource(binding.ColorOf)
	s.markers = NewMarkerSet(s.surface)
	s.viewport = NewViewportController(s.surface)

	return s
}

// Surface возвращает поверхность карты сессии
func (s *Session) Surface() Surface {
	return s.surface
}

// Binding возвращает объект привязки сессии
func (s *Session) Binding() *Binding {
	return s.binding
}

// Start запускает цикл событий, выставляет камеру на охват по умолчанию,
// запускает загрузку регионов и подписывается на Binding.
func (s *Session) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	go s.loop.run()

	extent := s.opts.DefaultExtent
	s.loop.post(func() {
		s.surface.SetCenter(extent.Center())
		s.surface.FitBounds(extent)
	})

	s.loadRegions()
	s.subscribe()
}

func (s *Session) subscribe() {
	colorUnsub := s.binding.WatchColor(func(colorOf ColorFunc) {
		s.loop.post(func() { s.onColorChanged(colorOf) })
	})
	s.mu.Lock()
	s.colorUnsub = colorUnsub
	s.mu.Unlock()
	// Первый непустой colorOf мог прийти до сохранения отписки
	s.loop.post(func() {
		if s.colorLatched {
			colorUnsub()
		}
	})

	filtersUnsub := s.binding.WatchFilters(func(newState, _ *domain.FilterState) {
		s.loop.post(func() { s.overlay.ApplyFilter(newState) })
	})
	boundsUnsub := s.binding.WatchBounds(func(newBounds, _ *orb.Bound) {
		s.loop.post(func() { s.viewport.OnBoundsChanged(newBounds) })
	})
	permitsUnsub := s.binding.WatchPermits(func(newList, oldList []*domain.PermitItem) {
		s.loop.post(func() { s.markers.OnListChanged(oldList, newList) })
	})

	s.mu.Lock()
	s.unsubs = append(s.unsubs, filtersUnsub, boundsUnsub, permitsUnsub)
	s.mu.Unlock()
}

// onColorChanged: защёлка - флаг и отписка после первого непустого colorOf
func (s *Session) onColorChanged(colorOf ColorFunc) {
	if s.colorLatched || colorOf == nil {
		return
	}
	if !s.overlay.ApplyColorFunction(colorOf) {
		return
	}
	s.colorLatched = true

	s.mu.Lock()
	unsub := s.colorUnsub
	s.mu.Unlock()
	if unsub != nil {
		unsub()
	}
	s.logger.Debug("Color function installed")
}

func (s *Session) loadRegions() {
	go func() {
		fc, err := s.overlay.Fetch(s.ctx, s.source)
		s.loop.post(func() {
			if _, err := s.overlay.Install(fc, err); err != nil {
				s.logger.Warn("Failed to load regions", zap.Error(err))
				return
			}
			s.overlay.ApplyFilter(s.binding.Filters())
		})
	}()
}

// Reload повторяет неудавшуюся загрузку регионов и ждёт её результата
func (s *Session) Reload(ctx context.Context) error {
	var loaded bool
	if err := s.loop.call(ctx, func() { loaded = s.overlay.Loaded() }); err != nil {
		return err
	}
	if loaded {
		return nil
	}

	fc, fetchErr := s.overlay.Fetch(ctx, s.source)

	var installErr error
	if err := s.loop.call(ctx, func() {
		if _, installErr = s.overlay.Install(fc, fetchErr); installErr != nil {
			return
		}
		s.overlay.ApplyFilter(s.binding.Filters())
	}); err != nil {
		return err
	}
	if installErr != nil {
		return fmt.Errorf("reload regions: %w", installErr)
	}
	return nil
}

// Search выполняет поиск и по успеху заменяет выбранный список.
// При ошибке список не меняется.
func (s *Session) Search(ctx context.Context, query string) ([]*domain.PermitItem, error) {
	items, err := s.lookup.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search permits: %w", err)
	}
	s.binding.SetList(domain.NewPermitList(items))
	return items, nil
}

// onRegionClick вызывается в цикле событий; поиск по точке уходит в
// отдельную горутину, результат заменяет выбранный список.
func (s *Session) onRegionClick(at orb.Point) {
	go func() {
		ctx, cancel := context.WithTimeout(s.ctx, s.opts.LookupTimeout)
		defer cancel()

		items, err := s.lookup.At(ctx, at.Lat(), at.Lon())
		if err != nil {
			s.logger.Warn("Failed to look up permits at point",
				zap.Float64("lat", at.Lat()),
				zap.Float64("lon", at.Lon()),
				zap.Error(err))
			return
		}
		if s.ctx.Err() != nil {
			return
		}
		s.binding.SetList(domain.NewPermitList(items))
	}()
}

// Status возвращает состояние загрузки и число маркеров
func (s *Session) Status(ctx context.Context) (Status, error) {
	var st Status
	err := s.loop.call(ctx, func() {
		st.Loaded = s.overlay.Loaded()
		st.Regions = len(s.overlay.Regions())
		st.Markers = s.markers.Len()
		if e := s.overlay.LoadErr(); e != nil {
			st.LoadError = e.Error()
		}
	})
	return st, err
}

// Sync ждёт, пока цикл событий обработает всё, что уже поставлено в очередь
func (s *Session) Sync(ctx context.Context) error {
	return s.loop.call(ctx, func() {})
}

// Close отписывается от Binding, освобождает маркеры и останавливает цикл
func (s *Session) Close() {
	s.mu.Lock()
	unsubs := s.unsubs
	s.unsubs = nil
	colorUnsub := s.colorUnsub
	started := s.started
	s.mu.Unlock()

	for _, u := range unsubs {
		u()
	}
	if colorUnsub != nil {
		colorUnsub()
	}
	s.cancel()

	if started {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.loop.call(ctx, func() {
			s.viewport.Cancel()
			s.markers.Clear()
			s.overlay.Close()
		}); err != nil {
			s.logger.Warn("Map session teardown incomplete", zap.Error(err))
		}
	}
	s.loop.stop()
}
