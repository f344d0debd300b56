// Package headless - реализация mapview.Surface без отрисовки. Состояние
// карты (камера, фичи с эффективным стилем, маркеры) хранится в памяти и
// отдаётся браузерному клиенту снимками; сигналы idle и клики приходят от
// клиента.
package headless

import (
	"sync"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/permit-map/internal/mapview"
)

// Свойства, которыми снимок дополняет фичи
const (
	PropFillColor   = "fill_color"
	PropFillOpacity = "fill_opacity"
	PropVisible     = "visible"
)

// Camera - последнее действие камеры
type Camera struct {
	Center orb.Point  `json:"center"`
	Bounds *orb.Bound `json:"bounds,omitempty"`
	Zoom   int        `json:"zoom"`
	Action string     `json:"action,omitempty"` // center | fit | pan
}

// MarkerState - маркер в снимке
type MarkerState struct {
	ID       string    `json:"id"`
	Position orb.Point `json:"position"`
}

// Snapshot - отрисованное состояние карты
type Snapshot struct {
	Revision         uint64                     `json:"revision"`
	DisableDefaultUI bool                       `json:"disable_default_ui"`
	Camera           Camera                     `json:"camera"`
	Features         *geojson.FeatureCollection `json:"features"`
	Markers          []MarkerState              `json:"markers"`
	PendingIdle      int                        `json:"pending_idle"`
}

// Surface - потокобезопасная поверхность в памяти
type Surface struct {
	mu       sync.Mutex
	opts     mapview.SurfaceOptions
	revision uint64
	camera   Camera

	features  []*geojson.Feature
	style     mapview.StyleFunc
	overrides map[*geojson.Feature]mapview.Style

	markers     map[string]*marker
	markerOrder []string

	nextListener int
	idle         map[int]func()
	idleOrder    []int
	clicks       map[int]func(at orb.Point)
}

var _ mapview.Surface = (*Surface)(nil)

// New создаёт поверхность; подходит как mapview.SurfaceFactory
func New(opts mapview.SurfaceOptions) mapview.Surface {
	return NewSurface(opts)
}

// NewSurface создаёт поверхность с конкретным типом
func NewSurface(opts mapview.SurfaceOptions) *Surface {
	return &Surface{
		opts:      opts,
		camera:    Camera{Zoom: opts.Zoom},
		overrides: make(map[*geojson.Feature]mapview.Style),
		markers:   make(map[string]*marker),
		idle:      make(map[int]func()),
		clicks:    make(map[int]func(at orb.Point)),
	}
}

func (s *Surface) SetCenter(center orb.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.camera.Center = center
	s.camera.Action = "center"
	s.revision++
}

func (s *Surface) FitBounds(bounds orb.Bound) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := bounds
	s.camera.Center = bounds.Center()
	s.camera.Bounds = &b
	s.camera.Action = "fit"
	s.revision++
}

func (s *Surface) PanToBounds(bounds orb.Bound) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := bounds
	s.camera.Center = bounds.Center()
	s.camera.Bounds = &b
	s.camera.Action = "pan"
	s.revision++
}

func (s *Surface) AddFeatures(fc *geojson.FeatureCollection) []*geojson.Feature {
	if fc == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.features = append(s.features, fc.Features...)
	s.revision++
	return fc.Features
}

func (s *Surface) SetStyle(fn mapview.StyleFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.style = fn
	s.revision++
}

func (s *Surface) RevertStyle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.overrides) == 0 {
		return
	}
	s.overrides = make(map[*geojson.Feature]mapview.Style)
	s.revision++
}

// OverrideStyle сливает style с ранее заданным переопределением
func (s *Surface) OverrideStyle(f *geojson.Feature, style mapview.Style) {
	if f == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[f] = merge(s.overrides[f], style)
	s.revision++
}

// Refresh отмечает новую ревизию: правило стиля читает внешнее состояние
// (палитру), и клиент должен перечитать снимок
func (s *Surface) Refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revision++
}

// Override возвращает текущее переопределение фичи
func (s *Surface) Override(f *geojson.Feature) (mapview.Style, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.overrides[f]
	return st, ok
}

// Overrides - число фич с переопределённым стилем
func (s *Surface) Overrides() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.overrides)
}

func (s *Surface) AddMarker(position orb.Point) mapview.Marker {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := &marker{id: uuid.NewString(), position: position, surface: s}
	s.markers[m.id] = m
	s.markerOrder = append(s.markerOrder, m.id)
	s.revision++
	return m
}

func (s *Surface) OnceIdle(fn func()) mapview.Unsubscribe {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.register()
	s.idle[id] = fn
	s.idleOrder = append(s.idleOrder, id)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.idle, id)
	}
}

func (s *Surface) OnFeatureClick(fn func(at orb.Point)) mapview.Unsubscribe {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.register()
	s.clicks[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.clicks, id)
	}
}

// Idle сообщает о стабильном кадре: снимает и вызывает все ожидающие
// одноразовые слушатели. Слушатели, добавленные во время вызова, ждут
// следующего Idle. Возвращает число вызванных слушателей.
func (s *Surface) Idle() int {
	s.mu.Lock()
	fired := make([]func(), 0, len(s.idle))
	for _, id := range s.idleOrder {
		if fn, ok := s.idle[id]; ok {
			fired = append(fired, fn)
			delete(s.idle, id)
		}
	}
	s.idleOrder = s.idleOrder[:0]
	s.mu.Unlock()

	for _, fn := range fired {
		s.dispatch(fn)
	}
	return len(fired)
}

// Click сообщает о клике. Слушатели вызываются, только если точка попала
// в видимую фичу.
func (s *Surface) Click(at orb.Point) bool {
	s.mu.Lock()
	hit := false
	for _, f := range s.features {
		if !s.visibleLocked(f) {
			continue
		}
		if contains(f.Geometry, at) {
			hit = true
			break
		}
	}
	listeners := make([]func(at orb.Point), 0, len(s.clicks))
	if hit {
		for _, fn := range s.clicks {
			listeners = append(listeners, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn := fn
		s.dispatch(func() { fn(at) })
	}
	return hit
}

// Snapshot возвращает копию отрисованного состояния
func (s *Surface) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	fc := geojson.NewFeatureCollection()
	for _, f := range s.features {
		st := s.effectiveLocked(f)
		out := geojson.NewFeature(f.Geometry)
		out.ID = f.ID
		out.Properties = f.Properties.Clone()
		if st.FillColor != "" {
			out.Properties[PropFillColor] = st.FillColor
		}
		if st.FillOpacity > 0 {
			out.Properties[PropFillOpacity] = st.FillOpacity
		}
		out.Properties[PropVisible] = st.Visible == nil || *st.Visible
		fc.Append(out)
	}

	markers := make([]MarkerState, 0, len(s.markers))
	for _, id := range s.markerOrder {
		if m, ok := s.markers[id]; ok {
			markers = append(markers, MarkerState{ID: m.id, Position: m.position})
		}
	}

	camera := s.camera
	if camera.Bounds != nil {
		b := *camera.Bounds
		camera.Bounds = &b
	}

	return Snapshot{
		Revision:         s.revision,
		DisableDefaultUI: s.opts.DisableDefaultUI,
		Camera:           camera,
		Features:         fc,
		Markers:          markers,
		PendingIdle:      len(s.idle),
	}
}

func (s *Surface) register() int {
	s.nextListener++
	return s.nextListener
}

func (s *Surface) dispatch(fn func()) {
	if s.opts.Dispatch != nil {
		s.opts.Dispatch(fn)
		return
	}
	fn()
}

func (s *Surface) effectiveLocked(f *geojson.Feature) mapview.Style {
	var base mapview.Style
	if s.style != nil {
		base = s.style(f)
	}
	if o, ok := s.overrides[f]; ok {
		base = merge(base, o)
	}
	return base
}

func (s *Surface) visibleLocked(f *geojson.Feature) bool {
	st := s.effectiveLocked(f)
	return st.Visible == nil || *st.Visible
}

func (s *Surface) removeMarker(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.markers[id]; !ok {
		return
	}
	delete(s.markers, id)
	for i, mid := range s.markerOrder {
		if mid == id {
			s.markerOrder = append(s.markerOrder[:i], s.markerOrder[i+1:]...)
			break
		}
	}
	s.revision++
}

type marker struct {
	id       string
	position orb.Point
	surface  *Surface
}

func (m *marker) Remove() {
	m.surface.removeMarker(m.id)
}

func merge(base, over mapview.Style) mapview.Style {
	if over.FillColor != "" {
		base.FillColor = over.FillColor
	}
	if over.FillOpacity > 0 {
		base.FillOpacity = over.FillOpacity
	}
	if over.Visible != nil {
		v := *over.Visible
		base.Visible = &v
	}
	return base
}

func contains(g orb.Geometry, p orb.Point) bool {
	if g == nil || !g.Bound().Contains(p) {
		return false
	}
	switch geom := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(geom, p)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(geom, p)
	default:
		return false
	}
}
