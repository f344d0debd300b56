package mapview

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// fakeSurface записывает вызовы и даёт вручную выдавать сигналы idle и клики
type fakeSurface struct {
	calls     []string
	features  []*geojson.Feature
	style     StyleFunc
	overrides map[*geojson.Feature]Style
	markers   map[*fakeMarker]bool
	idle      map[int]func()
	idleOrder []int
	clicks    map[int]func(orb.Point)
	nextID    int
	center    orb.Point
	fitted    []orb.Bound
	panned    []orb.Bound

	// queueIdle: сработавшие слушатели idle не вызываются сразу, а ждут
	// drain, как при отправке в цикл событий
	queueIdle bool
	queued    []func()
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{
		overrides: make(map[*geojson.Feature]Style),
		markers:   make(map[*fakeMarker]bool),
		idle:      make(map[int]func()),
		clicks:    make(map[int]func(orb.Point)),
	}
}

func (s *fakeSurface) SetCenter(c orb.Point) {
	s.calls = append(s.calls, "center")
	s.center = c
}

func (s *fakeSurface) FitBounds(b orb.Bound) {
	s.calls = append(s.calls, "fit")
	s.fitted = append(s.fitted, b)
}

func (s *fakeSurface) PanToBounds(b orb.Bound) {
	s.calls = append(s.calls, "pan")
	s.panned = append(s.panned, b)
}

func (s *fakeSurface) AddFeatures(fc *geojson.FeatureCollection) []*geojson.Feature {
	s.calls = append(s.calls, "add_features")
	s.features = append(s.features, fc.Features...)
	return fc.Features
}

func (s *fakeSurface) SetStyle(fn StyleFunc) {
	s.calls = append(s.calls, "set_style")
	s.style = fn
}

func (s *fakeSurface) RevertStyle() {
	s.calls = append(s.calls, "revert")
	s.overrides = make(map[*geojson.Feature]Style)
}

func (s *fakeSurface) OverrideStyle(f *geojson.Feature, st Style) {
	s.calls = append(s.calls, "override")
	s.overrides[f] = st
}

func (s *fakeSurface) AddMarker(p orb.Point) Marker {
	m := &fakeMarker{surface: s, position: p}
	s.markers[m] = true
	return m
}

func (s *fakeSurface) OnceIdle(fn func()) Unsubscribe {
	s.nextID++
	id := s.nextID
	s.idle[id] = fn
	s.idleOrder = append(s.idleOrder, id)
	return func() { delete(s.idle, id) }
}

func (s *fakeSurface) OnFeatureClick(fn func(orb.Point)) Unsubscribe {
	s.nextID++
	id := s.nextID
	s.clicks[id] = fn
	return func() { delete(s.clicks, id) }
}

func (s *fakeSurface) fireIdle() {
	order := s.idleOrder
	s.idleOrder = nil
	for _, id := range order {
		if fn, ok := s.idle[id]; ok {
			delete(s.idle, id)
			if s.queueIdle {
				s.queued = append(s.queued, fn)
				continue
			}
			fn()
		}
	}
}

func (s *fakeSurface) drain() {
	for len(s.queued) > 0 {
		fn := s.queued[0]
		s.queued = s.queued[1:]
		fn()
	}
}

func (s *fakeSurface) click(p orb.Point) {
	for _, fn := range s.clicks {
		fn(p)
	}
}

func (s *fakeSurface) hidden() int {
	n := 0
	for _, st := range s.overrides {
		if st.Visible != nil && !*st.Visible {
			n++
		}
	}
	return n
}

type fakeMarker struct {
	surface  *fakeSurface
	position orb.Point
	removed  int
}

func (m *fakeMarker) Remove() {
	m.removed++
	delete(m.surface.markers, m)
}
