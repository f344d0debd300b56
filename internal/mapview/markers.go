package mapview

import "github.com/permit-map/internal/domain"

// MarkerSet держит по одному маркеру на каждый элемент выбранного списка.
// Список заменяется целиком: сначала освобождаются все старые маркеры,
// затем создаются новые.
type MarkerSet struct {
	surface Surface
	markers map[*domain.PermitItem][]Marker
}

func NewMarkerSet(surface Surface) *MarkerSet {
	return &MarkerSet{
		surface: surface,
		markers: make(map[*domain.PermitItem][]Marker),
	}
}

// OnListChanged освобождает маркеры oldList и создаёт маркеры для newList.
// Любой из списков может быть nil.
func (s *MarkerSet) OnListChanged(oldList, newList []*domain.PermitItem) {
	for _, item := range oldList {
		s.release(item)
	}
	for _, item := range newList {
		if item == nil {
			continue
		}
		s.markers[item] = append(s.markers[item], s.surface.AddMarker(item.Centroid))
	}
}

// Len - число живых маркеров
func (s *MarkerSet) Len() int {
	n := 0
	for _, ms := range s.markers {
		n += len(ms)
	}
	return n
}

// Clear освобождает все маркеры
func (s *MarkerSet) Clear() {
	for item := range s.markers {
		s.release(item)
	}
}

func (s *MarkerSet) release(item *domain.PermitItem) {
	for _, m := range s.markers[item] {
		m.Remove()
	}
	delete(s.markers, item)
}
