package mapview

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"

	"github.com/permit-map/internal/domain"
)

func TestMarkerSet_ReplacesWholeList(t *testing.T) {
	surface := newFakeSurface()
	set := NewMarkerSet(surface)

	a := &domain.PermitItem{ID: 1, Centroid: orb.Point{-78.8, 35.7}}
	b := &domain.PermitItem{ID: 2, Centroid: orb.Point{-78.9, 35.8}}
	c := &domain.PermitItem{ID: 3, Centroid: orb.Point{-78.7, 35.9}}

	set.OnListChanged(nil, []*domain.PermitItem{a, b})
	assert.Equal(t, 2, set.Len())
	assert.Len(t, surface.markers, 2)

	set.OnListChanged([]*domain.PermitItem{a, b}, []*domain.PermitItem{c})
	assert.Equal(t, 1, set.Len())
	if assert.Len(t, surface.markers, 1) {
		for m := range surface.markers {
			assert.Equal(t, c.Centroid, m.position)
		}
	}
}

func TestMarkerSet_NilLists(t *testing.T) {
	surface := newFakeSurface()
	set := NewMarkerSet(surface)

	set.OnListChanged(nil, nil)
	assert.Zero(t, set.Len())

	a := &domain.PermitItem{ID: 1}
	set.OnListChanged(nil, []*domain.PermitItem{a, nil})
	assert.Equal(t, 1, set.Len())

	set.OnListChanged([]*domain.PermitItem{a}, nil)
	assert.Zero(t, set.Len())
	assert.Empty(t, surface.markers)
}

func TestMarkerSet_SameItemInBothLists(t *testing.T) {
	surface := newFakeSurface()
	set := NewMarkerSet(surface)
	a := &domain.PermitItem{ID: 1}

	set.OnListChanged(nil, []*domain.PermitItem{a})
	set.OnListChanged([]*domain.PermitItem{a}, []*domain.PermitItem{a})

	assert.Equal(t, 1, set.Len())
	assert.Len(t, surface.markers, 1)
}

func TestMarkerSet_Clear(t *testing.T) {
	surface := newFakeSurface()
	set := NewMarkerSet(surface)
	set.OnListChanged(nil, []*domain.PermitItem{{ID: 1}, {ID: 2}, {ID: 3}})

	set.Clear()

	assert.Zero(t, set.Len())
	assert.Empty(t, surface.markers)
}
