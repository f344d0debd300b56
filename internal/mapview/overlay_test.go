package mapview

import (
	"context"
	"errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/permit-map/internal/domain"
)

func square(minLon, minLat, size float64) orb.Polygon {
	return orb.Polygon{orb.Ring{
		{minLon, minLat},
		{minLon + size, minLat},
		{minLon + size, minLat + size},
		{minLon, minLat + size},
		{minLon, minLat},
	}}
}

func regionFeature(id int, category, township string, first, last interface{}, poly orb.Polygon) *geojson.Feature {
	f := geojson.NewFeature(poly)
	f.ID = id
	f.Properties[domain.PropID] = id
	f.Properties[domain.PropCategory] = category
	f.Properties[domain.PropTownship] = township
	f.Properties[domain.PropFirstSeen] = first
	f.Properties[domain.PropLastSeen] = last
	return f
}

func testCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Append(regionFeature(1, "Rezoning Case", "cary", "2021-01-15", "2021-03-02", square(-78.80, 35.78, 0.01)))
	fc.Append(regionFeature(2, "Mixed Use", "apex", "2020-06-01", "2020-07-01", square(-78.85, 35.73, 0.01)))
	fc.Append(regionFeature(3, "Business", "morrisville", float64(1612137600000), float64(1614556800000), square(-78.82, 35.82, 0.01)))
	return fc
}

func staticSource(fc *geojson.FeatureCollection) RegionSource {
	return RegionSourceFunc(func(context.Context) (*geojson.FeatureCollection, error) {
		return fc, nil
	})
}

func allOn(t *testing.T) *domain.FilterState {
	return &domain.FilterState{
		Categories: []domain.FilterEntry{
			{Name: "Rezoning Case", Value: true},
			{Name: "Mixed Use", Value: true},
			{Name: "Business", Value: true},
		},
		Towns: []domain.FilterEntry{
			{Name: "cary", Value: true},
			{Name: "apex", Value: true},
			{Name: "morrisville", Value: true},
		},
		DateMin: month(t, "2020-01"),
		DateMax: month(t, "2021-12"),
	}
}

func TestRegionOverlay_LoadTransformsDatesToMonths(t *testing.T) {
	surface := newFakeSurface()
	overlay := NewRegionOverlay(surface, 0, nil, zap.NewNop())

	regions, err := overlay.Load(context.Background(), staticSource(testCollection()))
	require.NoError(t, err)
	require.Len(t, regions, 3)

	assert.Equal(t, "2021-01", regions[0].FirstSeen.String())
	assert.Equal(t, "2021-03", regions[0].LastSeen.String())
	assert.Equal(t, "2021-02", regions[2].FirstSeen.String())
	assert.Equal(t, "2021-03", regions[2].LastSeen.String())
	assert.Equal(t, "2021-01", regions[0].Feature.Properties[domain.PropFirstSeen])
	assert.True(t, overlay.Loaded())
}

func TestRegionOverlay_LoadIsCached(t *testing.T) {
	surface := newFakeSurface()
	overlay := NewRegionOverlay(surface, 0, nil, zap.NewNop())

	calls := 0
	source := RegionSourceFunc(func(context.Context) (*geojson.FeatureCollection, error) {
		calls++
		return testCollection(), nil
	})

	first, err := overlay.Load(context.Background(), source)
	require.NoError(t, err)
	second, err := overlay.Load(context.Background(), source)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
	assert.Len(t, surface.features, 3)
}

func TestRegionOverlay_ApplyFilterBeforeLoadIsNoop(t *testing.T) {
	surface := newFakeSurface()
	overlay := NewRegionOverlay(surface, 0, nil, zap.NewNop())

	hidden := overlay.ApplyFilter(allOn(t))

	assert.Zero(t, hidden)
	assert.Empty(t, surface.calls)
}

func TestRegionOverlay_ApplyFilterResetsThenHides(t *testing.T) {
	surface := newFakeSurface()
	overlay := NewRegionOverlay(surface, 0, nil, zap.NewNop())
	_, err := overlay.Load(context.Background(), staticSource(testCollection()))
	require.NoError(t, err)
	surface.calls = nil

	f := allOn(t)
	f.DateMin = month(t, "2021-01")

	hidden := overlay.ApplyFilter(f)

	assert.Equal(t, 1, hidden, "apex region last seen 2020-07 is outside the window")
	assert.Equal(t, []string{"revert", "override"}, surface.calls)
	assert.Equal(t, 1, surface.hidden())

	// Включённый обратно регион не должен остаться скрытым
	hidden = overlay.ApplyFilter(allOn(t))
	assert.Zero(t, hidden)
	assert.Zero(t, surface.hidden())
}

func TestRegionOverlay_ApplyFilterIdempotent(t *testing.T) {
	surface := newFakeSurface()
	overlay := NewRegionOverlay(surface, 0, nil, zap.NewNop())
	_, err := overlay.Load(context.Background(), staticSource(testCollection()))
	require.NoError(t, err)

	f := allOn(t)
	f.Categories[0].Value = false

	overlay.ApplyFilter(f)
	once := make(map[*geojson.Feature]Style, len(surface.overrides))
	for k, v := range surface.overrides {
		once[k] = v
	}
	overlay.ApplyFilter(f)

	assert.Equal(t, once, surface.overrides)
	assert.Equal(t, 1, surface.hidden())
}

func TestRegionOverlay_ClickHandlerAttachedOnce(t *testing.T) {
	surface := newFakeSurface()
	var clicked []orb.Point
	overlay := NewRegionOverlay(surface, 0, func(at orb.Point) {
		clicked = append(clicked, at)
	}, zap.NewNop())

	assert.False(t, overlay.ApplyColorFunction(nil))
	assert.Empty(t, surface.clicks)

	palette := PaletteColorFunc(map[string]string{"Mixed Use": "#ff0000"}, "#888888")
	assert.True(t, overlay.ApplyColorFunction(palette))
	assert.False(t, overlay.ApplyColorFunction(palette))
	assert.Len(t, surface.clicks, 1)

	surface.click(orb.Point{-78.84, 35.735})
	require.Len(t, clicked, 1)
	assert.Equal(t, 35.735, clicked[0].Lat())

	st := surface.style(regionFeature(9, "Mixed Use", "apex", "2020-01", "2020-01", square(0, 0, 1)))
	assert.Equal(t, "#ff0000", st.FillColor)
	assert.Equal(t, DefaultFillOpacity, st.FillOpacity)

	overlay.Close()
	assert.Empty(t, surface.clicks)
}

func TestRegionOverlay_LoadFailureIsRecoverable(t *testing.T) {
	surface := newFakeSurface()
	overlay := NewRegionOverlay(surface, 0, nil, zap.NewNop())

	fail := true
	source := RegionSourceFunc(func(context.Context) (*geojson.FeatureCollection, error) {
		if fail {
			return nil, errors.New("connection refused")
		}
		return testCollection(), nil
	})

	_, err := overlay.Load(context.Background(), source)
	require.Error(t, err)
	assert.False(t, overlay.Loaded())
	assert.Error(t, overlay.LoadErr())
	assert.Zero(t, overlay.ApplyFilter(allOn(t)))
	assert.True(t, overlay.ApplyColorFunction(PaletteColorFunc(nil, "#000")))
	assert.Empty(t, surface.features)

	fail = false
	regions, err := overlay.Load(context.Background(), source)
	require.NoError(t, err)
	assert.Len(t, regions, 3)
	assert.NoError(t, overlay.LoadErr())
}

func TestRegionOverlay_MalformedDateLeavesMapUntouched(t *testing.T) {
	surface := newFakeSurface()
	overlay := NewRegionOverlay(surface, 0, nil, zap.NewNop())

	fc := testCollection()
	fc.Append(regionFeature(4, "Business", "cary", "not a date", "2021-01", square(0, 0, 1)))

	_, err := overlay.Load(context.Background(), staticSource(fc))
	require.Error(t, err)
	assert.False(t, overlay.Loaded())
	assert.Empty(t, surface.features)
}

func TestRegionOverlay_EmptySourceIsNotLoaded(t *testing.T) {
	overlay := NewRegionOverlay(newFakeSurface(), 0, nil, zap.NewNop())

	_, err := overlay.Load(context.Background(), staticSource(nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.False(t, overlay.Loaded())
}

func TestRegionOverlay_ClearedFiltersDropOverrides(t *testing.T) {
	surface := newFakeSurface()
	overlay := NewRegionOverlay(surface, 0, nil, zap.NewNop())
	_, err := overlay.Load(context.Background(), staticSource(testCollection()))
	require.NoError(t, err)

	f := allOn(t)
	f.Categories[0].Value = false
	require.Equal(t, 1, overlay.ApplyFilter(f))
	surface.calls = nil

	assert.Zero(t, overlay.ApplyFilter(nil))
	assert.Equal(t, []string{"revert"}, surface.calls)
	assert.Zero(t, surface.hidden())
}

func TestRegionOverlay_StyleFollowsColorSource(t *testing.T) {
	surface := newFakeSurface()
	overlay := NewRegionOverlay(surface, 0, nil, zap.NewNop())
	var current ColorFunc
	overlay.SetColorSource(func() ColorFunc { return current })

	require.True(t, overlay.ApplyColorFunction(PaletteColorFunc(nil, "#111111")))
	f := regionFeature(1, "Business", "cary", "2021-01", "2021-02", square(0, 0, 1))
	assert.Equal(t, "#111111", surface.style(f).FillColor, "latched function while the source is empty")

	current = PaletteColorFunc(map[string]string{"Business": "#222222"}, "#000000")
	assert.Equal(t, "#222222", surface.style(f).FillColor)
	assert.False(t, overlay.ApplyColorFunction(current), "style and click are wired once")
}
