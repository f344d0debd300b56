package mapview

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/permit-map/internal/domain"
)

func month(t *testing.T, s string) domain.Month {
	t.Helper()
	m, err := domain.ParseMonth(s)
	if err != nil {
		t.Fatalf("ParseMonth(%s): %v", s, err)
	}
	return m
}

func TestIsEnabled(t *testing.T) {
	entries := []domain.FilterEntry{
		{Name: "Rezoning Case", Value: true},
		{Name: "Mixed Use", Value: false},
	}

	assert.True(t, IsEnabled("Rezoning Case", entries))
	assert.False(t, IsEnabled("Mixed Use", entries))
	assert.False(t, IsEnabled("rezoning case", entries), "lookup is case-sensitive")
	assert.False(t, IsEnabled("Business", entries), "missing entry is disabled")
	assert.False(t, IsEnabled("Business", nil))
}

func TestIsVisible(t *testing.T) {
	region := &domain.Region{
		Category:  "X",
		Township:  "T",
		FirstSeen: month(t, "2021-01"),
		LastSeen:  month(t, "2021-03"),
	}

	filter := func(catOn, townOn bool, min, max string) *domain.FilterState {
		return &domain.FilterState{
			Categories: []domain.FilterEntry{{Name: "X", Value: catOn}},
			Towns:      []domain.FilterEntry{{Name: "T", Value: townOn}},
			DateMin:    month(t, min),
			DateMax:    month(t, max),
		}
	}

	tests := []struct {
		name   string
		filter *domain.FilterState
		want   bool
	}{
		{"last seen in range", filter(true, true, "2021-02", "2021-05"), true},
		{"first seen in range", filter(true, true, "2020-10", "2021-01"), true},
		{"bounds inclusive on max", filter(true, true, "2020-01", "2021-01"), true},
		{"bounds inclusive on min", filter(true, true, "2021-03", "2021-09"), true},
		{"both dates outside", filter(true, true, "2021-04", "2021-12"), false},
		{"range inside the span but no endpoint in it", filter(true, true, "2021-02", "2021-02"), false},
		{"category disabled", filter(false, true, "2021-02", "2021-05"), false},
		{"town disabled", filter(true, false, "2021-02", "2021-05"), false},
		{"nil filter", nil, false},
		{"no entries", &domain.FilterState{DateMin: month(t, "2000-01"), DateMax: month(t, "2030-01")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsVisible(region, tt.filter))
		})
	}
}

func TestIsVisible_CategoryFailsClosed(t *testing.T) {
	wide := &domain.FilterState{
		Categories: []domain.FilterEntry{{Name: "Other", Value: true}},
		Towns:      []domain.FilterEntry{{Name: "T", Value: true}},
		DateMin:    domain.MonthOf(time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)),
		DateMax:    domain.MonthOf(time.Date(2090, 1, 1, 0, 0, 0, 0, time.UTC)),
	}

	for _, cat := range []string{"X", "", "other", "Other "} {
		r := &domain.Region{Category: cat, Township: "T", FirstSeen: month(t, "2021-01"), LastSeen: month(t, "2021-01")}
		assert.False(t, IsVisible(r, wide), "category %q", cat)
	}
}
