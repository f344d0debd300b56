package domain

import (
	"sort"
	"time"

	"github.com/paulmach/orb"
)

// Statistics - агрегаты по загруженным разрешениям
type Statistics struct {
	TotalAreas   int            `json:"total_areas"`
	TotalRecords int            `json:"total_records"`
	ByTownship   map[string]int `json:"by_township"`
	ByCategory   map[string]int `json:"by_category"`
	FirstSeen    *Month         `json:"first_seen,omitempty"`
	LastSeen     *Month         `json:"last_seen,omitempty"`
	Extent       *orb.Bound     `json:"extent,omitempty"`
	LastUpdated  time.Time      `json:"last_updated"`
}

// DefaultFilters - фильтр, включающий все известные категории и посёлки
// на всём диапазоне дат
func (s *Statistics) DefaultFilters() *FilterState {
	f := &FilterState{
		Categories: enabledEntries(s.ByCategory),
		Towns:      enabledEntries(s.ByTownship),
	}
	if s.FirstSeen != nil {
		f.DateMin = *s.FirstSeen
	}
	if s.LastSeen != nil {
		f.DateMax = *s.LastSeen
	}
	return f
}

func enabledEntries(counts map[string]int) []FilterEntry {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]FilterEntry, 0, len(names))
	for _, name := range names {
		entries = append(entries, FilterEntry{Name: name, Value: true})
	}
	return entries
}
