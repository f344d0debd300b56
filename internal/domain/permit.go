package domain

import (
	"github.com/paulmach/orb"
)

// PermitItem - запись о разрешении, отображаемая маркером в центроиде
type PermitItem struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	ProjID    string    `json:"proj_id,omitempty" db:"proj_id"`
	Link      string    `json:"link,omitempty" db:"link"`
	Status    string    `json:"status,omitempty" db:"status"`
	Comment   string    `json:"comment,omitempty" db:"comment"`
	Category  string    `json:"category" db:"category"`
	Township  string    `json:"township" db:"township"`
	FirstSeen Month     `json:"first_seen" db:"-"`
	LastSeen  Month     `json:"last_seen" db:"-"`
	Centroid  orb.Point `json:"centroid" db:"-"`
	Extent    orb.Bound `json:"extent" db:"-"`
}

// PermitList - выбранный список разрешений и его охват
type PermitList struct {
	Bounds  *orb.Bound    `json:"bounds,omitempty"`
	Permits []*PermitItem `json:"permits"`
}

// NewPermitList собирает список и вычисляет Bounds как объединение
// охватов всех разрешений. Для пустого списка Bounds == nil.
func NewPermitList(items []*PermitItem) *PermitList {
	list := &PermitList{Permits: items}
	for _, item := range items {
		if item == nil {
			continue
		}
		extent := item.Extent
		if extent.IsZero() {
			extent = item.Centroid.Bound()
		}
		if list.Bounds == nil {
			b := extent
			list.Bounds = &b
			continue
		}
		b := list.Bounds.Union(extent)
		list.Bounds = &b
	}
	return list
}
