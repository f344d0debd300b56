package mapview

import "github.com/permit-map/internal/domain"

// IsEnabled ищет запись с точным (регистрозависимым) совпадением имени.
// Отсутствие записи означает «выключено».
func IsEnabled(name string, entries []domain.FilterEntry) bool {
	for _, e := range entries {
		if e.Name == name {
			return e.Value
		}
	}
	return false
}

// IsVisible - виден ли регион при данном состоянии фильтров: категория и
// посёлок включены, и first_seen или last_seen попадает в
// [DateMin, DateMax] включительно. Для nil аргументов - false.
func IsVisible(r *domain.Region, f *domain.FilterState) bool {
	if r == nil || f == nil {
		return false
	}
	return IsEnabled(r.Category, f.Categories) &&
		IsEnabled(r.Township, f.Towns) &&
		(r.FirstSeen.Within(f.DateMin, f.DateMax) || r.LastSeen.Within(f.DateMin, f.DateMax))
}
