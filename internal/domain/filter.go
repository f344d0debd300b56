package domain

// FilterEntry - флаг включения одной категории или посёлка
type FilterEntry struct {
	Name  string `json:"name" validate:"required"`
	Value bool   `json:"value"`
}

// FilterState - пользовательские фильтры карты.
// Владелец - внешний объект привязки; ядро читает только снимки.
type FilterState struct {
	Categories []FilterEntry `json:"categories" validate:"dive"`
	Towns      []FilterEntry `json:"towns" validate:"dive"`
	DateMin    Month         `json:"dateMin"`
	DateMax    Month         `json:"dateMax"`
}

// Clone возвращает глубокую копию
func (f *FilterState) Clone() *FilterState {
	if f == nil {
		return nil
	}
	c := *f
	c.Categories = append([]FilterEntry(nil), f.Categories...)
	c.Towns = append([]FilterEntry(nil), f.Towns...)
	return &c
}
