package dto

import (
	"encoding/json"

	"github.com/permit-map/internal/domain"
)

// AtRequest - запрос разрешений в точке
type AtRequest struct {
	Lat float64 `json:"lat" query:"lat" validate:"min=-90,max=90"`
	Lon float64 `json:"lon" query:"lon" validate:"min=-180,max=180"`
}

// SearchRequest - полнотекстовый поиск разрешений
type SearchRequest struct {
	Query string `json:"q" query:"q" validate:"required,min=2,max=256"`
	Limit int    `json:"limit" query:"limit" validate:"omitempty,min=1,max=200"`
}

// CreateSessionRequest - создание сессии карты; все поля необязательны
type CreateSessionRequest struct {
	Filters  *domain.FilterState `json:"filters,omitempty" validate:"omitempty"`
	Palette  map[string]string   `json:"palette,omitempty"`
	Fallback string              `json:"fallback_color,omitempty" validate:"omitempty,hexcolor"`
}

// FiltersRequest - новое состояние фильтров сессии
type FiltersRequest struct {
	Categories []domain.FilterEntry `json:"categories" validate:"dive"`
	Towns      []domain.FilterEntry `json:"towns" validate:"dive"`
	DateMin    domain.Month         `json:"dateMin"`
	DateMax    domain.Month         `json:"dateMax"`
}

// ToFilterState переводит запрос в состояние фильтров
func (r FiltersRequest) ToFilterState() *domain.FilterState {
	return &domain.FilterState{
		Categories: r.Categories,
		Towns:      r.Towns,
		DateMin:    r.DateMin,
		DateMax:    r.DateMax,
	}
}

// PaletteRequest - таблица цветов по категориям
type PaletteRequest struct {
	Palette  map[string]string `json:"palette" validate:"required,min=1"`
	Fallback string            `json:"fallback_color,omitempty" validate:"omitempty,hexcolor"`
}

// SessionSearchRequest - поиск в контексте сессии
type SessionSearchRequest struct {
	Query string `json:"q" validate:"required,min=2,max=256"`
}

// ClickRequest - клик по карте
type ClickRequest struct {
	Lat float64 `json:"lat" validate:"min=-90,max=90"`
	Lon float64 `json:"lon" validate:"min=-180,max=180"`
}

// ImportRequest - задание на импорт коллекции регионов. Коллекция
// передаётся только в теле: пути к файлам сервера через API не принимаются.
type ImportRequest struct {
	Township string          `json:"township" validate:"required,township"`
	Truncate bool            `json:"truncate,omitempty"`
	Features json.RawMessage `json:"features" validate:"required"`
}
