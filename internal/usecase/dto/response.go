package dto

import (
	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/permit-map/internal/domain"
	"github.com/permit-map/internal/mapview"
	"github.com/permit-map/internal/mapview/headless"
)

// PermitListResponse - список разрешений с общим охватом
type PermitListResponse struct {
	Permits []*domain.PermitItem `json:"permits"`
	Bounds  *orb.Bound           `json:"bounds,omitempty"`
	Total   int                  `json:"total"`
}

// NewPermitListResponse собирает ответ из списка
func NewPermitListResponse(items []*domain.PermitItem) *PermitListResponse {
	list := domain.NewPermitList(items)
	if list.Permits == nil {
		list.Permits = []*domain.PermitItem{}
	}
	return &PermitListResponse{
		Permits: list.Permits,
		Bounds:  list.Bounds,
		Total:   len(list.Permits),
	}
}

// SessionResponse - состояние сессии карты
type SessionResponse struct {
	ID       uuid.UUID           `json:"id"`
	Status   mapview.Status      `json:"status"`
	Filters  *domain.FilterState `json:"filters,omitempty"`
	List     *domain.PermitList  `json:"list,omitempty"`
	Snapshot headless.Snapshot   `json:"snapshot"`
}

// ClickResponse - результат клика: попадание в видимый регион
type ClickResponse struct {
	Hit     bool             `json:"hit"`
	Session *SessionResponse `json:"session"`
}

// IdleResponse - число сработавших одноразовых слушателей
type IdleResponse struct {
	Fired   int              `json:"fired"`
	Session *SessionResponse `json:"session"`
}

// HealthResponse - состояние зависимостей
type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
	Sessions int               `json:"sessions"`
}
