package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/permit-map/internal/pkg/utils"
	"github.com/permit-map/internal/pkg/validator"
	"github.com/permit-map/internal/usecase"
	"github.com/permit-map/internal/usecase/dto"
)

// PermitHandler - регионы разрешений, поиск по точке и по тексту
type PermitHandler struct {
	permitUC *usecase.PermitUseCase
	logger   *zap.Logger
}

// NewPermitHandler - создание нового PermitHandler
func NewPermitHandler(permitUC *usecase.PermitUseCase, logger *zap.Logger) *PermitHandler {
	return &PermitHandler{
		permitUC: permitUC,
		logger:   logger,
	}
}

// GetRegions godoc
// @Summary Регионы разрешений
// @Description Возвращает все регионы как GeoJSON FeatureCollection со свойствами id, category, township, first_seen, last_seen
// @Tags Permits
// @Produce json
// @Success 200 {object} map[string]interface{} "GeoJSON FeatureCollection"
// @Failure 500 {object} utils.ErrorResponse
// @Router /api/v1/permits [get]
func (h *PermitHandler) GetRegions(c *fiber.Ctx) error {
	raw, err := h.permitUC.RegionsJSON(c.Context())
	if err != nil {
		return utils.SendError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/geo+json")
	return c.Send(raw)
}

// At godoc
// @Summary Разрешения в точке
// @Description Возвращает разрешения, регион которых содержит точку, с последней записью данных, центроидом и охватом
// @Tags Permits
// @Produce json
// @Param lat query number true "Широта"
// @Param lon query number true "Долгота"
// @Success 200 {object} utils.SuccessResponse{data=dto.PermitListResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /api/v1/permits/at [get]
func (h *PermitHandler) At(c *fiber.Ctx) error {
	var req dto.AtRequest
	if err := c.QueryParser(&req); err != nil {
		return utils.SendError(c, invalidBody(err))
	}
	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}

	items, err := h.permitUC.At(c.Context(), req.Lat, req.Lon)
	if err != nil {
		return utils.SendError(c, err)
	}

	resp := dto.NewPermitListResponse(items)
	return utils.SendSuccess(c, resp, &utils.Meta{Total: resp.Total})
}

// Search godoc
// @Summary Полнотекстовый поиск разрешений
// @Description Ищет по названию, комментарию, категории, статусу и номеру проекта
// @Tags Permits
// @Produce json
// @Param q query string true "Поисковый запрос (минимум 2 символа)"
// @Param limit query int false "Максимальное количество результатов" default(50)
// @Success 200 {object} utils.SuccessResponse{data=dto.PermitListResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /api/v1/permits/search [get]
func (h *PermitHandler) Search(c *fiber.Ctx) error {
	var req dto.SearchRequest
	req.Query = c.Query("q")
	req.Limit = c.QueryInt("limit", 0)

	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}

	items, err := h.permitUC.SearchLimit(c.Context(), req.Query, req.Limit)
	if err != nil {
		return utils.SendError(c, err)
	}

	resp := dto.NewPermitListResponse(items)
	return utils.SendSuccess(c, resp, &utils.Meta{
		Total: resp.Total,
		Limit: req.Limit,
	})
}
