package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/permit-map/internal/pkg/utils"
	"github.com/permit-map/internal/pkg/validator"
	"github.com/permit-map/internal/usecase"
	"github.com/permit-map/internal/usecase/dto"
)

// ImportHandler ставит задания импорта в очередь воркера
type ImportHandler struct {
	importUC *usecase.ImportUseCase
	logger   *zap.Logger
}

// NewImportHandler - создание нового ImportHandler
func NewImportHandler(importUC *usecase.ImportUseCase, logger *zap.Logger) *ImportHandler {
	return &ImportHandler{
		importUC: importUC,
		logger:   logger,
	}
}

// Enqueue godoc
// @Summary Поставить импорт в очередь
// @Description Публикует задание в stream:permit:import; результат приходит в stream:permit:import:done
// @Tags Import
// @Accept json
// @Produce json
// @Param request body dto.ImportRequest true "Посёлок и GeoJSON FeatureCollection"
// @Success 202 {object} utils.SuccessResponse{data=map[string]string}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /api/v1/imports [post]
func (h *ImportHandler) Enqueue(c *fiber.Ctx) error {
	var req dto.ImportRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, invalidBody(err))
	}
	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}

	jobID, err := h.importUC.Enqueue(c.UserContext(), &req)
	if err != nil {
		return utils.SendError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(utils.SuccessResponse{
		Data: fiber.Map{"job_id": jobID.String()},
	})
}
