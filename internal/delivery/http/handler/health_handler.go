package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/permit-map/internal/usecase/dto"
)

// Pinger - зависимость с проверкой доступности
type Pinger interface {
	Health(ctx context.Context) error
}

// SessionCounter - источник числа открытых сессий
type SessionCounter interface {
	Count() int
}

// HealthHandler проверяет PostgreSQL и Redis
type HealthHandler struct {
	deps     map[string]Pinger
	sessions SessionCounter
	logger   *zap.Logger
}

// NewHealthHandler - создание нового HealthHandler
func NewHealthHandler(deps map[string]Pinger, sessions SessionCounter, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{deps: deps, sessions: sessions, logger: logger}
}

// Health godoc
// @Summary Проверка состояния
// @Tags Health
// @Produce json
// @Success 200 {object} dto.HealthResponse
// @Failure 503 {object} dto.HealthResponse
// @Router /api/v1/health [get]
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	resp := dto.HealthResponse{
		Status:   "healthy",
		Services: make(map[string]string, len(h.deps)),
	}
	for name, dep := range h.deps {
		if err := dep.Health(ctx); err != nil {
			h.logger.Warn("Dependency unhealthy", zap.String("service", name), zap.Error(err))
			resp.Services[name] = "unhealthy"
			resp.Status = "degraded"
			continue
		}
		resp.Services[name] = "healthy"
	}
	if h.sessions != nil {
		resp.Sessions = h.sessions.Count()
	}

	status := fiber.StatusOK
	if resp.Status != "healthy" {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(resp)
}
