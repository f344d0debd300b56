package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	fiberSwagger "github.com/swaggo/fiber-swagger"
	"go.uber.org/zap"

	"github.com/permit-map/internal/config"
	"github.com/permit-map/internal/delivery/http/handler"
	"github.com/permit-map/internal/delivery/http/middleware"
	"github.com/permit-map/internal/pkg/errors"
	"github.com/permit-map/internal/pkg/utils"
)

// Handlers - набор обработчиков API
type Handlers struct {
	Health  *handler.HealthHandler
	Permits *handler.PermitHandler
	Stats   *handler.StatsHandler
	Session *handler.SessionHandler
	Import  *handler.ImportHandler
}

// Server - HTTP сервер на основе Fiber
type Server struct {
	app      *fiber.App
	config   *config.Config
	logger   *zap.Logger
	handlers Handlers
}

// NewServer - создание нового HTTP сервера
func NewServer(cfg *config.Config, logger *zap.Logger, handlers Handlers) *Server {
	app := fiber.New(fiber.Config{
		AppName:      "Permit Map",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorHandler: customErrorHandler(logger),
	})

	s := &Server{
		app:      app,
		config:   cfg,
		logger:   logger,
		handlers: handlers,
	}

	s.setupMiddlewares()
	s.setupRoutes()

	return s
}

// App - экземпляр fiber (для тестов)
func (s *Server) App() *fiber.App {
	return s.app
}

// setupMiddlewares - настройка middleware
func (s *Server) setupMiddlewares() {
	s.app.Use(middleware.Recovery(s.logger))
	s.app.Use(middleware.Logger(s.logger))
	s.app.Use(middleware.CORS(s.config.Server.CORSOrigins))
	s.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
}

// setupRoutes - настройка маршрутов
func (s *Server) setupRoutes() {
	s.app.Get("/swagger/*", fiberSwagger.WrapHandler)

	api := s.app.Group("/api/v1")

	if s.handlers.Health != nil {
		api.Get("/health", s.handlers.Health.Health)
	} else {
		api.Get("/health", func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{
				"status": "healthy",
				"time":   time.Now(),
			})
		})
	}

	if h := s.handlers.Permits; h != nil {
		api.Get("/permits", h.GetRegions)
		api.Get("/permits/at", h.At)
		api.Get("/permits/search", h.Search)
	}

	if h := s.handlers.Stats; h != nil {
		api.Get("/stats", h.GetStatistics)
	}

	if h := s.handlers.Session; h != nil {
		sessions := api.Group("/sessions")
		sessions.Post("/", h.Create)
		sessions.Get("/:id", h.Get)
		sessions.Delete("/:id", h.Delete)
		sessions.Put("/:id/filters", h.SetFilters)
		sessions.Put("/:id/palette", h.SetPalette)
		sessions.Post("/:id/search", h.Search)
		sessions.Post("/:id/click", h.Click)
		sessions.Post("/:id/idle", h.Idle)
		sessions.Post("/:id/reload", h.Reload)
	}

	if h := s.handlers.Import; h != nil {
		api.Post("/imports", h.Enqueue)
	}

	s.app.Use(func(c *fiber.Ctx) error {
		return utils.SendError(c, errors.New("NOT_FOUND", "Route not found", fiber.StatusNotFound))
	})
}

// Start - запуск HTTP сервера
func (s *Server) Start() error {
	addr := s.config.GetServerAddr()
	s.logger.Info("Starting HTTP server", zap.String("address", addr))
	return s.app.Listen(addr)
}

// Shutdown - graceful shutdown HTTP сервера
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.app.ShutdownWithContext(ctx)
}

// customErrorHandler - кастомный обработчик ошибок
func customErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError

		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		logger.Error("HTTP Error",
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err),
		)

		return c.Status(code).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "INTERNAL_SERVER_ERROR",
				"message": err.Error(),
			},
		})
	}
}
