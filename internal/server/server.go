package server

import (
	"log"

	"nana-be/internal/bootstrap"
	"nana-be/internal/config"
	"nana-be/internal/controller"
	"nana-be/internal/pkg/serverutils"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	container *bootstrap.Container
}

func New(cfg *config.Config, container *bootstrap.Container) *Server {
	app := fiber.New(fiber.Config{
		AppName:      "NANA Study Assistant API",
		BodyLimit:    cfg.App.BodyLimitMB * 1024 * 1024,
		ErrorHandler: controller.StreamErrorHandler(serverutils.ErrorHandlerMiddleware()),
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.App.CorsAllowedOrigins,
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, " + serverutils.APIKeyHeader,
		AllowMethods:     "GET, POST, OPTIONS",
	}))

	// OpenTelemetry tracing middleware (traces all HTTP requests)
	app.Use(otelfiber.Middleware())

	registerRoutes(app, cfg, container)

	return &Server{
		app:       app,
		cfg:       cfg,
		container: container,
	}
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	log.Printf("✅ Server is running on http://localhost:%s", s.cfg.App.Port)
	return s.app.Listen(":" + s.cfg.App.Port)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func registerRoutes(app *fiber.App, cfg *config.Config, c *bootstrap.Container) {
	c.HealthController.RegisterRoutes(app)

	api := app.Group("/api")
	keyMiddleware := serverutils.APIKeyMiddleware(cfg.Keys.GoogleGemini, cfg.IsProduction())

	c.UploadController.RegisterRoutes(api, keyMiddleware)
	c.NotesController.RegisterRoutes(api, keyMiddleware)
	c.DebugController.RegisterRoutes(api)
	c.APIKeyController.RegisterRoutes(api)
}
