package api

import (
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/hatchpoint/clienthub/internal/requestid"
)

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	ListenAddr string
	Auth       AuthConfig
}

// Server is the HTTP API Fiber application.
type Server struct {
	app    *fiber.App
	logger zerolog.Logger
	config ServerConfig
}

// NewServer creates and configures the API server.
func NewServer(cfg ServerConfig, handlers *Handlers, logger zerolog.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler(logger),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})

	s := &Server{
		app:    app,
		logger: logger.With().Str("component", "api_server").Logger(),
		config: cfg,
	}

	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(requestid.Middleware())
	app.Use(NewAuthMiddleware(cfg.Auth, logger))

	app.Use(func(c *fiber.Ctx) error {
		path := c.Path()
		if path == "/healthz" || path == "/readyz" || path == "/metrics" {
			return c.Next()
		}
		logger.Info().
			Str("method", c.Method()).
			Str("path", path).
			Str("ip", c.IP()).
			Str("request_id", fmt.Sprintf("%v", c.Locals("request_id"))).
			Msg("api request")
		return c.Next()
	})

	handlers.RegisterRoutes(app)
	return s
}

// App returns the underlying fiber app (tests).
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts serving on the configured address.
func (s *Server) Listen() error {
	s.logger.Info().Str("addr", s.config.ListenAddr).Msg("api server listening")
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func customErrorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}
		logger.Error().Err(err).Str("path", c.Path()).Int("status", code).Msg("unhandled api error")
		return problemResponse(c, code, "internal_error", "Internal Server Error", err.Error())
	}
}
