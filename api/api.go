package api

import (
	"log/slog"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/replay/pkg/logger"
	"github.com/papercomputeco/replay/pkg/storage"
)

// Server is the API server for the replay trajectory store
type Server struct {
	config Config
	storer storage.Driver
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates a new API server.
// The storer is injected so the CLI can share it with the MCP server.
func NewServer(config Config, storer storage.Driver, l *slog.Logger) *Server {
	if config.PageSize <= 0 {
		config.PageSize = storage.DefaultPageSize
	}
	if l == nil {
		l = logger.Nop()
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		storer: storer,
		logger: l,
		app:    app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/v1/stats", s.handleStats)
	app.Get("/v1/keys", s.handleKeys)
	app.Get("/v1/trajectories", s.handleFetchTrajectories)
	app.Post("/v1/trajectories", s.handleAddTrajectory)
	app.Post("/v1/snapshot", s.handleSnapshot)

	if config.MCPHandler != nil {
		app.All("/mcp", adaptor.HTTPHandler(config.MCPHandler))
	}

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
