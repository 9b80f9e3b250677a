// Package api provides an HTTP API server for ingesting into and querying
// the strata memory system.
package api

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/strata/pkg/engine"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8084")
	ListenAddr string
}

// ErrorResponse is the JSON error payload all handlers return on failure.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server is the API server for managing and querying the strata system
type Server struct {
	config   Config
	registry *engine.Registry
	logger   *zap.Logger
	app      *fiber.App
}

// NewServer creates a new API server.
// The registry is injected to allow sharing with other components
// (e.g., the MCP server when both run in the same process).
func NewServer(config Config, registry *engine.Registry, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:   config,
		registry: registry,
		logger:   logger,
		app:      app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/v1/entities", s.handleListEntities)
	app.Post("/v1/entities/:entity/ingest", s.handleIngest)
	app.Get("/v1/entities/:entity/context", s.handleBuildContext)
	app.Get("/v1/entities/:entity/stats", s.handleStats)
	app.Get("/v1/entities/:entity/search", s.handleSearch)
	app.Post("/v1/entities/:entity/search/advanced", s.handleAdvancedSearch)
	app.Get("/v1/entities/:entity/items/:id/decompress", s.handleDecompress)
	app.Get("/v1/entities/:entity/export", s.handleExport)
	app.Post("/v1/entities/:entity/import", s.handleImport)

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
