package api

import (
	"errors"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server is the API server for storing and retrieving business knowledge.
type Server struct {
	config Config
	logger *zap.Logger
	app    *fiber.App
}

// NewServer creates a new API server.
func NewServer(config Config, logger *zap.Logger) (*Server, error) {
	if config.Retriever == nil {
		return nil, errors.New("retriever is required")
	}
	if config.Store == nil {
		return nil, errors.New("store is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	// Path and query values outlive the request as queue and store keys,
	// so fiber must hand out copies rather than views of its buffers.
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		Immutable:             true,
	})

	s := &Server{
		config: config,
		logger: logger,
		app:    app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	v1 := app.Group("/v1")
	v1.Post("/documents", s.handleStoreDocument)
	v1.Get("/namespaces/:id/retrieve", s.handleRetrieve)
	v1.Delete("/namespaces/:id", s.handleDeleteNamespace)
	v1.Post("/namespaces/:id/sync", s.handleSync)
	v1.Get("/stats/sync", s.handleSyncStats)
	v1.Get("/stats/store", s.handleStoreStats)

	if config.MCPHandler != nil {
		app.All("/mcp", adaptor.HTTPHandler(config.MCPHandler))
	}

	return s, nil
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
