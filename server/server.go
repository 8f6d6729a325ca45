package server

import (
	"context"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"

	"github.com/cairn-engine/cairn/server/handler"
	"github.com/cairn-engine/cairn/worldstate"
)

const (
	defaultPort     = "4040"
	shutdownTimeout = 5 * time.Second
)

type Server struct {
	app     *fiber.App
	manager *worldstate.StateManager

	port string
}

// New returns an HTTP server exposing the registry and entity operations of
// the given state manager.
func New(manager *worldstate.StateManager, opts ...Option) (*Server, error) {
	if manager == nil {
		return nil, eris.New("server requires a non-nil state manager")
	}

	app := fiber.New(fiber.Config{
		Network:               "tcp", // Enable server listening on both ipv4 & ipv6 (default: ipv4 only)
		DisableStartupMessage: true,
		ErrorHandler:          ErrorHandler,
	})
	app.Use(cors.New())
	app.Use(requestID)

	s := &Server{
		app:     app,
		manager: manager,
		port:    defaultPort,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()

	return s, nil
}

// App exposes the underlying fiber application for in-process testing.
func (s *Server) App() *fiber.App { return s.app }

// Serve serves the application, blocking the calling thread.
// Call this in a new go routine to prevent blocking.
func (s *Server) Serve(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		port := s.port
		if envPort := os.Getenv("CAIRN_PORT"); envPort != "" {
			port = envPort
		}

		log.Info().Msgf("Starting HTTP server at port %s", port)
		if err := s.app.Listen(":" + port); err != nil {
			serverErr <- eris.Wrap(err, "error starting http server")
		}
	}()

	// Block until the server fails or the context is canceled.
	select {
	case err := <-serverErr:
		return eris.Wrap(err, "server encountered an error")
	case <-ctx.Done():
		if err := s.shutdown(); err != nil {
			return eris.Wrap(err, "error shutting down server")
		}
	}

	return nil
}

func (s *Server) shutdown() error {
	log.Info().Msg("Shutting down server")
	if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return eris.Wrap(err, "error shutting down server")
	}
	log.Info().Msg("Successfully shut down server")
	return nil
}

func requestID(ctx *fiber.Ctx) error {
	ctx.Set("X-Request-Id", uuid.NewString())
	return ctx.Next()
}

func (s *Server) setupRoutes() {
	registry := s.manager.Registry()

	// Route: /health
	s.app.Get("/health", handler.GetHealth())

	// Route: /world/...
	w := s.app.Group("/world")
	w.Get("/", handler.GetWorld(registry))
	w.Post("/namespace", handler.PostNamespace(registry))
	w.Post("/model", handler.PostModel(registry))

	// Route: /entity/...
	e := s.app.Group("/entity")
	e.Post("/set", handler.PostSetEntity(s.manager))
	e.Post("/get", handler.PostGetEntity(s.manager))
	e.Post("/delete", handler.PostDeleteEntity(s.manager))
	e.Post("/member/set", handler.PostSetMember(s.manager))
	e.Post("/member/get", handler.PostGetMember(s.manager))

	// Route: /debug/schemas
	s.app.Get("/debug/schemas", handler.GetSchemas())
}
