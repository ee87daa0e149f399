package api

import (
	"context"
	"log/slog"
	"net"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/papercomputeco/rehearse/pkg/llm"
	"github.com/papercomputeco/rehearse/pkg/session"
)

// Server is the generation server.
type Server struct {
	config   Config
	streamer llm.Streamer
	logger   *slog.Logger
	app      *fiber.App

	// ctx outlives individual requests so streams can keep writing after the
	// handler returns; Shutdown cancels it.
	ctx    context.Context
	cancel context.CancelFunc
}

// ErrorResponse is the JSON body of every non-streaming failure.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewServer creates a new generation server backed by streamer.
func NewServer(config Config, streamer llm.Streamer, logger *slog.Logger) *Server {
	if config.DialogTurns <= 0 {
		config.DialogTurns = session.DefaultDialogTurns
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:   config,
		streamer: streamer,
		logger:   logger,
		app:      app,
		ctx:      ctx,
		cancel:   cancel,
	}

	app.Get("/ping", s.handlePing)
	app.Post(session.CreatePath, s.handleCreate)
	app.Post(session.AdjustPath, s.handleAdjust)

	return s
}

// Run starts the server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting generation server",
		"listen", s.config.ListenAddr,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("starting generation server",
		"listen", ln.Addr().String(),
	)
	return s.app.Listener(ln)
}

// Shutdown stops in-flight streams and gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.cancel()
	return s.app.Shutdown()
}
