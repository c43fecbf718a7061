package api

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/paperjotco/jot/pkg/notebook"
)

// Server is the HTTP API server for the jot note-taking system
type Server struct {
	config   Config
	notebook *notebook.Service
	logger   *zap.Logger
	app      *fiber.App
}

// NewServer creates a new API server.
// The notebook service is injected to allow sharing with other components.
func NewServer(config Config, nb *notebook.Service, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		StreamRequestBody:     true,
		// The blob store enforces the real attachment ceiling; the fiber
		// limit just needs to sit above it so oversize uploads reach it.
		BodyLimit: int(nb.MaxUploadBytes()) + 1<<20,
	})

	s := &Server{
		config:   config,
		notebook: nb,
		logger:   logger,
		app:      app,
	}

	app.Get("/healthz", s.handleHealthz)
	app.Get("/readyz", s.handleReadyz)

	app.Get("/api/notes", s.handleListNotes)
	app.Post("/api/notes", s.handleCreateNote)
	app.Put("/api/notes/:id", s.handleUpdateNote)
	app.Delete("/api/notes/:id", s.handleSoftDeleteNote)
	app.Post("/api/notes/:id/archive", s.handleArchiveNote)
	app.Post("/api/notes/:id/unarchive", s.handleUnarchiveNote)
	app.Delete("/api/notes/:id/purge", s.handlePurgeNote)
	app.Post("/api/notes/:id/share", s.handleShareNote)
	app.Get("/api/notes/:id/history", s.handleNoteHistory)

	app.Post("/api/notes/:id/attachments", s.handleUploadAttachment)
	app.Get("/api/notes/:id/attachments", s.handleListAttachments)
	app.Get("/api/attachments/:id/download", s.handleDownloadAttachment)
	app.Delete("/api/attachments/:id", s.handleDeleteAttachment)

	app.Get("/api/share/:token", s.handleSharedNote)
	app.Get("/share/:token", s.handleSharePage)

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
