// Package server provides the HTTP API for petitpdf.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/petitpdf/internal/config"
	"github.com/hyperjump/petitpdf/internal/library"
	"github.com/hyperjump/petitpdf/internal/websocket"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// WatchService manages the watched inbox directories.
type WatchService interface {
	Directories() []string
	AddDirectory(path string, scanExisting bool) error
	RemoveDirectory(path string) error
}

// Server is the HTTP server for the petitpdf API.
type Server struct {
	library *library.Library
	hub     *websocket.Hub
	config  *config.Config
	logger  *zap.Logger
	server  *http.Server

	watch         WatchService
	configPath    string
	watchConfigMu sync.Mutex

	stopEvents context.CancelFunc
}

// NewServer creates a server. watch may be nil when no inbox is configured; configPath,
// when set, is rewritten whenever the watched directories change.
func NewServer(lib *library.Library, cfg *config.Config, logger *zap.Logger, watch WatchService, configPath string) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		library:    lib,
		hub:        websocket.NewHub(cfg.Server.AllowedOrigins, logger),
		config:     cfg,
		logger:     logger,
		watch:      watch,
		configPath: configPath,
	}
	events, unsubscribe := lib.Subscribe()
	ctx, cancel := context.WithCancel(context.Background())
	s.stopEvents = func() {
		cancel()
		unsubscribe()
	}
	go s.hub.Run(ctx, events)
	return s
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: s.config.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler)

	r.Get("/api/v1/events", s.hub.HandleWebSocket)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Use(middleware.Compress(5))

		r.Get("/health", s.handleHealth)
		r.Get("/api/v1/status", s.handleStatus)

		r.Route("/api/v1/documents", func(r chi.Router) {
			r.Get("/", s.handleListDocuments)
			r.Post("/", s.handleImportDocument)
			r.Get("/{id}", s.handleGetDocument)
			r.Delete("/{id}", s.handleDeleteDocument)
			r.Get("/{id}/bookmarks", s.handleRemoteBookmarks)
			r.Post("/{id}/open", s.handleOpenDocument)
		})

		r.Route("/api/v1/session", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleCloseSession)
			r.Post("/page", s.handleSessionPage)
			r.Post("/bookmark", s.handleToggleBookmark)
			r.Get("/explorer", s.handleGetExplorer)
			r.Post("/explorer", s.handleOpenExplorer)
			r.Delete("/explorer", s.handleCloseExplorer)
			r.Post("/explorer/select", s.handleSelectFromExplorer)
		})

		r.Get("/api/v1/watch/directories", s.handleWatchDirectoriesList)
		r.Post("/api/v1/watch/directories", s.handleWatchDirectoriesAdd)
		r.Delete("/api/v1/watch/directories", s.handleWatchDirectoriesRemove)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop disconnects websocket clients and gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.stopEvents()
	s.hub.Close()
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
