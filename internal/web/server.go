// Package web exposes the HTTP API: upload, processing, document
// listing, artifact download, embeddings, and semantic search.
package web

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"pdfinsight/internal/config"
	"pdfinsight/internal/files"
	"pdfinsight/internal/model"
	"pdfinsight/internal/pipeline"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	logger     *log.Logger
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, svc *pipeline.Service, store model.Store, layout *files.Layout, logger *log.Logger) *Server {
	h := &Handler{
		Service: svc,
		Store:   store,
		Layout:  layout,
		Config:  cfg,
		Logger:  logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Get("/health", h.Health)

	r.Route("/api", func(api chi.Router) {
		api.Post("/upload", h.Upload)
		api.Post("/process", h.Process)
		api.Get("/pending", h.Pending)
		api.Get("/stats", h.Stats)
		api.Get("/search", h.Search)
		api.Get("/consistency", h.Consistency)

		api.Route("/pdfs", func(pdfs chi.Router) {
			pdfs.Get("/", h.ListDocuments)
			pdfs.Get("/{id}", h.GetDocument)
			pdfs.Delete("/{id}", h.PurgeDocument)
			pdfs.Post("/{id}/embeddings", h.GenerateEmbeddings)
			pdfs.Delete("/{id}/embeddings", h.DeleteEmbeddings)
		})

		api.Get("/images/{filename}", h.DownloadImage)
		api.Get("/texts/{filename}", h.DownloadText)
	})

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	return &Server{httpServer: httpSrv, logger: logger}
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	s.logf("HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logf("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) logf(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}
