// Package web exposes the query pipeline over HTTP: health, collection
// management and face search by image upload.
package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/face-search/internal/pipeline"
	"github.com/kozaktomas/face-search/internal/store"
)

// Server serves the face-search HTTP API.
type Server struct {
	store      store.VectorStore
	embedder   pipeline.Embedder
	defaultK   int
	router     *chi.Mux
	httpServer *http.Server
}

// NewServer wires the router and middleware stack.
func NewServer(st store.VectorStore, embedder pipeline.Embedder, host string, port int, defaultTopK int) *Server {
	r := chi.NewRouter()

	s := &Server{
		store:    st,
		embedder: embedder,
		defaultK: defaultTopK,
		router:   r,
	}

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start() error {
	log.Printf("Starting face-search server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down server...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.Get("/api/v1/health", s.handleHealth)
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/collections/{name}", s.handleCollectionInfo)
		r.Post("/collections/{name}", s.handleCollectionCreate)
		r.Post("/search", s.handleSearch)
	})
}
