// Package api exposes the ingestion pipeline contract over HTTP. It is
// a thin consumer: upload, search, related papers, chunk lookup and
// delete all delegate to the pipeline and the paper registry.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"paper-search/internal/index"
	"paper-search/internal/ingest"
	"paper-search/internal/registry"
)

// indexTimeout bounds the background embed+index work for one paper.
const indexTimeout = 5 * time.Minute

// Server holds the handlers' dependencies.
type Server struct {
	pipeline  *ingest.Pipeline
	store     index.Store
	registry  *registry.Registry
	maxUpload int64
	logger    *slog.Logger
}

// New creates an API server around the pipeline.
func New(pipeline *ingest.Pipeline, store index.Store, reg *registry.Registry, maxUpload int64, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		pipeline:  pipeline,
		store:     store,
		registry:  reg,
		maxUpload: maxUpload,
		logger:    logger,
	}
}

// Router builds the chi router with CORS and request logging.
func (s *Server) Router(corsOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/papers", func(r chi.Router) {
		r.Post("/", s.handleUpload)
		r.Get("/", s.handleListPapers)
		r.Get("/{paperID}", s.handleGetPaper)
		r.Get("/{paperID}/chunks", s.handleChunks)
		r.Delete("/{paperID}", s.handleDeletePaper)
	})
	r.Post("/search", s.handleSearch)
	r.Post("/related", s.handleRelated)

	return r
}
