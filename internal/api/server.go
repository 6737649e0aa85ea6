package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/docmacro/internal/config"
	"github.com/dgallion1/docmacro/internal/pipeline"
	"github.com/dgallion1/docmacro/internal/stats"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for docmacro.
type Server struct {
	router    chi.Router
	processor *pipeline.Processor
	stats     *stats.Registry
	log       *slog.Logger
	cfg       config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(proc *pipeline.Processor, st *stats.Registry, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		processor: proc,
		stats:     st,
		log:       log,
		cfg:       cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Post("/api/render", s.handleRender)
		r.Post("/api/outline", s.handleOutline)
		r.Get("/api/stats/renderers", s.handleRendererStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// runOptions confines every request to the configured base directory.
func (s *Server) runOptions() pipeline.Options {
	return pipeline.Options{
		BaseDir:         s.cfg.BaseDir,
		Confine:         true,
		MaxIncludeDepth: s.cfg.MaxIncludeDepth,
		Bibliography:    s.cfg.Bibliography,
	}
}
