package api

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v3"

	"github.com/arman/vod-catalog/internal/store"
	"github.com/arman/vod-catalog/internal/util"
)

// Server serves the read-only catalog API
type Server struct {
	httpServer *http.Server
}

// Config holds server configuration
type Config struct {
	Store *store.Store
	Addr  string
	// Logger receives request logs; defaults to a JSON logger on stderr
	Logger *slog.Logger
}

// NewServer creates the catalog API server
func NewServer(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}

	h := &handler{store: cfg.Store}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httplog.RequestLogger(cfg.Logger, &httplog.Options{
		Level:             slog.LevelInfo,
		Schema:            httplog.SchemaECS.Concise(true),
		LogRequestHeaders: []string{},
	}))

	r.Get("/healthz", h.health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/movies", h.listMovies)
		r.Get("/series", h.listSeries)
		r.Get("/entities/{id}", h.getEntity)
		r.Get("/stats", h.getStats)
	})

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start runs the HTTP server until Shutdown is called
func (s *Server) Start() error {
	util.InfoLog("Catalog API listening on %s", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	util.InfoLog("Shutting down catalog API")
	return s.httpServer.Shutdown(ctx)
}
