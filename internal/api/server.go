// Package api provides the HTTP API server and handlers for the video tracker.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Loxed/youtube-video-tracker/internal/sse"
	"github.com/Loxed/youtube-video-tracker/internal/store"
	"github.com/Loxed/youtube-video-tracker/internal/validation"
)

// Options configures the HTTP surface.
type Options struct {
	// AllowedOrigins lists CORS origins; the browser extension's origin in practice.
	AllowedOrigins []string
	// RequestsPerSecond bounds API requests per client IP. Zero disables it.
	RequestsPerSecond float64
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store       store.CourseStore
	services    *Services
	sseHandler  *sse.Handler
	sseManager  *sse.Manager
	validator   *validation.Validator
	router      *chi.Mux
	api         huma.API
	rateLimiter *RateLimiter
	logger      *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(courses store.CourseStore, services *Services, sseManager *sse.Manager, opts Options, logger *slog.Logger) *Server {
	router := chi.NewRouter()

	s := &Server{
		store:      courses,
		services:   services,
		sseManager: sseManager,
		validator:  validation.New(),
		router:     router,
		logger:     logger,
	}
	if sseManager != nil {
		s.sseHandler = sse.NewHandler(sseManager, logger)
	}
	if opts.RequestsPerSecond > 0 {
		s.rateLimiter = NewRateLimiter(opts.RequestsPerSecond, int(opts.RequestsPerSecond*2)+1)
	}

	s.setupMiddleware(opts)

	humaConfig := huma.DefaultConfig("Video Tracker API", "1.0.0")
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)
	s.api = humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close releases background resources held by the server.
func (s *Server) Close() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware(opts Options) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))

	if len(opts.AllowedOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
			ExposedHeaders: []string{"X-Request-Id"},
			MaxAge:         300,
		}))
	}

	if s.rateLimiter != nil {
		s.router.Use(RateLimitMiddleware(s.rateLimiter, s.logger))
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.registerHealthRoutes()
	s.registerCourseRoutes()
	s.registerChapterRoutes()
	s.registerPlaybackRoutes()
	s.registerSearchRoutes()

	// The event stream is plain HTTP; huma does not model streaming bodies.
	if s.sseHandler != nil {
		s.router.Get("/api/v1/events", s.sseHandler.ServeHTTP)
	}
}
