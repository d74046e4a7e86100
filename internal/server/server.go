// Package server provides the HTTP server and routing.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/foliotrack/foliotrack/internal/database"
	dashboardhandlers "github.com/foliotrack/foliotrack/internal/modules/dashboard/handlers"
	"github.com/foliotrack/foliotrack/internal/modules/prices"
	snapshothandlers "github.com/foliotrack/foliotrack/internal/modules/snapshots/handlers"
	"github.com/foliotrack/foliotrack/internal/scheduler"
)

// Config holds server configuration
type Config struct {
	Log              zerolog.Logger
	Port             int
	DevMode          bool
	DataDir          string
	PortfolioDB      *database.DB
	CacheDB          *database.DB
	DashboardHandler *dashboardhandlers.Handler
	SnapshotHandler  *snapshothandlers.Handler
	LiveService      *prices.Service
	StreamInterval   time.Duration
	Jobs             map[string]scheduler.Job // manually triggerable jobs
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	systemHandlers *SystemHandlers
	stream         *Stream
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		systemHandlers: NewSystemHandlers(cfg.Log, cfg.DataDir,
			[]*database.DB{cfg.PortfolioDB, cfg.CacheDB}, cfg.Jobs),
		stream: NewStream(cfg.LiveService, cfg.StreamInterval, cfg.Log),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes(cfg.DashboardHandler, cfg.SnapshotHandler)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	allowedOrigins := []string{"http://localhost:*", "http://127.0.0.1:*"}
	if devMode {
		allowedOrigins = []string{"*"}
	}

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	s.router.Use(middleware.Compress(5))
}

// setupRoutes wires all routes
func (s *Server) setupRoutes(dashboardHandler *dashboardhandlers.Handler, snapshotHandler *snapshothandlers.Handler) {
	s.router.Get("/health", s.systemHandlers.HandleHealth)

	dashboardHandler.RegisterRoutes(s.router)
	snapshotHandler.RegisterRoutes(s.router)
	s.router.Get("/api/dashboard/stream", s.stream.HandleStream)

	s.router.Route("/api/system", func(r chi.Router) {
		r.Get("/status", s.systemHandlers.HandleStatus)
		r.Post("/jobs/{name}", s.systemHandlers.HandleRunJob)
	})
}

// Start starts the HTTP server and blocks until it exits
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP server listening")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Router exposes the router for tests
func (s *Server) Router() *chi.Mux {
	return s.router
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("Request")
	})
}
