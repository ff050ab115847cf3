// Package server provides the HTTP server and routing for Quanta.
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

	"github.com/quantalab/quanta/internal/config"
	"github.com/quantalab/quanta/internal/database"
	"github.com/quantalab/quanta/internal/events"
	hybridhandlers "github.com/quantalab/quanta/internal/modules/orchestrator/handlers"
	"github.com/quantalab/quanta/internal/queue"
)

// Config holds server configuration
type Config struct {
	Log           zerolog.Logger
	JobsDB        *database.DB
	Config        *config.Config
	Port          int
	DevMode       bool
	EventBus      *events.Bus
	EventManager  *events.Manager
	QueueService  *queue.Service
	HybridHandler *hybridhandlers.Handler
}

// Server is the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	jobsDB         *database.DB
	cfg            *config.Config
	eventBus       *events.Bus
	eventManager   *events.Manager
	queueService   *queue.Service
	hybridHandler  *hybridhandlers.Handler
	systemHandlers *SystemHandlers
	statusMonitor  *StatusMonitor
	startedAt      time.Time
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:        chi.NewRouter(),
		log:           cfg.Log.With().Str("component", "server").Logger(),
		jobsDB:        cfg.JobsDB,
		cfg:           cfg.Config,
		eventBus:      cfg.EventBus,
		eventManager:  cfg.EventManager,
		queueService:  cfg.QueueService,
		hybridHandler: cfg.HybridHandler,
		startedAt:     time.Now(),
	}

	s.systemHandlers = NewSystemHandlers(cfg.Log, cfg.Config.DataDir, cfg.JobsDB, cfg.QueueService, s.startedAt)
	s.statusMonitor = NewStatusMonitor(cfg.EventManager, s.systemHandlers, cfg.Log)

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout; generous because solve requests block on job completion
	s.router.Use(middleware.Timeout(3 * time.Minute))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleRoot)
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Unified events stream (SSE)
		eventsStreamHandler := NewEventsStreamHandler(s.eventBus, s.log)
		r.Get("/events/stream", eventsStreamHandler.ServeHTTP)

		// Hybrid pipeline: solve + job lookup
		s.hybridHandler.RegisterRoutes(r)

		// Per-job WebSocket status stream
		jobStreamHandler := NewJobStreamHandler(s.eventBus, s.queueService, s.log)
		r.Get("/hybrid/jobs/{jobID}/stream", jobStreamHandler.ServeHTTP)

		// Queue statistics
		r.Get("/queue/stats", s.systemHandlers.HandleQueueStats)

		// System monitoring
		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.systemHandlers.HandleSystemStatus)
			r.Get("/database/stats", s.systemHandlers.HandleDatabaseStats)
		})
	})
}

// Start starts the HTTP server and background monitors
func (s *Server) Start() error {
	if s.statusMonitor != nil {
		s.statusMonitor.Start(60 * time.Second)
		s.log.Info().Msg("Status monitor started")
	}

	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	if s.statusMonitor != nil {
		s.statusMonitor.Stop()
	}
	return s.server.Shutdown(ctx)
}

// Router exposes the router for tests
func (s *Server) Router() http.Handler {
	return s.router
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
