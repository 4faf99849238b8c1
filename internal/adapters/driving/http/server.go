package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fiscalia-labs/fiscalia-core/internal/core/ports/driven"
	"github.com/fiscalia-labs/fiscalia-core/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	logger     *slog.Logger

	// Services
	authService     driving.AuthService
	documentService driving.DocumentService
	sessionService  driving.ChatSessionService
	ragService      driving.RAGService

	// Infrastructure
	jobQueue    driven.JobQueue
	db          Pinger // PostgreSQL health check
	redisClient Pinger // Redis health check (optional)
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:    "0.0.0.0",
		Port:    8080,
		Version: "dev",
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	logger *slog.Logger,
	authService driving.AuthService,
	documentService driving.DocumentService,
	sessionService driving.ChatSessionService,
	ragService driving.RAGService,
	jobQueue driven.JobQueue,
	db Pinger,
	redisClient Pinger, // can be nil
) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router:          http.NewServeMux(),
		version:         cfg.Version,
		logger:          logger.With("component", "http"),
		authService:     authService,
		documentService: documentService,
		sessionService:  sessionService,
		ragService:      ragService,
		jobQueue:        jobQueue,
		db:              db,
		redisClient:     redisClient,
	}

	logging := NewLoggingMiddleware(s.logger)
	recovery := NewRecoveryMiddleware(s.logger)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      recovery.Handler(logging.Handler(s.router)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // RAG answers wait on the chat provider
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.authService)

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// Auth endpoint (public)
	s.router.HandleFunc("POST /api/v1/auth/token", s.handleIssueToken)

	// Document endpoints
	s.router.Handle("POST /api/v1/documents",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleIngestDocument)))
	s.router.Handle("GET /api/v1/documents",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleListDocuments)))
	s.router.Handle("GET /api/v1/documents/{id}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleGetDocument)))
	s.router.Handle("DELETE /api/v1/documents/{id}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleDeleteDocument)))
	s.router.Handle("POST /api/v1/documents/{id}/reprocess",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleReprocessDocument)))
	s.router.Handle("GET /api/v1/documents/{id}/history",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleDocumentHistory)))

	// Session endpoints
	s.router.Handle("POST /api/v1/sessions",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleCreateSession)))
	s.router.Handle("GET /api/v1/sessions",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleListSessions)))
	s.router.Handle("GET /api/v1/sessions/{id}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleGetSession)))
	s.router.Handle("DELETE /api/v1/sessions/{id}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleDeleteSession)))
	s.router.Handle("GET /api/v1/sessions/{id}/messages",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleSessionMessages)))
	s.router.Handle("POST /api/v1/sessions/{id}/ask",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleAsk)))

	// Job endpoints
	s.router.Handle("GET /api/v1/jobs",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleListJobs)))
	s.router.Handle("GET /api/v1/jobs/stats",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleJobStats)))
}

// Start starts the HTTP server with graceful shutdown
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		s.logger.Info("starting server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	s.logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the routed handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}
