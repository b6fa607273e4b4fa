// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/demand-radar/internal/logging"
	"github.com/demand-radar/internal/models"
	"github.com/demand-radar/internal/scheduler"
	"github.com/demand-radar/internal/storage"
	"github.com/demand-radar/internal/types"
)

// Repository and scheduler interfaces for dependency injection and testing

// AlertRepositoryInterface defines the alert operations the API needs
type AlertRepositoryInterface interface {
	ListByUser(ctx context.Context, userID string, filter storage.AlertFilter) ([]*models.Alert, error)
	UpdateStatus(ctx context.Context, id string, status types.AlertStatus) (*models.Alert, error)
	Delete(ctx context.Context, id string) error
}

// KeywordRepositoryInterface defines the tracked keyword operations the API needs
type KeywordRepositoryInterface interface {
	Create(ctx context.Context, kw *models.TrackedKeyword) error
	ListByUser(ctx context.Context, userID string) ([]*models.TrackedKeyword, error)
	Delete(ctx context.Context, id string) error
}

// UserRepositoryInterface defines the user operations the API needs
type UserRepositoryInterface interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
}

// SchedulerInterface defines the evaluation operations the API needs
type SchedulerInterface interface {
	RunPass(ctx context.Context, trigger scheduler.Trigger) (*scheduler.PassSummary, error)
	Status() (scheduler.State, *scheduler.PassSummary)
}

// Server represents the HTTP API server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	alerts     AlertRepositoryInterface
	keywords   KeywordRepositoryInterface
	users      UserRepositoryInterface
	scheduler  SchedulerInterface
	logger     *logging.Logger
	config     *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// NewServer creates a new API server instance.
func NewServer(
	config *ServerConfig,
	alerts AlertRepositoryInterface,
	keywords KeywordRepositoryInterface,
	users UserRepositoryInterface,
	sched SchedulerInterface,
	logger *logging.Logger,
) *Server {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	s := &Server{
		router:    mux.NewRouter(),
		alerts:    alerts,
		keywords:  keywords,
		users:     users,
		scheduler: sched,
		logger:    logger,
		config:    config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	// Set up middleware (order matters!)
	s.router.Use(LoggingMiddleware(s.logger))
	s.router.Use(RecoveryMiddleware(s.logger))
	s.router.Use(CORSMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	// Alert endpoints
	api.HandleFunc("/users/{userId}/alerts", s.handleListAlerts).Methods("GET")
	api.HandleFunc("/alerts/{id}", s.handleUpdateAlertStatus).Methods("PATCH")
	api.HandleFunc("/alerts/{id}", s.handleDeleteAlert).Methods("DELETE")

	// Tracked keyword endpoints
	api.HandleFunc("/users/{userId}/keywords", s.handleListKeywords).Methods("GET")
	api.HandleFunc("/users/{userId}/keywords", s.handleCreateKeyword).Methods("POST")
	api.HandleFunc("/keywords/{id}", s.handleDeleteKeyword).Methods("DELETE")

	// User endpoints
	api.HandleFunc("/users", s.handleCreateUser).Methods("POST")
	api.HandleFunc("/users", s.handleListUsers).Methods("GET")
	api.HandleFunc("/users/{id}", s.handleGetUser).Methods("GET")

	// Evaluation endpoints
	api.HandleFunc("/evaluation/run", s.handleRunEvaluation).Methods("POST")
	api.HandleFunc("/evaluation/status", s.handleEvaluationStatus).Methods("GET")
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "demand-radar",
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("Starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

// Router returns the underlying router. Used by tests.
func (s *Server) Router() http.Handler {
	return s.router
}
