// Package server hosts the exam parsing HTTP API. It owns the SQLite
// store and worker registry lifecycles: the store is opened on start and
// closed on shutdown, and live workers are paused before the process
// exits so their checkpoints stay consistent.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/examkit/examkit/internal/api"
	"github.com/examkit/examkit/internal/config"
	"github.com/examkit/examkit/internal/home"
	"github.com/examkit/examkit/internal/imagestore"
	"github.com/examkit/examkit/internal/model"
	"github.com/examkit/examkit/internal/server/endpoints"
	"github.com/examkit/examkit/internal/store"
	"github.com/examkit/examkit/internal/svcctx"
	"github.com/examkit/examkit/internal/worker"
)

// Server is the main examkit HTTP server.
type Server struct {
	httpServer *http.Server
	store      *store.Store
	registry   *worker.Registry
	configMgr  *config.Manager
	homeDir    *home.Dir
	logger     *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1)
	Host string
	// Port is the port to listen on (default: 8930)
	Port int
	// Home is the examkit home directory (db, images, output)
	Home *home.Dir
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8930
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Home == nil {
		return nil, fmt.Errorf("home directory is required")
	}
	if cfg.ConfigManager == nil {
		return nil, fmt.Errorf("config manager is required")
	}

	s := &Server{
		configMgr: cfg.ConfigManager,
		homeDir:   cfg.Home,
		logger:    cfg.Logger,
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All() {
		s.endpointRegistry.Register(ep)
	}

	// Set up HTTP server
	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:      s.withServices(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Start starts the server. It blocks until the context is cancelled or an
// error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	if err := s.homeDir.EnsureExists(); err != nil {
		s.setNotRunning()
		return fmt.Errorf("failed to prepare home directory: %w", err)
	}

	st, err := store.Open(s.homeDir.DBPath(), s.logger)
	if err != nil {
		s.setNotRunning()
		return fmt.Errorf("failed to open store: %w", err)
	}
	s.store = st
	s.registry = worker.NewRegistry(s.logger)

	// Jobs left in processing by a previous crash have no live worker in
	// this process; mark them paused so they can be resumed.
	if err := s.recoverStaleJobs(ctx); err != nil {
		s.logger.Warn("stale job recovery failed", "error", err)
	}

	s.services = &svcctx.Services{
		Store:    s.store,
		Images:   imagestore.New(s.homeDir.ImagesDir()),
		Registry: s.registry,
		Config:   s.configMgr,
		Logger:   s.logger,
		Home:     s.homeDir,
		Base:     ctx,
	}

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// recoverStaleJobs marks orphaned processing jobs as paused.
func (s *Server) recoverStaleJobs(ctx context.Context) error {
	jobs, err := s.store.ListExams(ctx)
	if err != nil {
		return err
	}
	for _, job := range jobs {
		if job.Status != model.JobProcessing {
			continue
		}
		s.logger.Info("pausing orphaned job", "exam_id", job.ID, "current_page", job.CurrentPage)
		if err := s.store.UpdateExam(ctx, job.ID, map[string]any{
			"status": string(model.JobPaused),
		}); err != nil {
			return err
		}
	}
	return nil
}

// shutdown performs graceful shutdown of the HTTP server and workers.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	// Pause live workers and wait for their checkpoints to commit.
	if s.registry != nil {
		if err := s.registry.PauseAll(shutdownCtx); err != nil {
			s.logger.Error("worker shutdown error", "error", err)
		}
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error("store close error", "error", err)
		}
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Store returns the exam store. Returns nil if the server hasn't started.
func (s *Server) Store() *store.Store {
	return s.store
}

// Registry returns the worker registry. Returns nil if the server hasn't
// started.
func (s *Server) Registry() *worker.Registry {
	return s.registry
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if s.services != nil {
			ctx = svcctx.WithServices(ctx, s.services)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures the server is fully initialized.
// Returns 503 Service Unavailable if the store isn't ready.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.store == nil || s.registry == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
