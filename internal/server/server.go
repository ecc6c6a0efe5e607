// Package server provides the HTTP API for tanya.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/tanya/internal/config"
	"github.com/hyperjump/tanya/internal/session"
)

// Server is the HTTP server for the question-answering API.
// Each session has its own orchestrator; requests to the same session are serialized.
// Sessions left unused for longer than the configured idle time are evicted while the server runs.
type Server struct {
	factory *session.Factory
	config  *config.ServerConfig
	logger  *zap.Logger
	server  *http.Server

	mu       sync.Mutex
	sessions map[string]*entry
}

type entry struct {
	mu       sync.Mutex
	orch     *session.Orchestrator
	created  time.Time
	lastUsed time.Time // guarded by Server.mu
}

// NewServer creates a server that builds sessions with factory.
func NewServer(factory *session.Factory, cfg *config.ServerConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		factory:  factory,
		config:   cfg,
		logger:   logger,
		sessions: make(map[string]*entry),
	}
}

// Router returns the API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/sessions", s.handleCreateSession)
	r.Post("/api/v1/sessions/{id}/ask", s.handleAsk)
	r.Get("/api/v1/sessions/{id}/messages", s.handleMessages)
	r.Get("/api/v1/sessions/{id}/saved", s.handleSaved)
	r.Delete("/api/v1/sessions/{id}", s.handleDeleteSession)
	r.Get("/health", s.handleHealth)
	return r
}

// Start listens on the configured address and serves until the server is stopped.
func (s *Server) Start() error {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(l)
}

// Serve accepts connections on l and blocks until the server stops.
// It returns nil after a graceful shutdown through Stop.
func (s *Server) Serve(l net.Listener) error {
	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()

	stop := s.startJanitor()
	defer stop()

	s.logger.Info("Starting server", zap.String("addr", l.Addr().String()))
	if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv != nil {
		return srv.Shutdown(ctx)
	}
	return nil
}

func (s *Server) idleTTL() time.Duration {
	if s.config == nil {
		return 0
	}
	return time.Duration(s.config.SessionIdleMins) * time.Minute
}

// startJanitor evicts idle sessions periodically until the returned func is called.
func (s *Server) startJanitor() func() {
	ttl := s.idleTTL()
	if ttl <= 0 {
		return func() {}
	}
	interval := ttl / 4
	if interval > time.Minute {
		interval = time.Minute
	}
	done := make(chan struct{})
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case now := <-ticker.C:
				s.evictIdle(now)
			}
		}
	}()
	return func() { close(done) }
}

// evictIdle removes sessions not used within the idle time as of now.
// Sessions with a request in flight are kept.
func (s *Server) evictIdle(now time.Time) int {
	ttl := s.idleTTL()
	if ttl <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, e := range s.sessions {
		if now.Sub(e.lastUsed) < ttl {
			continue
		}
		if !e.mu.TryLock() {
			continue
		}
		delete(s.sessions, id)
		e.mu.Unlock()
		n++
	}
	if n > 0 {
		s.logger.Info("Evicted idle sessions", zap.Int("evicted", n), zap.Int("remaining", len(s.sessions)))
	}
	return n
}

func (s *Server) add(orch *session.Orchestrator) *entry {
	now := time.Now().UTC()
	e := &entry{orch: orch, created: now, lastUsed: now}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[orch.ID()] = e
	return e
}

func (s *Server) get(id string) (*entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if ok {
		e.lastUsed = time.Now().UTC()
	}
	return e, ok
}

func (s *Server) touch(e *entry) {
	s.mu.Lock()
	e.lastUsed = time.Now().UTC()
	s.mu.Unlock()
}

func (s *Server) remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}
