// Package server exposes a key-value store over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/MikhailWahib/zynk/internal/config"
	"github.com/MikhailWahib/zynk/internal/election"
)

const (
	contentTypeJSON = "application/json"
	maxValueBytes   = 16 << 20
)

// Store is the engine contract the handlers consume. *zynk.DB and
// *memkv.Store implement it.
type Store interface {
	Put(key, value []byte) error
	Get(key []byte) ([]byte, bool, error)
	Delete(key []byte) error
}

// Server represents the HTTP front end of a node.
type Server struct {
	store   Store
	elector election.Elector
	cfg     config.ServerConfig
	log     zerolog.Logger

	httpServer *http.Server
	listener   net.Listener
}

// New creates a server. A nil elector means this node always leads.
func New(store Store, elector election.Elector, cfg config.ServerConfig, log zerolog.Logger) *Server {
	if elector == nil {
		elector = election.NewStatic(true)
	}
	return &Server{
		store:   store,
		elector: elector,
		cfg:     cfg,
		log:     log.With().Str("component", "http").Logger(),
	}
}

// Handler builds the chi router with its middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(func(next http.Handler) http.Handler { return AccessLog(s.log, next) })

	r.Get("/health", s.handleHealth)
	r.Route("/kv", func(r chi.Router) {
		r.Get("/{key}", s.handleGet)
		r.Put("/{key}", s.handlePut)
		r.Delete("/{key}", s.handleDelete)
	})

	return r
}

// Start binds the configured address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.cfg.Addr(), err)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("HTTP server error")
		}
	}()

	s.log.Info().Str("addr", ln.Addr().String()).Msg("HTTP server started")
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, waiting for in-flight requests up to the
// configured shutdown timeout.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	s.log.Info().Msg("HTTP server stopped")
	return nil
}

// Run starts the server and stops it when ctx is done.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	return s.Stop()
}
