// Package server exposes validation and error classification over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/sqlscope-dev/sqlscope/pkg/errctx"
	"github.com/sqlscope-dev/sqlscope/pkg/schema"
	"github.com/sqlscope-dev/sqlscope/pkg/validator"
)

// Config holds configuration for the HTTP server.
type Config struct {
	Addr         string
	Store        *schema.Store
	Validator    *validator.Validator
	Logger       *slog.Logger
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxBodyBytes int64
}

// Server serves the validation API.
type Server struct {
	addr         string
	store        *schema.Store
	validator    *validator.Validator
	logger       *slog.Logger
	readTimeout  time.Duration
	writeTimeout time.Duration
	maxBodyBytes int64
}

// New creates a server instance.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Validator == nil {
		cfg.Validator = validator.New()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
	return &Server{
		addr:         cfg.Addr,
		store:        cfg.Store,
		validator:    cfg.Validator,
		logger:       cfg.Logger,
		readTimeout:  cfg.ReadTimeout,
		writeTimeout: cfg.WriteTimeout,
		maxBodyBytes: cfg.MaxBodyBytes,
	}
}

// Handler builds the route tree. Exposed separately from Serve so tests can
// drive it with httptest.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/validate", s.handleValidate)
		r.Post("/classify", s.handleClassify)
		r.Get("/databases", s.handleDatabases)
	})
	return r
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("starting server", "addr", s.addr)

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.readTimeout,
		WriteTimeout:      s.writeTimeout,
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

type validateRequest struct {
	SQL      string `json:"sql"`
	Database string `json:"database,omitempty"`
}

type classifyRequest struct {
	SQL      string `json:"sql"`
	Message  string `json:"message"`
	SQLState string `json:"sqlstate,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.SQL == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "sql is required"})
		return
	}

	var catalog schema.Map
	if req.Database != "" {
		if s.store == nil {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "no schema store configured"})
			return
		}
		m, err := s.store.Load(req.Database)
		switch {
		case errors.Is(err, schema.ErrNotFound):
			s.writeJSON(w, http.StatusNotFound, errorResponse{Error: fmt.Sprintf("unknown database %q", req.Database)})
			return
		case err != nil:
			s.logger.Error("loading schema", "database", req.Database, "error", err)
			s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load schema"})
			return
		}
		catalog = m
	}

	res := s.validator.ValidateSchema(req.SQL, catalog)
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.Message == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "message is required"})
		return
	}

	msg := req.Message
	if req.SQLState != "" {
		msg = fmt.Sprintf("SQLSTATE %s: %s", req.SQLState, msg)
	}
	ctx := errctx.Build(req.SQL, errors.New(msg))
	s.writeJSON(w, http.StatusOK, ctx)
}

func (s *Server) handleDatabases(w http.ResponseWriter, _ *http.Request) {
	if s.store == nil {
		s.writeJSON(w, http.StatusOK, map[string][]string{"databases": {}})
		return
	}
	names, err := s.store.Databases()
	if err != nil {
		s.logger.Error("listing databases", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to list databases"})
		return
	}
	if names == nil {
		names = []string{}
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"databases": names})
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("writing response", "error", err)
	}
}
