// Package server exposes a repoql engine over HTTP and WebSocket.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zoobzio/repoql"
)

// Server routes requests to an engine.
type Server struct {
	engine   *repoql.Engine
	logger   *slog.Logger
	gatherer prometheus.Gatherer
	timeout  time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithGatherer sets the metrics source served on /metrics. Without one the
// default registry is served.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithTimeout bounds each HTTP query. Streams are not bounded.
func WithTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

// New creates a server for engine.
func New(engine *repoql.Engine, opts ...Option) *Server {
	s := &Server{
		engine:   engine,
		logger:   slog.Default(),
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Post("/query", s.handleQuery)
	r.Route("/entities", func(r chi.Router) {
		r.Get("/", s.handleEntities)
		r.Post("/{entity}/derive", s.handleDerive)
	})
	r.Get("/stream", s.handleStream)
	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type fieldInfo struct {
	Name   string `json:"name"`
	Column string `json:"column"`
	Type   string `json:"type,omitempty"`
}

type entityInfo struct {
	Name   string      `json:"name"`
	Table  string      `json:"table"`
	ID     string      `json:"id,omitempty"`
	Fields []fieldInfo `json:"fields"`
}

func (s *Server) handleEntities(w http.ResponseWriter, _ *http.Request) {
	entities := s.engine.Registry().Entities()
	out := make([]entityInfo, 0, len(entities))
	for _, e := range entities {
		info := entityInfo{Name: e.Name, Table: e.Table, ID: e.ID, Fields: []fieldInfo{}}
		for _, f := range e.Fields() {
			info.Fields = append(info.Fields, fieldInfo{Name: f.Name, Column: f.Column, Type: f.Type})
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	writeJSON(w, http.StatusOK, out)
}
