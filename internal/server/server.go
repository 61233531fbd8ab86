// Package server exposes stored graphs over HTTP.
//
// Routes:
//
//	GET    /healthz
//	GET    /metrics                         Prometheus exposition, when configured
//	GET    /graphs                          document summaries
//	GET    /graphs/{id}                     snapshot, optionally ?format=yaml|toml|json
//	PUT    /graphs/{id}                     store a snapshot (?format= or Content-Type)
//	DELETE /graphs/{id}
//	GET    /graphs/{id}/nodes/{nodeID}      one node record as JSON
//	GET    /graphs/{id}/render.{format}     dot, svg, png or pdf (?rankdir=, ?pins=true)
//
// Errors are JSON objects {"code": ..., "error": ...} with the status taken
// from the error code.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/pingraph/pkg/buildinfo"
	"github.com/matzehuels/pingraph/pkg/nodegraph"
	"github.com/matzehuels/pingraph/pkg/render/dot"
	"github.com/matzehuels/pingraph/pkg/store"
)

// MaxBodyBytes bounds the size of an uploaded snapshot.
const MaxBodyBytes = 8 << 20

// ShutdownTimeout is how long [Server.ListenAndServe] waits for in-flight
// requests after its context is cancelled.
const ShutdownTimeout = 5 * time.Second

// Options configures a [Server]. Store is required.
type Options struct {
	Store    store.Store
	Registry *nodegraph.Registry
	Renderer *dot.Renderer
	Metrics  http.Handler // served at /metrics when set
	Logger   *log.Logger
}

// Server serves the graph API.
type Server struct {
	store    store.Store
	registry *nodegraph.Registry
	renderer *dot.Renderer
	metrics  http.Handler
	logger   *log.Logger
}

// New creates a server. A nil renderer renders without a cache.
func New(opts Options) *Server {
	s := &Server{
		store:    opts.Store,
		registry: opts.Registry,
		renderer: opts.Renderer,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	if s.renderer == nil {
		s.renderer = dot.NewRenderer(nil, nil, s.logger)
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(s.logger))

	r.Get("/healthz", s.health)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	r.Route("/graphs", func(r chi.Router) {
		r.Get("/", s.listGraphs)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getGraph)
			r.Put("/", s.putGraph)
			r.Delete("/", s.deleteGraph)
			r.Get("/nodes/{nodeID}", s.getNode)
			r.Get("/render.{format}", s.renderGraph)
		})
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully. It returns nil after a clean shutdown.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

type healthBody struct {
	Status string         `json:"status"`
	Build  buildinfo.Info `json:"build"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, healthBody{Status: "ok", Build: buildinfo.Get()})
}
