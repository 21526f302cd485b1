// Package server exposes the figure pipeline over HTTP for dashboard
// callbacks.
//
// Routes:
//
//	GET  /healthz                 build information
//	GET  /axes                    repository description
//	GET  /axes/{axis}/entries     entry names of one axis
//	POST /veneers                 validate display options
//	POST /datasets                extract (and shape) a dataset
//	POST /figures                 run the pipeline and store the figure
//	GET  /figures/{id}            stored figure description
//	GET  /figures/{id}/{format}   stored figure drawn in one format
//
// Errors are returned as {"error": {"code", "message", "stage", "detail"}}.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/tanaylab/mcbrowse/pkg/artifact"
	"github.com/tanaylab/mcbrowse/pkg/pipeline"
	"github.com/tanaylab/mcbrowse/pkg/source"
	"github.com/tanaylab/mcbrowse/pkg/store"
)

// DefaultShutdownTimeout bounds graceful shutdown.
const DefaultShutdownTimeout = 10 * time.Second

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 8 << 20

// Server serves one repository.
type Server struct {
	src       source.Reader
	runner    *pipeline.Runner
	figures   store.Store
	artifacts artifact.Store
	logger    *log.Logger
	figureTTL time.Duration
	router    chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithArtifacts publishes every exported artifact to s.
func WithArtifacts(s artifact.Store) Option {
	return func(srv *Server) { srv.artifacts = s }
}

// WithLogger sets the request logger (default: the runner's logger).
func WithLogger(l *log.Logger) Option {
	return func(srv *Server) { srv.logger = l }
}

// WithFigureTTL sets how long stored figures live.
func WithFigureTTL(d time.Duration) Option {
	return func(srv *Server) { srv.figureTTL = d }
}

// New creates a server. A nil runner gets a runner without cache; a nil
// figure store gets a memory store.
func New(src source.Reader, runner *pipeline.Runner, figures store.Store, opts ...Option) (*Server, error) {
	if runner == nil {
		runner = pipeline.NewRunner(nil, nil, nil)
	}
	if figures == nil {
		mem, err := store.NewMemoryStore(0)
		if err != nil {
			return nil, err
		}
		figures = mem
	}
	s := &Server{
		src:       src,
		runner:    runner,
		figures:   figures,
		figureTTL: store.DefaultTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = runner.Logger
	}
	s.router = s.routes()
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errc
}

// Close releases the figure store.
func (s *Server) Close() error {
	return s.figures.Close()
}
