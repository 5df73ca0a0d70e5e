package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ChicagoDave/feasibility/internal/config"
	"github.com/ChicagoDave/feasibility/pkg/optimizer"
	"github.com/ChicagoDave/feasibility/pkg/spec"
)

const shutdownTimeout = 5 * time.Second

// Server exposes the solver over HTTP. Requests without a body operate on
// the project directory the server was started with.
type Server struct {
	projectPath string
	cfg         config.Config
	log         logr.Logger
	registry    *prometheus.Registry
	metrics     *metrics
}

// New creates a server for the given project directory, which may be empty
// when every request carries its own project.
func New(projectPath string, cfg config.Config, log logr.Logger) *Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Server{
		projectPath: projectPath,
		cfg:         cfg,
		log:         log.WithName("server"),
		registry:    reg,
		metrics:     newMetrics(reg),
	}
}

// Handler returns the server's routes wrapped in request ID middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	s.handle(mux, "POST /api/solve", s.handleSolve)
	s.handle(mux, "POST /api/evaluate", s.handleEvaluate)
	s.handle(mux, "POST /api/merge", s.handleMerge)
	s.handle(mux, "POST /api/sensitivity", s.handleSensitivity)
	s.handle(mux, "GET /api/project", s.handleProject)
	s.handle(mux, "GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	return s.withRequestID(mux)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.log.Info("Feasibility server starting", "addr", "http://localhost"+srv.Addr, "project", s.projectPath)

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// solver builds a solver for one project. Regulated rents are per project, so
// solvers are not shared across requests.
func (s *Server) solver(p *spec.Project, log logr.Logger) (*optimizer.Solver, error) {
	opts, err := s.cfg.SolverOptions(p, log)
	if err != nil {
		return nil, err
	}
	return optimizer.New(opts), nil
}

// loadProject reads the project directory the server was started with.
func (s *Server) loadProject() (*spec.Project, error) {
	if s.projectPath == "" {
		return nil, errNoProject
	}
	p, err := spec.LoadProject(s.projectPath)
	if err != nil {
		return nil, fmt.Errorf("loading project: %w", err)
	}
	return p, nil
}

var errNoProject = errors.New("no project directory configured; send the project in the request body")
