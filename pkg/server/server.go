// Package server serves a signature database over HTTP.
//
// Routes:
//
//	GET /healthz
//	GET /api/v1/stats
//	GET /api/v1/modules?kind=class|module
//	GET /api/v1/modules/{name}
//	GET /api/v1/modules/{name}/ancestors
//	GET /api/v1/lookup?module=&method=&singleton=&inherit=
//	GET /api/v1/search?q=&limit=
//	GET /metrics
//
// Errors are JSON objects {"code": ..., "message": ...}. The database can be
// replaced while serving with [Server.Swap]; requests in flight finish
// against the database they started with.
package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/stubdex/pkg/index"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = "127.0.0.1:8372"

// DefaultCacheSize is the number of rendered responses kept in memory.
const DefaultCacheSize = 1024

// Config configures a Server.
type Config struct {
	Addr      string
	Name      string // corpus name reported by /healthz
	CacheSize int
	Logger    *log.Logger
	// Gatherer serves /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// Server answers lookups against a signature database.
type Server struct {
	cfg       Config
	db        atomic.Pointer[index.Database]
	gen       atomic.Uint64
	responses *lru.Cache[string, []byte]
	logger    *log.Logger
	router    chi.Router
}

// New creates a server for db.
func New(db *index.Database, cfg Config) (*Server, error) {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	responses, err := lru.New[string, []byte](cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	s := &Server{cfg: cfg, responses: responses, logger: cfg.Logger}
	if db == nil {
		db = index.New()
	}
	s.db.Store(db)
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/stats", s.cached(s.handleStats))
		r.Get("/modules", s.cached(s.handleModules))
		r.Get("/modules/{name}", s.cached(s.handleModule))
		r.Get("/modules/{name}/ancestors", s.cached(s.handleAncestors))
		r.Get("/lookup", s.cached(s.handleLookup))
		r.Get("/search", s.cached(s.handleSearch))
	})
	if s.cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{}))
	}
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, errNotFound(r.URL.Path))
	})
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Database returns the database being served.
func (s *Server) Database() *index.Database { return s.db.Load() }

// Swap replaces the database and drops cached responses.
func (s *Server) Swap(db *index.Database) {
	s.db.Store(db)
	s.gen.Add(1)
	s.responses.Purge()
	s.logger.Info("database replaced", "modules", db.Len())
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("serving", "addr", s.cfg.Addr, "modules", s.Database().Len())
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
