// Package server exposes the engine over HTTP for an external chart
// renderer: the catalog, stateless simulations, one live scenario that can
// be edited dose by dose, and the tracker's "now" reading.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/juju/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"

	"github.com/pkpd-sim/pkpd-sim/internal/scenario"
	"github.com/pkpd-sim/pkpd-sim/sim"
	"github.com/pkpd-sim/pkpd-sim/sim/tracker"
)

// Config holds the server settings.
type Config struct {
	Addr       string
	Lang       language.Tag
	TickPeriod time.Duration

	// Simulation requests are token-bucket limited: Rate per second with
	// room for Burst at once.
	SimulateRate  float64
	SimulateBurst int64
}

// DefaultConfig listens on :8080 and ticks once a minute.
func DefaultConfig() Config {
	return Config{
		Addr:          ":8080",
		Lang:          language.English,
		TickPeriod:    tracker.DefaultPeriod,
		SimulateRate:  20,
		SimulateBurst: 100,
	}
}

// Server serves the HTTP API.
type Server struct {
	cfg      Config
	server   *http.Server
	router   chi.Router
	registry *prometheus.Registry
	metrics  *metrics
	limiter  *ratelimit.Bucket

	mu    sync.Mutex // guards live and start
	live  *sim.Context
	start string

	tracker *tracker.Tracker
	ticker  *tracker.Ticker
}

// New builds a server whose live scenario starts as initial.
func New(cfg Config, initial scenario.Resolved) *Server {
	def := DefaultConfig()
	if cfg.TickPeriod <= 0 {
		cfg.TickPeriod = def.TickPeriod
	}
	if cfg.SimulateRate <= 0 {
		cfg.SimulateRate = def.SimulateRate
	}
	if cfg.SimulateBurst <= 0 {
		cfg.SimulateBurst = def.SimulateBurst
	}

	router := chi.NewRouter()
	registry := prometheus.NewRegistry()
	s := &Server{
		cfg: cfg,
		server: &http.Server{
			Handler:      router,
			Addr:         cfg.Addr,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		router:   router,
		registry: registry,
		metrics:  newMetrics(registry),
		limiter:  ratelimit.NewBucketWithRate(cfg.SimulateRate, cfg.SimulateBurst),
		tracker:  tracker.New(initial.StartTime),
	}
	s.tracker.OnTick = s.observeReading
	s.ticker = tracker.NewTicker(s.tracker, cfg.TickPeriod)
	s.setLive(initial)

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.metrics.instrument)
}

func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/catalog", s.handleCatalog)
		r.Get("/labels", s.handleLabels)
		r.With(s.rateLimit).Post("/simulate", s.handleSimulate)
		r.Get("/compare", s.handleCompare)
		r.Get("/now", s.handleNow)

		r.Route("/scenario", func(r chi.Router) {
			r.Get("/", s.handleGetScenario)
			r.With(s.rateLimit).Put("/", s.handlePutScenario)
			r.Get("/export.xlsx", s.handleExportXLSX)
			r.Get("/export.csv", s.handleExportCSV)
			r.Post("/doses", s.handleAddDose)
			r.Delete("/doses/{id}", s.handleRemoveDose)
		})
	})
	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Tracker returns the tracker following the live scenario.
func (s *Server) Tracker() *tracker.Tracker { return s.tracker }

// setLive replaces the live scenario and points the tracker at it.
func (s *Server) setLive(r scenario.Resolved) {
	c := r.Context()
	c.OnRecompute = func(res sim.Result) {
		s.metrics.recomputes.Inc()
		s.tracker.SetResult(res)
	}

	s.mu.Lock()
	s.live = c
	s.start = r.StartTime
	s.mu.Unlock()

	s.tracker.SetStart(r.StartTime)
	s.tracker.SetResult(c.Result())
}

func (s *Server) observeReading(r tracker.Reading) {
	if r.Active {
		s.metrics.trackerActive.Set(1)
		s.metrics.trackerCe.Set(r.Point.Ce)
		return
	}
	s.metrics.trackerActive.Set(0)
	s.metrics.trackerCe.Set(0)
}

// Start begins ticking and serves until Shutdown.
func (s *Server) Start() error {
	if err := s.ticker.Start(); err != nil {
		return fmt.Errorf("failed to start tracker: %w", err)
	}
	logrus.Infof("Starting server at %s", s.cfg.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.ticker.Stop()
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown stops the tracker and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	logrus.Info("Shutting down server...")
	s.ticker.Stop()
	if err := s.server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
		return s.server.Close()
	}
	logrus.Info("Server shutdown complete")
	return nil
}
