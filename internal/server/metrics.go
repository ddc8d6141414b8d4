package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

// metrics are registered on a per-server registry so several servers can
// coexist in one process.
type metrics struct {
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	simulations   *prometheus.CounterVec
	recomputes    prometheus.Counter
	trackerActive prometheus.Gauge
	trackerCe     prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_request_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		simulations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pkpd_simulations_total",
				Help: "Stateless simulations served, by drug",
			},
			[]string{"drug"},
		),
		recomputes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pkpd_live_recomputations_total",
				Help: "Recomputations of the live scenario",
			},
		),
		trackerActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pkpd_tracker_active",
				Help: "1 while the wall clock lies inside the live simulation window",
			},
		),
		trackerCe: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pkpd_tracker_ce_ng_ml",
				Help: "Effect-site concentration at the current wall-clock time",
			},
		),
	}
	reg.MustRegister(m.requests, m.duration, m.simulations, m.recomputes, m.trackerActive, m.trackerCe)
	return m
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// instrument records request counts and latency by route pattern.
func (m *metrics) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		path := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			path = rc.RoutePattern()
		}
		m.requests.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		m.duration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
