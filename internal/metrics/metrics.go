// Package metrics provides Prometheus instrumentation for the grid optimizer.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EvaluationsTotal counts pool evaluations, partitioned by pool size.
	EvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loto_optimizer_evaluations_total",
		Help: "Total number of pool evaluations",
	}, []string{"pool_size"})

	// GenerateLatency tracks ticket generation time per strategy kind.
	GenerateLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "loto_generate_latency_seconds",
		Help:    "Ticket generation latency in seconds",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"kind"})

	// TicketsGenerated counts generated tickets by type.
	TicketsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loto_tickets_generated_total",
		Help: "Total tickets produced by the optimizer",
	}, []string{"type"})

	// SessionsSaved counts saved sessions.
	SessionsSaved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loto_sessions_saved_total",
		Help: "Total sessions saved",
	})

	// SessionsChecked counts session checks by resulting status.
	SessionsChecked = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loto_sessions_checked_total",
		Help: "Total session checks against official draws",
	}, []string{"status"})

	// BudgetRejections counts saves rejected by the spending limiter.
	BudgetRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loto_budget_rejections_total",
		Help: "Sessions rejected by the spending limiter",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "loto_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loto_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "loto_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		path := routePattern(r)
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// routePattern returns the matched chi pattern so session IDs do not
// become label values.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets WebSocket upgrades pass through the middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}
