// Package metrics exposes Prometheus collectors for the HTTP API and the
// state store.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config holds the constant labels of every collector.
type Config struct {
	ServiceName string
	Environment string
}

// Metrics owns the collectors. It satisfies store.Observer.
type Metrics struct {
	registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	requestsTotal   *prometheus.CounterVec
	inFlight        prometheus.Gauge

	storeMutations      *prometheus.CounterVec
	persistenceFailures *prometheus.CounterVec
	darkTheme           prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New(cfg Config) *Metrics {
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "printdesk"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}

	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "printdesk_http_request_duration_seconds",
				Help:        "Duration of HTTP requests by route and status.",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: constLabels,
			},
			[]string{"method", "route", "status"},
		),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "printdesk_http_requests_total",
				Help:        "HTTP requests by route and status.",
				ConstLabels: constLabels,
			},
			[]string{"method", "route", "status"},
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name:        "printdesk_http_in_flight_requests",
				Help:        "HTTP requests being served.",
				ConstLabels: constLabels,
			},
		),
		storeMutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "printdesk_store_mutations_total",
				Help:        "State store mutations by action.",
				ConstLabels: constLabels,
			},
			[]string{"action"},
		),
		persistenceFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "printdesk_store_persistence_failures_total",
				Help:        "State snapshot load or save failures.",
				ConstLabels: constLabels,
			},
			[]string{"op"}, // load | save
		),
		darkTheme: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name:        "printdesk_ui_dark_theme",
				Help:        "1 while the dark theme is applied.",
				ConstLabels: constLabels,
			},
		),
	}

	m.registry.MustRegister(
		m.requestDuration,
		m.requestsTotal,
		m.inFlight,
		m.storeMutations,
		m.persistenceFailures,
		m.darkTheme,
	)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collectors in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Mutation(action string) {
	m.storeMutations.WithLabelValues(action).Inc()
}

func (m *Metrics) PersistenceFailure(op string) {
	m.persistenceFailures.WithLabelValues(op).Inc()
}

// ThemeApplied records the theme last applied by the store.
func (m *Metrics) ThemeApplied(dark bool) {
	if dark {
		m.darkTheme.Set(1)
		return
	}
	m.darkTheme.Set(0)
}

// Middleware records request counts and durations labelled by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		labels := []string{r.Method, routePattern(r), strconv.Itoa(status)}
		m.requestsTotal.WithLabelValues(labels...).Inc()
		m.requestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
	})
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return "unknown"
	}
	pattern := strings.TrimSpace(rctx.RoutePattern())
	if pattern == "" {
		return "unknown"
	}
	return pattern
}
