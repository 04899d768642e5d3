package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stolasapp/animes/internal/sec"
)

const namespace = "animes"

// Metrics owns the process's Prometheus registry and the collectors recorded
// by the HTTP stack.
type Metrics struct {
	registry        *prometheus.Registry
	requestDuration *prometheus.HistogramVec
	gateDecisions   *prometheus.CounterVec
}

// NewMetrics creates a registry with the Go runtime and process collectors
// plus the request and gate collectors.
func NewMetrics() *Metrics {
	metrics := &Metrics{
		registry: prometheus.NewRegistry(),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Time (in seconds) spent serving HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status_code"}),
		gateDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_decisions_total",
			Help:      "Requests decided by the security gate, by outcome.",
		}, []string{"outcome"}),
	}
	metrics.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		metrics.requestDuration,
		metrics.gateDecisions,
	)
	return metrics
}

// Registry exposes the underlying registry, primarily for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordOutcome satisfies the [sec.Recorder] interface.
func (m *Metrics) RecordOutcome(outcome sec.Outcome) {
	m.gateDecisions.WithLabelValues(string(outcome)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware observes the duration of every request, labeled by its route
// template rather than its raw path.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			status := c.Response().Status
			if err != nil {
				status = statusOf(err)
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.requestDuration.
				WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}

func statusOf(err error) int {
	if httpErr, ok := err.(*echo.HTTPError); ok { //nolint:errorlint // echo returns these unwrapped
		return httpErr.Code
	}
	return http.StatusInternalServerError
}

var _ sec.Recorder = (*Metrics)(nil)
