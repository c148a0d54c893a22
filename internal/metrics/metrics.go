// Package metrics exposes Prometheus instrumentation for the HTTP server
// and the catalog workflow.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors registered for one process.  Tests build
// their own with a fresh prometheus.NewRegistry().
type Metrics struct {
	gatherer prometheus.Gatherer

	HTTPRequests  *prometheus.CounterVec
	HTTPDuration  *prometheus.HistogramVec
	CatalogEvents *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.  reg must also
// implement prometheus.Gatherer (a *prometheus.Registry does) for Handler
// to serve it; otherwise the default gatherer is used.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wild_http_requests_total",
			Help: "Total HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wild_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		CatalogEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wild_catalog_events_total",
			Help: "Catalog workflow events by type and result.",
		}, []string{"event", "result"}),
	}
	reg.MustRegister(m.HTTPRequests, m.HTTPDuration, m.CatalogEvents)

	m.gatherer = prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// Middleware records the request count and latency.  The route label is the
// registered pattern (/program/:slug), never the raw URL, to keep the label
// cardinality bounded.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else if !c.Response().Committed {
					status = http.StatusInternalServerError
				}
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			m.HTTPDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Observe counts one catalog event; a nil error is recorded as "ok".
func (m *Metrics) Observe(event string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.CatalogEvents.WithLabelValues(event, result).Inc()
}

// Handler serves the registry in the Prometheus text format.  Mount it at
// GET /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
