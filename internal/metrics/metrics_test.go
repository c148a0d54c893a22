package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New(prometheus.NewRegistry())
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/show/:slug", func(c echo.Context) error { return c.String(http.StatusOK, "x") })

	for _, slug := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/show/"+slug, nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/show/:slug", "200")))
}

func TestMiddlewareRecordsHTTPErrorStatus(t *testing.T) {
	m := New(prometheus.NewRegistry())
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/boom", func(c echo.Context) error { return echo.NewHTTPError(http.StatusTeapot) })

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/boom", "418")))
}

func TestObserve(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.Observe("email", nil)
	m.Observe("email", errors.New("smtp down"))
	m.Observe("email", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CatalogEvents.WithLabelValues("email", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CatalogEvents.WithLabelValues("email", "error")))

	var nilMetrics *Metrics
	assert.NotPanics(t, func() { nilMetrics.Observe("email", nil) })
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.Observe("create", nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `wild_catalog_events_total{event="create",result="ok"} 1`)
}
