package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"                    // import the Echo web framework to handle routing
	echomw "github.com/labstack/echo/v4/middleware" // method override, request ids and panic recovery
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/wild-series/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/wild-series/internal/metrics"    // prometheus collectors
	"github.com/iliyamo/wild-series/internal/middleware" // JWT, roles, cache, rate limiting, request logs
)

// Setup installs the application-wide middleware.  HTML forms cannot send
// DELETE, so a POST carrying _method=DELETE is rewritten before routing.
// m may be nil, in which case requests are not instrumented.
func Setup(e *echo.Echo, log *logrus.Entry, m *metrics.Metrics) {
	e.HideBanner = true
	e.Validator = handler.NewFormValidator()
	e.Pre(echomw.MethodOverrideWithConfig(echomw.MethodOverrideConfig{
		Getter: echomw.MethodFromForm("_method"),
	}))
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.Recover())
	if m != nil {
		e.Use(m.Middleware())
	}
	e.Use(middleware.RequestLogger(log))
}

// RegisterRoutes registers non-authenticated infrastructure routes.
func RegisterRoutes(e *echo.Echo, db handler.Pinger, m *metrics.Metrics) {
	// Load balancers probe /healthz; it fails when MySQL is unreachable.
	e.GET("/healthz", handler.Health(db))
	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}
}

// RegisterAuth registers the token endpoints and /me.  limit throttles the
// credential endpoints; pass a no-op middleware to disable it.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/auth")
	g.POST("/register", a.Register, limit)
	g.POST("/login", a.Login, limit)

	e.GET("/me", a.Me, middleware.JWTAuth(jwtSecret))
}
