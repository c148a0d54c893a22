package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/wild-series/internal/handler"
)

// RegisterBrowse registers the anonymous catalog pages.  mws typically
// holds the rate limiter and the Redis response cache, in that order.
// The program-by-name page lives under /wild/program because /program/:slug
// already belongs to the administration pages.
func RegisterBrowse(e *echo.Echo, h *handler.BrowseHandler, mws ...echo.MiddlewareFunc) {
	e.GET("/wild", h.Index, mws...)

	// The bare paths answer with the "nothing has been sent" 404s.
	e.GET("/show", h.ShowBySlug, mws...)
	e.GET("/show/:slug", h.ShowBySlug, mws...)
	e.GET("/category", h.ShowByCategory, mws...)
	e.GET("/category/:categoryName", h.ShowByCategory, mws...)
	e.GET("/wild/program", h.ShowByProgram, mws...)
	e.GET("/wild/program/:programName", h.ShowByProgram, mws...)
	e.GET("/season", h.ShowBySeason, mws...)
	e.GET("/season/:id", h.ShowBySeason, mws...)
}
