package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/wild-series/internal/handler"    // catalog handlers
	"github.com/iliyamo/wild-series/internal/middleware" // JWT + role middlewares
	"github.com/iliyamo/wild-series/internal/model"      // role names
)

// RegisterCatalog registers the /program pages.  Administration requires
// the ADMIN role; the watchlist is open to any signed-in user.  Middleware
// is attached per route because both audiences share the /program prefix.
func RegisterCatalog(e *echo.Echo, h *handler.CatalogHandler, jwtSecret string) {
	admin := []echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	}
	member := []echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleUser),
	}

	// ---- Administration ----
	e.GET("/program/", h.List, admin...)
	e.GET("/program/new", h.New, admin...)
	e.POST("/program/new", h.Create, admin...)
	e.GET("/program/:slug", h.Show, admin...)
	e.GET("/program/:slug/edit", h.Edit, admin...)
	e.POST("/program/:slug/edit", h.Update, admin...)
	// forms reach this through POST + _method=DELETE
	e.DELETE("/program/:id", h.Delete, admin...)

	// ---- Watchlist ----
	e.GET("/program/:id/watchlist", h.ToggleWatchlist, member...)
	e.POST("/program/:id/watchlist", h.ToggleWatchlist, member...)
	e.GET("/my-watchlist", h.MyWatchlist, member...)
}
