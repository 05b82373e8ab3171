package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-rental/internal/handler"
	"github.com/iliyamo/movie-rental/internal/middleware"
	"github.com/iliyamo/movie-rental/internal/model"
)

// RegisterMovies registers the catalogue.  Browsing is public and goes
// through the response cache; creating and deleting movies needs ADMIN.
func RegisterMovies(e *echo.Echo, h *handler.MovieHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	e.GET("/v1/movies", h.List, cache)
	e.GET("/v1/movies/:id", h.Get, cache)

	g := e.Group("/v1/movies",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	g.POST("", h.Create)
	g.DELETE("/:id", h.Delete)
}
