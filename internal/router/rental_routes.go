package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-rental/internal/handler"
	"github.com/iliyamo/movie-rental/internal/middleware"
	"github.com/iliyamo/movie-rental/internal/model"
)

// RegisterRentals registers rental endpoints under /v1/rentals.  Every route
// requires a valid JWT; customers only see and close their own rentals,
// which the handler enforces.  The limiter runs after authentication so
// buckets can be keyed by user.
func RegisterRentals(e *echo.Echo, h *handler.RentalHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1/rentals",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleCustomer),
		limiter,
	)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.POST("", h.Create)
	g.POST("/:id/close", h.Close)
}
