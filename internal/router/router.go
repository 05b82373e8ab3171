package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-rental/internal/handler"
	"github.com/iliyamo/movie-rental/internal/middleware"
	"github.com/iliyamo/movie-rental/internal/model"
)

// Deps carries everything RegisterRoutes wires onto the Echo instance.
// Cache and RateLimit may be nil, in which case the routes run without them.
type Deps struct {
	JWTSecret string
	DB        handler.Pinger
	Auth      *handler.AuthHandler
	Movies    *handler.MovieHandler
	Rentals   *handler.RentalHandler
	Cache     echo.MiddlewareFunc
	RateLimit echo.MiddlewareFunc
}

// RegisterRoutes registers every endpoint of the API.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health(d.DB))

	RegisterAuth(e, d.Auth, d.JWTSecret)
	RegisterMovies(e, d.Movies, d.JWTSecret, orPass(d.Cache))
	RegisterRentals(e, d.Rentals, d.JWTSecret, orPass(d.RateLimit))
	RegisterUsers(e, d.Auth, d.JWTSecret)
}

// RegisterAuth registers the session endpoints.  Register, login, refresh
// and logout need no access token; /v1/me does.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// rotates the refresh token
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	// logout accepts either a refresh_token body or a bearer token
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleCustomer),
	)
	auth.GET("/me", a.Me)
}

// RegisterUsers registers the admin user lookup.
func RegisterUsers(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/users",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	g.GET("/:id", a.GetUser)
}

func orPass(mw echo.MiddlewareFunc) echo.MiddlewareFunc {
	if mw == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return mw
}
