package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/bus-ticket-reservation/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/bus-ticket-reservation/internal/middleware" // import middleware for JWT authentication and role enforcement
)

// RegisterRoutes registers operational routes that do not require
// authentication: the health check and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo, health echo.HandlerFunc) {
	e.GET("/healthz", health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers all authentication‑related routes and applies the
// necessary middleware.  Unauthenticated operations live under /v1/auth,
// while protected endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// rotates the refresh token
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole("CUSTOMER", "ADMIN"))
	auth.GET("/me", a.Me)
}

// RegisterPublic registers the unauthenticated search and reference
// endpoints.  cache wraps the search routes only; availability is always
// read live.
func RegisterPublic(e *echo.Echo, s *handler.SearchHandler, r *handler.ReferenceHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/stations", r.ListStations)
	e.GET("/v1/routes/:id/stops", r.RouteStops)

	e.GET("/v1/trips/search", s.Search, cache)
	e.GET("/v1/trips/search/nearby", s.Nearby, cache)
	e.GET("/v1/trips/:id/availability", s.Availability)
}
