package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-ticket-reservation/internal/handler"
	"github.com/iliyamo/bus-ticket-reservation/internal/middleware"
)

// RegisterBookings registers traveler booking endpoints under /v1.  All
// routes require a valid JWT; admins may cancel on behalf of a customer,
// which the handler checks.  limit throttles the mutating routes.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group(
		"/v1/bookings",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("CUSTOMER", "ADMIN"),
	)
	g.GET("/me", h.ListMine)
	g.GET("/:id/ticket", h.Ticket)

	g.POST("", h.Create, limit)
	g.POST("/:id/cancel", h.Cancel, limit)
	g.POST("/:id/payments", h.InitiatePayment, limit)
}
