package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-ticket-reservation/internal/handler"
)

// RegisterPayments registers the gateway callback.  It carries no JWT;
// the handler authenticates the shared secret header instead.
func RegisterPayments(e *echo.Echo, h *handler.PaymentHandler) {
	e.POST("/v1/payments/:id/callback", h.Callback)
}
