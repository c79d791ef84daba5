package handler

import (
    "crypto/subtle"
    "fmt"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/bus-ticket-reservation/internal/middleware"
    "github.com/iliyamo/bus-ticket-reservation/internal/utils"
)

// PaymentSecretHeader carries the shared secret on gateway callbacks.
const PaymentSecretHeader = "X-Payment-Secret"

// PaymentHandler receives payment results from the gateway.
type PaymentHandler struct {
    Ledger  BookingLedger
    Secret  string
    Timeout time.Duration
}

func NewPaymentHandler(l BookingLedger, secret string, timeout time.Duration) *PaymentHandler {
    return &PaymentHandler{Ledger: l, Secret: secret, Timeout: timeout}
}

type callbackReq struct {
    Status string `json:"status"` // success | failed
}

// Callback handles POST /v1/payments/:id/callback.
func (h *PaymentHandler) Callback(c echo.Context) error {
    got := c.Request().Header.Get(PaymentSecretHeader)
    if h.Secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.Secret)) != 1 {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid callback secret"})
    }
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payment id"})
    }
    var req callbackReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    var success bool
    switch strings.ToLower(strings.TrimSpace(req.Status)) {
    case "success":
        success = true
    case "failed":
    default:
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "status must be success or failed"})
    }
    ctx, cancel := reqCtx(c, h.Timeout)
    defer cancel()
    p, err := h.Ledger.ConfirmPayment(ctx, id, success)
    if err != nil {
        return respondError(c, "payment", err)
    }
    utils.LogEvent(middleware.RequestIDOf(c), "payment", "callback", fmt.Sprintf("payment=%d status=%s", p.ID, p.Status))
    return c.JSON(http.StatusOK, p)
}
