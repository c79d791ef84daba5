package handler

import (
    "context"
    "fmt"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/bus-ticket-reservation/internal/middleware"
    "github.com/iliyamo/bus-ticket-reservation/internal/model"
    "github.com/iliyamo/bus-ticket-reservation/internal/repository"
    "github.com/iliyamo/bus-ticket-reservation/internal/service"
    "github.com/iliyamo/bus-ticket-reservation/internal/utils"
)

// BookingLedger is the booking surface the handlers need.
type BookingLedger interface {
    Create(ctx context.Context, userID uint64, in service.CreateBookingInput) (*model.Booking, error)
    Cancel(ctx context.Context, caller service.Caller, bookingID uint64) (*model.Booking, error)
    ListMine(ctx context.Context, userID uint64) ([]repository.BookingDetail, error)
    Ticket(ctx context.Context, caller service.Caller, bookingID uint64) ([]byte, string, error)
    InitiatePayment(ctx context.Context, caller service.Caller, bookingID uint64, amount int64, method string) (*model.Payment, error)
    ConfirmPayment(ctx context.Context, paymentID uint64, success bool) (*model.Payment, error)
}

// BookingHandler serves the authenticated booking endpoints.
type BookingHandler struct {
    Ledger  BookingLedger
    Timeout time.Duration
}

func NewBookingHandler(l BookingLedger, timeout time.Duration) *BookingHandler {
    return &BookingHandler{Ledger: l, Timeout: timeout}
}

// Create handles POST /v1/bookings.  The body carries trip_id,
// pickup_station_id and dropoff_station_id; the new booking starts
// pending.
func (h *BookingHandler) Create(c echo.Context) error {
    who, ok := caller(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var in service.CreateBookingInput
    if err := c.Bind(&in); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    ctx, cancel := reqCtx(c, h.Timeout)
    defer cancel()
    b, err := h.Ledger.Create(ctx, who.UserID, in)
    if err != nil {
        return respondError(c, "booking", err)
    }
    utils.LogEvent(middleware.RequestIDOf(c), "booking", "create",
        fmt.Sprintf("booking=%d trip=%d user=%d", b.ID, b.TripID, b.UserID))
    return c.JSON(http.StatusCreated, b)
}

// ListMine handles GET /v1/bookings/me.
func (h *BookingHandler) ListMine(c echo.Context) error {
    who, ok := caller(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    ctx, cancel := reqCtx(c, h.Timeout)
    defer cancel()
    out, err := h.Ledger.ListMine(ctx, who.UserID)
    if err != nil {
        return respondError(c, "booking", err)
    }
    return c.JSON(http.StatusOK, out)
}

// Cancel handles POST /v1/bookings/:id/cancel.
func (h *BookingHandler) Cancel(c echo.Context) error {
    who, ok := caller(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }
    ctx, cancel := reqCtx(c, h.Timeout)
    defer cancel()
    b, err := h.Ledger.Cancel(ctx, who, id)
    if err != nil {
        return respondError(c, "booking", err)
    }
    utils.LogEvent(middleware.RequestIDOf(c), "booking", "cancel", fmt.Sprintf("booking=%d by=%d", b.ID, who.UserID))
    return c.JSON(http.StatusOK, b)
}

// Ticket handles GET /v1/bookings/:id/ticket and streams a PDF.
func (h *BookingHandler) Ticket(c echo.Context) error {
    who, ok := caller(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }
    ctx, cancel := reqCtx(c, h.Timeout)
    defer cancel()
    pdf, name, err := h.Ledger.Ticket(ctx, who, id)
    if err != nil {
        return respondError(c, "ticket", err)
    }
    c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`inline; filename="%s"`, name))
    return c.Blob(http.StatusOK, "application/pdf", pdf)
}

type paymentReq struct {
    Amount int64  `json:"amount"`
    Method string `json:"method"`
}

// InitiatePayment handles POST /v1/bookings/:id/payments.
func (h *BookingHandler) InitiatePayment(c echo.Context) error {
    who, ok := caller(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }
    var req paymentReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    ctx, cancel := reqCtx(c, h.Timeout)
    defer cancel()
    p, err := h.Ledger.InitiatePayment(ctx, who, id, req.Amount, req.Method)
    if err != nil {
        return respondError(c, "payment", err)
    }
    return c.JSON(http.StatusCreated, p)
}
