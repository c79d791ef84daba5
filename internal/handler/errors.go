package handler

import (
    "context"
    "errors"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/bus-ticket-reservation/internal/middleware"
    "github.com/iliyamo/bus-ticket-reservation/internal/service"
    "github.com/iliyamo/bus-ticket-reservation/internal/utils"
)

const defaultTimeout = 5 * time.Second

// respondError maps service errors to HTTP responses.  Unknown errors
// are logged and reported as 500 without leaking details.
func respondError(c echo.Context, module string, err error) error {
    switch {
    case service.IsValidation(err):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    case service.IsForbidden(err):
        return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
    case service.IsNotFound(err):
        return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
    case errors.Is(err, service.ErrSoldOut):
        return c.JSON(http.StatusConflict, echo.Map{"error": "trip is sold out", "code": "sold_out"})
    case service.IsConflict(err):
        return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
    case service.IsRetryable(err):
        utils.LogEvent(middleware.RequestIDOf(c), module, "error", detail(err))
        c.Response().Header().Set("Retry-After", "1")
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "temporarily unavailable, retry"})
    default:
        utils.LogEvent(middleware.RequestIDOf(c), module, "error", detail(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
    }
}

// detail renders err with its cause for the log line.
func detail(err error) string {
    if cause := errors.Unwrap(err); cause != nil {
        return err.Error() + ": " + cause.Error()
    }
    return err.Error()
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    return id, err == nil && id > 0
}

// reqCtx bounds the store work of one request.
func reqCtx(c echo.Context, d time.Duration) (context.Context, context.CancelFunc) {
    if d <= 0 {
        d = defaultTimeout
    }
    return context.WithTimeout(c.Request().Context(), d)
}

// caller returns the authenticated identity set by JWTAuth.
func caller(c echo.Context) (service.Caller, bool) {
    id, ok := middleware.CallerID(c)
    if !ok {
        return service.Caller{}, false
    }
    return service.Caller{UserID: id, Role: middleware.CallerRole(c)}, true
}
