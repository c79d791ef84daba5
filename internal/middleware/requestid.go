package middleware

import (
    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
)

// RequestID tags every request with an X-Request-ID, reusing the one the
// client sent when present.
func RequestID() echo.MiddlewareFunc {
    return echomw.RequestIDWithConfig(echomw.RequestIDConfig{
        Generator: uuid.NewString,
    })
}

// RequestIDOf returns the request id assigned by RequestID.
func RequestIDOf(c echo.Context) string {
    return c.Response().Header().Get(echo.HeaderXRequestID)
}
