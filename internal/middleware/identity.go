package middleware

// identity.go holds the accessors for the caller identity that JWTAuth
// stores in the Echo context.

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

const (
    ctxUserID = "user_id"
    ctxRole   = "role"
)

// CallerID returns the authenticated user's id.  ok is false when no
// valid token was presented.
func CallerID(c echo.Context) (uint64, bool) {
    s, _ := c.Get(ctxUserID).(string)
    if s == "" {
        return 0, false
    }
    id, err := strconv.ParseUint(s, 10, 64)
    if err != nil || id == 0 {
        return 0, false
    }
    return id, true
}

// CallerRole returns the role claim of the authenticated user, or "".
func CallerRole(c echo.Context) string {
    r, _ := c.Get(ctxRole).(string)
    return r
}

// userKey identifies the caller for rate limiting, "anon" for guests.
func userKey(c echo.Context) string {
    if s, _ := c.Get(ctxUserID).(string); s != "" {
        return s
    }
    return "anon"
}
