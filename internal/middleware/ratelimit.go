package middleware

import (
    "bytes"
    "encoding/json"
    "errors"
    "io"
    "math"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/bus-ticket-reservation/internal/config"
)

// bookingBodyPeek bounds how much of a booking request body is read to
// find its trip id.
const bookingBodyPeek = 4 << 10

var errUnexpectedReply = errors.New("ratelimit: unexpected script reply")

// takeScript refills the bucket continuously at refill/interval tokens per
// millisecond, then takes one token.  Returns {allowed, remaining, retry_ms}.
var takeScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local per_ms = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local state = redis.call('HMGET', key, 'tokens', 'ts')
local tokens = tonumber(state[1]) or capacity
local ts = tonumber(state[2]) or now

tokens = math.min(capacity, tokens + math.max(0, now - ts) * per_ms)

local allowed = 0
local retry = 0
if tokens >= 1 then
    allowed = 1
    tokens = tokens - 1
elseif per_ms > 0 then
    retry = math.ceil((1 - tokens) / per_ms)
end

redis.call('HSET', key, 'tokens', tostring(tokens), 'ts', now)
redis.call('EXPIRE', key, ttl)
return { allowed, math.floor(tokens), retry }
`)

type decision struct {
    allowed   bool
    remaining int64
    retryMs   int64
}

// take spends one token from the bucket behind key.
func take(c echo.Context, rdb *redis.Client, cfg config.RateLimitConfig, key string, now time.Time) (decision, error) {
    perMs := float64(cfg.RefillTokens) / float64(cfg.RefillInterval.Milliseconds())
    vals, err := takeScript.Run(c.Request().Context(), rdb, []string{key},
        now.UnixMilli(), cfg.Capacity, strconv.FormatFloat(perMs, 'f', -1, 64), int64(cfg.TTL/time.Second)).Int64Slice()
    if err != nil {
        return decision{}, err
    }
    if len(vals) != 3 {
        return decision{}, errUnexpectedReply
    }
    return decision{allowed: vals[0] == 1, remaining: vals[1], retryMs: vals[2]}, nil
}

// NewTokenBucket throttles booking mutations with a token bucket kept in
// Redis, so every API replica spends from the same budget.  With the
// default user_target strategy a traveler hammering one trip or one
// booking is slowed down without blocking their other bookings.  Redis
// failures let the request through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := buildRateKey(cfg, c)
            d, err := take(c, rdb, cfg, key, time.Now())
            if err != nil {
                if cfg.Debug {
                    c.Logger().Warnf("[ratelimit] redis error for key=%s: %v", key, err)
                }
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.remaining, 10))
            if cfg.Debug {
                h.Set("X-RateLimit-Key", key)
            }
            if d.allowed {
                return next(c)
            }

            secs := int(math.Ceil(float64(d.retryMs) / 1000))
            if secs < 1 {
                secs = 1
            }
            h.Set("Retry-After", strconv.Itoa(secs))
            return c.JSON(http.StatusTooManyRequests, echo.Map{
                "error":       "too_many_requests",
                "message":     "too many booking attempts, slow down",
                "retry_after": secs,
            })
        }
    }
}

// bookingTarget names what a booking mutation acts on: the booking in the
// path, else the trip in a JSON body.  The body is restored for the
// handler.
func bookingTarget(c echo.Context) string {
    if id := c.Param("id"); id != "" {
        return "booking:" + id
    }
    req := c.Request()
    if req.Body == nil || req.Body == http.NoBody {
        return "none"
    }
    head, err := io.ReadAll(io.LimitReader(req.Body, bookingBodyPeek))
    req.Body = struct {
        io.Reader
        io.Closer
    }{io.MultiReader(bytes.NewReader(head), req.Body), req.Body}
    if err != nil {
        return "none"
    }
    var body struct {
        TripID json.Number `json:"trip_id"`
    }
    if json.Unmarshal(head, &body) != nil {
        return "none"
    }
    if id, err := strconv.ParseUint(body.TripID.String(), 10, 64); err == nil && id > 0 {
        return "trip:" + strconv.FormatUint(id, 10)
    }
    return "none"
}

// buildRateKey joins the prefix with the parts the strategy selects.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }
    parts := []string{cfg.Prefix}
    switch strings.ToLower(cfg.KeyStrategy) {
    case "ip":
        parts = append(parts, "ip", ip)
    case "user":
        parts = append(parts, "user", userKey(c))
    case "ip_user":
        parts = append(parts, "ip", ip, "user", userKey(c))
    case "user_route":
        parts = append(parts, "user", userKey(c), "route", c.Request().Method+" "+c.Path())
    default:
        parts = append(parts, "user", userKey(c), bookingTarget(c))
    }
    return strings.Join(parts, ":")
}
