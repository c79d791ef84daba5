package handler

import (
    "context"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/bus-ticket-reservation/internal/service"
)

// TripSearcher is the search surface the handlers need.
type TripSearcher interface {
    Search(ctx context.Context, q service.StationQuery) ([]service.TripResult, error)
    SearchByCoordinates(ctx context.Context, q service.CoordinateQuery) ([]service.RankedTripResult, error)
}

// SeatCounter reports a trip's live availability.
type SeatCounter interface {
    Available(ctx context.Context, tripID uint64) (int, error)
}

// SearchHandler serves the public trip search endpoints.
type SearchHandler struct {
    Trips   TripSearcher
    Seats   SeatCounter
    Timeout time.Duration
}

func NewSearchHandler(trips TripSearcher, seats SeatCounter, timeout time.Duration) *SearchHandler {
    return &SearchHandler{Trips: trips, Seats: seats, Timeout: timeout}
}

// Search handles GET /v1/trips/search?from_station_id=&to_station_id=&date=.
func (h *SearchHandler) Search(c echo.Context) error {
    from, err := strconv.ParseUint(c.QueryParam("from_station_id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid from_station_id"})
    }
    to, err := strconv.ParseUint(c.QueryParam("to_station_id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid to_station_id"})
    }
    ctx, cancel := reqCtx(c, h.Timeout)
    defer cancel()
    res, err := h.Trips.Search(ctx, service.StationQuery{
        FromStationID: from,
        ToStationID:   to,
        Date:          strings.TrimSpace(c.QueryParam("date")),
    })
    if err != nil {
        return respondError(c, "search", err)
    }
    return c.JSON(http.StatusOK, echo.Map{"count": len(res), "trips": res})
}

// Nearby handles GET /v1/trips/search/nearby?from_lat=&from_lng=&to_lat=&to_lng=&date=.
func (h *SearchHandler) Nearby(c echo.Context) error {
    var q service.CoordinateQuery
    for _, p := range []struct {
        name string
        dst  *float64
    }{
        {"from_lat", &q.FromLat}, {"from_lng", &q.FromLng},
        {"to_lat", &q.ToLat}, {"to_lng", &q.ToLng},
    } {
        v, err := strconv.ParseFloat(strings.TrimSpace(c.QueryParam(p.name)), 64)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid " + p.name})
        }
        *p.dst = v
    }
    q.Date = strings.TrimSpace(c.QueryParam("date"))

    ctx, cancel := reqCtx(c, h.Timeout)
    defer cancel()
    res, err := h.Trips.SearchByCoordinates(ctx, q)
    if err != nil {
        return respondError(c, "search", err)
    }
    return c.JSON(http.StatusOK, echo.Map{"count": len(res), "trips": res})
}

// Availability handles GET /v1/trips/:id/availability.
func (h *SearchHandler) Availability(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip id"})
    }
    ctx, cancel := reqCtx(c, h.Timeout)
    defer cancel()
    n, err := h.Seats.Available(ctx, id)
    if err != nil {
        return respondError(c, "availability", err)
    }
    return c.JSON(http.StatusOK, echo.Map{"trip_id": id, "available_seats": n})
}
