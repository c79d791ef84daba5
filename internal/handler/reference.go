package handler

import (
    "context"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/bus-ticket-reservation/internal/model"
)

// StationLister lists stations, optionally within one province.
type StationLister interface {
    List(ctx context.Context, provinceID uint64) ([]model.Station, error)
}

// RouteStopper returns a route's ordered stops.
type RouteStopper interface {
    StopsOf(ctx context.Context, routeID uint64) (model.StopSequence, error)
}

// ReferenceHandler exposes the read-only reference data travelers need to
// build a search: stations and the stops of a route.
type ReferenceHandler struct {
    Stations StationLister
    Stops    RouteStopper
    Timeout  time.Duration
}

func NewReferenceHandler(stations StationLister, stops RouteStopper, timeout time.Duration) *ReferenceHandler {
    return &ReferenceHandler{Stations: stations, Stops: stops, Timeout: timeout}
}

// ListStations handles GET /v1/stations?province_id=.
func (h *ReferenceHandler) ListStations(c echo.Context) error {
    var province uint64
    if raw := c.QueryParam("province_id"); raw != "" {
        v, err := strconv.ParseUint(raw, 10, 64)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid province_id"})
        }
        province = v
    }
    ctx, cancel := reqCtx(c, h.Timeout)
    defer cancel()
    out, err := h.Stations.List(ctx, province)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list stations"})
    }
    return c.JSON(http.StatusOK, out)
}

// RouteStops handles GET /v1/routes/:id/stops.
func (h *ReferenceHandler) RouteStops(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid route id"})
    }
    ctx, cancel := reqCtx(c, h.Timeout)
    defer cancel()
    seq, err := h.Stops.StopsOf(ctx, id)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load stops"})
    }
    if len(seq) == 0 {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "route not found"})
    }
    return c.JSON(http.StatusOK, echo.Map{"route_id": id, "stops": seq})
}
